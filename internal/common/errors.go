// Package common defines sentinel errors and constants shared by the
// fundkeeper server, its repositories and the operator CLI. Callers should
// match these values with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Auth errors. Every token failure (malformed, forged, expired) collapses
	// into ErrInvalidToken.
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrProviderMismatch   = errors.New("email is registered with another sign-in provider")
	ErrMissingSecret      = errors.New("signing secret is not configured")

	// Funding errors.
	ErrInvalidAmount     = errors.New("invalid contribution amount")
	ErrPaymentDisabled   = errors.New("payment system is currently disabled")
	ErrProjectNotActive  = errors.New("this project is not accepting contributions")
	ErrSelfContribution  = errors.New("you cannot contribute to your own project")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("project cannot be started")

	// Admin errors.
	ErrSelfDeletion = errors.New("cannot delete your own admin account")
)

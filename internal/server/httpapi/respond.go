package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/fundkeeper/internal/common"
	"github.com/dmitrijs2005/fundkeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const internalErrorMessage = "Something went wrong"

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps a service error to its status code. ok is false for
// errors that must not be shown to the client.
func errorStatus(err error) (status int, ok bool) {
	switch {
	case errors.Is(err, common.ErrorValidation),
		errors.Is(err, common.ErrInvalidAmount),
		errors.Is(err, common.ErrInvalidStatus),
		errors.Is(err, common.ErrInvalidTransition),
		errors.Is(err, common.ErrProjectNotActive),
		errors.Is(err, common.ErrSelfDeletion):
		return http.StatusBadRequest, true
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, true
	case errors.Is(err, common.ErrorForbidden),
		errors.Is(err, common.ErrPaymentDisabled),
		errors.Is(err, common.ErrSelfContribution):
		return http.StatusForbidden, true
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, services.ErrOAuthDisabled):
		return http.StatusNotFound, true
	case errors.Is(err, common.ErrorAlreadyExists),
		errors.Is(err, common.ErrProviderMismatch):
		return http.StatusConflict, true
	}
	return http.StatusInternalServerError, false
}

// fail writes err as a JSON error body. Unexpected errors are logged and
// replaced by a generic message.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, ok := errorStatus(err)
	msg := err.Error()
	if !ok {
		a.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = internalErrorMessage
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func notFound(what string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%s %w", what, common.ErrorNotFound)
	}
	return err
}

// clientError carries a client-facing message for a sentinel.
type clientError struct {
	msg string
	err error
}

func (e *clientError) Error() string { return e.msg }
func (e *clientError) Unwrap() error { return e.err }

// pathID parses a positive integer route parameter.
func pathID(r *http.Request, name, what string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &clientError{msg: "Invalid " + what + " ID", err: common.ErrorValidation}
	}
	return id, nil
}

// decode reads a JSON body into dst and runs struct validation on it.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", common.ErrorValidation)
	}
	if err := a.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return fmt.Errorf("%w: invalid or missing fields: %s", common.ErrorValidation, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return nil
}

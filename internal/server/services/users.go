// Package services contains server-side business logic. Services own the
// transactions; repositories are obtained from the RepositoryManager bound
// either to the pool or to the open transaction.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/fundkeeper/internal/common"
	"github.com/dmitrijs2005/fundkeeper/internal/dbx"
	"github.com/dmitrijs2005/fundkeeper/internal/server/access"
	"github.com/dmitrijs2005/fundkeeper/internal/server/auth"
	"github.com/dmitrijs2005/fundkeeper/internal/server/models"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/repomanager"
)

// Session is a signed-in user together with the token to hand back.
type Session struct {
	User  *models.User
	Token string
}

// UserUpdate carries the admin-editable user fields.
type UserUpdate struct {
	Name  string
	Email string
	Role  models.Role
}

// UserService handles registration, login and user administration.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService

	// dummyHash is verified against when the email is unknown so that both
	// failure paths cost one argon2 derivation.
	dummyHash string
}

// NewUserService constructs a UserService.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenService) *UserService {
	secret, err := common.MakeRandHexString(16)
	if err != nil {
		panic(err)
	}
	dummy, err := auth.HashPassword(secret)
	if err != nil {
		panic(err)
	}
	return &UserService{db: db, repomanager: m, tokens: tokens, dummyHash: dummy}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a password account with the user role and signs it in.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: missing required fields", common.ErrorValidation)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         models.RoleUser,
		Provider:     common.ProviderEmail,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, fmt.Errorf("%w: user with this email", common.ErrorAlreadyExists)
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return s.newSession(user)
}

// Login verifies email and password. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = auth.VerifyPassword(password, s.dummyHash)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if user.PasswordHash == "" {
		_, _ = auth.VerifyPassword(password, s.dummyHash)
		return nil, common.ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("error verifying password: %w", err)
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	return s.newSession(user)
}

// Me returns the caller's account.
func (s *UserService) Me(ctx context.Context, userID int64) (*models.User, error) {
	return s.GetUser(ctx, userID)
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.repomanager.Users(s.db).List(ctx)
}

// UpdateUser changes name, email and role of an account.
func (s *UserService) UpdateUser(ctx context.Context, id int64, upd UserUpdate) (*models.User, error) {
	upd.Name = strings.TrimSpace(upd.Name)
	upd.Email = normalizeEmail(upd.Email)
	if upd.Name == "" || upd.Email == "" {
		return nil, fmt.Errorf("%w: name and email are required", common.ErrorValidation)
	}
	if !upd.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, upd.Role)
	}

	return s.repomanager.Users(s.db).Update(ctx, &models.User{ID: id, Name: upd.Name, Email: upd.Email, Role: upd.Role})
}

// DeleteUser removes an account and the projects it owns in one
// transaction. An admin cannot delete their own account.
func (s *UserService) DeleteUser(ctx context.Context, callerID, targetID int64) error {
	if err := access.ForbidSelfDeletion(callerID, targetID); err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)
		if _, err := users.GetByID(ctx, targetID); err != nil {
			return err
		}
		if _, err := s.repomanager.Projects(tx).DeleteByOwner(ctx, targetID); err != nil {
			return fmt.Errorf("error deleting projects: %w", err)
		}
		return users.Delete(ctx, targetID)
	})
}

// CreateAdmin provisions an admin account, or promotes and re-keys an
// existing account with the same email.
func (s *UserService) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", common.ErrorValidation)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)

		existing, err := users.GetByEmail(ctx, email)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			user, err = users.Create(ctx, &models.User{
				Email: email, PasswordHash: hash, Name: name,
				Role: models.RoleAdmin, Provider: common.ProviderEmail,
			})
			return err
		case err != nil:
			return err
		}

		if existing.Provider != common.ProviderEmail {
			return common.ErrProviderMismatch
		}
		user, err = users.Update(ctx, &models.User{ID: existing.ID, Name: name, Email: email, Role: models.RoleAdmin})
		if err != nil {
			return err
		}
		return users.SetPasswordHash(ctx, existing.ID, hash)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GoogleProfile is the subset of Google's userinfo response used here.
type GoogleProfile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// UpsertGoogleUser signs in a Google account, creating it on first use.
// An email already registered with a password is not taken over.
func (s *UserService) UpsertGoogleUser(ctx context.Context, p GoogleProfile) (*Session, error) {
	email := normalizeEmail(p.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: google profile has no email", common.ErrorValidation)
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = email
	}

	users := s.repomanager.Users(s.db)
	user, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		user, err = users.Create(ctx, &models.User{
			Email: email, Name: name, Role: models.RoleUser,
			Provider: common.ProviderGoogle, GoogleID: p.ID, ProfilePicture: p.Picture,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating user: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("error loading user: %w", err)
	default:
		if user.Provider != common.ProviderGoogle {
			return nil, common.ErrProviderMismatch
		}
		if err := users.UpdateGoogleProfile(ctx, user.ID, name, p.ID, p.Picture); err != nil {
			return nil, fmt.Errorf("error updating user: %w", err)
		}
		user.Name, user.GoogleID, user.ProfilePicture = name, p.ID, p.Picture
	}

	return s.newSession(user)
}

func (s *UserService) newSession(user *models.User) (*Session, error) {
	token, err := s.tokens.IssueToken(user.ID, user.Email, user.Provider)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token}, nil
}

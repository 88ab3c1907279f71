// Package access decides whether the caller attached to a request context
// may perform an operation. It never writes responses; callers map the
// returned sentinel errors to status codes.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fundkeeper/internal/common"
	"github.com/dmitrijs2005/fundkeeper/internal/server/auth"
	"github.com/dmitrijs2005/fundkeeper/internal/server/models"
)

type ctxKey struct{}

// WithIdentity attaches verified token claims to ctx.
func WithIdentity(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

// IdentityFromContext returns the claims attached by WithIdentity.
func IdentityFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ctxKey{}).(*auth.Claims)
	return claims, ok && claims != nil
}

// UserLookup loads the current state of an account. The role is always read
// from storage so a demotion takes effect on the next request.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type Gate struct {
	users UserLookup
}

func NewGate(users UserLookup) *Gate {
	return &Gate{users: users}
}

// RequireAuthenticated returns the caller's claims or common.ErrorUnauthorized.
func RequireAuthenticated(ctx context.Context) (*auth.Claims, error) {
	claims, ok := IdentityFromContext(ctx)
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	return claims, nil
}

// RequireAdmin returns the caller's account when it holds the admin role.
// Anonymous callers, and callers whose account no longer exists, get
// common.ErrorUnauthorized; everyone else gets common.ErrorForbidden.
func (g *Gate) RequireAdmin(ctx context.Context) (*models.User, error) {
	user, err := g.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, common.ErrorForbidden
	}
	return user, nil
}

// RequireOwnerOrAdmin allows the owner of a resource, or any admin.
func (g *Gate) RequireOwnerOrAdmin(ctx context.Context, ownerID int64) (*auth.Claims, error) {
	claims, err := RequireAuthenticated(ctx)
	if err != nil {
		return nil, err
	}
	if claims.UserID == ownerID {
		return claims, nil
	}

	user, err := g.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, common.ErrorForbidden
	}
	return claims, nil
}

func (g *Gate) currentUser(ctx context.Context) (*models.User, error) {
	claims, err := RequireAuthenticated(ctx)
	if err != nil {
		return nil, err
	}
	user, err := g.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("load caller: %w", err)
	}
	return user, nil
}

// ForbidSelfContribution rejects a contribution by the project's owner.
func ForbidSelfContribution(callerID, ownerID int64) error {
	if callerID == ownerID {
		return common.ErrSelfContribution
	}
	return nil
}

// ForbidSelfDeletion rejects an admin deleting their own account.
func ForbidSelfDeletion(callerID, targetID int64) error {
	if callerID == targetID {
		return common.ErrSelfDeletion
	}
	return nil
}

// Package auth issues and verifies session tokens, hashes passwords and
// resolves the caller's identity from the session cookie.
package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/fundkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a session token.
type Claims struct {
	UserID   int64  `json:"userId"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

// TokenService signs session tokens with a server-held HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService returns ErrMissingSecret when secret is empty: there is
// no fallback key.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, common.ErrMissingSecret
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// IssueToken signs a token for the given user that expires after TTL.
func (s *TokenService) IssueToken(userID int64, email, provider string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   userID,
		Email:    email,
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature, algorithm and expiry. Every failure is
// reported as common.ErrInvalidToken.
func (s *TokenService) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid || claims.UserID <= 0 {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// ResolveIdentity reads the session cookie from r. A missing, malformed,
// forged or expired token all yield (nil, false); it never fails the request.
func (s *TokenService) ResolveIdentity(r *http.Request) (*Claims, bool) {
	cookie, err := r.Cookie(common.AuthCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	claims, err := s.VerifyToken(cookie.Value)
	if err != nil {
		return nil, false
	}
	return claims, true
}

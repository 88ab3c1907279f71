package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/fundkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T, secret string) *TokenService {
	t.Helper()
	s, err := NewTokenService(secret, 2*time.Hour)
	require.NoError(t, err)
	return s
}

func TestNewTokenService_NoSecret(t *testing.T) {
	_, err := NewTokenService("", time.Hour)
	require.ErrorIs(t, err, common.ErrMissingSecret)

	_, err = NewTokenService("k", 0)
	require.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	s := newTestTokenService(t, "super-secret")
	tok, err := s.IssueToken(42, "a@example.com", common.ProviderEmail)
	require.NoError(t, err)

	claims, err := s.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, common.ProviderEmail, claims.Provider)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestVerifyToken_Expired(t *testing.T) {
	t.Parallel()

	s := newTestTokenService(t, "secret")
	issued := time.Now()
	s.now = func() time.Time { return issued }
	tok, err := s.IssueToken(1, "u@example.com", common.ProviderEmail)
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(2*time.Hour + time.Second) }
	_, err = s.VerifyToken(tok)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := newTestTokenService(t, "right-secret").IssueToken(2, "u@example.com", common.ProviderEmail)
	require.NoError(t, err)

	_, err = newTestTokenService(t, "wrong-secret").VerifyToken(tok)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerifyToken_Malformed(t *testing.T) {
	t.Parallel()

	s := newTestTokenService(t, "k")
	for _, tok := range []string{"", "not.a.jwt", "abc"} {
		_, err := s.VerifyToken(tok)
		assert.ErrorIs(t, err, common.ErrInvalidToken, tok)
	}
}

func TestVerifyToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	s := newTestTokenService(t, "k")
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = s.VerifyToken(tok)
	require.ErrorIs(t, err, common.ErrInvalidToken)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	tok, err = hs512.SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = s.VerifyToken(tok)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerifyToken_RequiresExpiry(t *testing.T) {
	t.Parallel()

	s := newTestTokenService(t, "k")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: 1}).SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = s.VerifyToken(tok)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestResolveIdentity(t *testing.T) {
	t.Parallel()

	s := newTestTokenService(t, "k")
	tok, err := s.IssueToken(7, "x@example.com", common.ProviderGoogle)
	require.NoError(t, err)

	t.Run("no cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		claims, ok := s.ResolveIdentity(r)
		assert.False(t, ok)
		assert.Nil(t, claims)
	})

	t.Run("garbage cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: common.AuthCookieName, Value: "garbage"})
		_, ok := s.ResolveIdentity(r)
		assert.False(t, ok)
	})

	t.Run("valid cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: common.AuthCookieName, Value: tok})
		claims, ok := s.ResolveIdentity(r)
		require.True(t, ok)
		assert.Equal(t, int64(7), claims.UserID)
		assert.Equal(t, common.ProviderGoogle, claims.Provider)
	})
}

func TestSessionCookies(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "tok", 2*time.Hour, true)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, common.AuthCookieName, c.Name)
	assert.Equal(t, "tok", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 7200, c.MaxAge)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	rec = httptest.NewRecorder()
	ClearSessionCookie(rec, false)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/dmitrijs2005/fundkeeper/internal/common"
	sc "github.com/dmitrijs2005/fundkeeper/internal/server/config"
	"github.com/dmitrijs2005/fundkeeper/internal/server/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// newGoogleStub serves the token and userinfo endpoints of the provider.
func newGoogleStub(t *testing.T, profile GoogleProfile) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newOAuthFixture(t *testing.T, profile GoogleProfile) (*OAuthService, *memory.Store) {
	t.Helper()
	users, store, _, _ := newUserFixture(t)
	srv := newGoogleStub(t, profile)

	svc := NewOAuthService(&sc.Config{
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		OAuthRedirectURL:   "http://localhost:8080/api/auth/google/callback",
	}, users)
	svc.config.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	svc.userInfoURL = srv.URL + "/userinfo"
	return svc, store
}

func TestOAuth_Disabled(t *testing.T) {
	users, _, _, _ := newUserFixture(t)
	svc := NewOAuthService(&sc.Config{}, users)

	assert.False(t, svc.Enabled())
	_, err := svc.AuthURL("state")
	require.ErrorIs(t, err, ErrOAuthDisabled)
	_, err = svc.HandleCallback(context.Background(), "code")
	require.ErrorIs(t, err, ErrOAuthDisabled)
}

func TestOAuth_AuthURL(t *testing.T) {
	svc, _ := newOAuthFixture(t, GoogleProfile{})

	raw, err := svc.AuthURL("st-123")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "st-123", q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "select_account", q.Get("prompt"))
	assert.Contains(t, q.Get("scope"), "email")
}

func TestOAuth_HandleCallback(t *testing.T) {
	svc, store := newOAuthFixture(t, GoogleProfile{ID: "g-77", Email: "New@Example.com", Name: "Newbie", Picture: "https://pic"})

	sess, err := svc.HandleCallback(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", sess.User.Email)
	assert.Equal(t, common.ProviderGoogle, sess.User.Provider)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "g-77", store.Users[sess.User.ID].GoogleID)

	_, err = svc.HandleCallback(context.Background(), "bad-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token exchange failed")
}

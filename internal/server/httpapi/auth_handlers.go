package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/fundkeeper/internal/common"
	"github.com/dmitrijs2005/fundkeeper/internal/server/auth"
)

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	sess, err := a.svc.Users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.setSession(w, sess.Token)
	writeJSON(w, http.StatusCreated, sessionResponse{User: sess.User, Token: sess.Token})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := a.decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	sess, err := a.svc.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.setSession(w, sess.Token)
	writeJSON(w, http.StatusOK, sessionResponse{User: sess.User, Token: sess.Token})
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, a.config.CookieSecure)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *API) me(w http.ResponseWriter, r *http.Request) {
	user, err := a.svc.Users.Me(r.Context(), caller(r))
	if err != nil {
		a.fail(w, r, notFound("user", err))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

const (
	oauthStateKey    = "state"
	oauthReturnToKey = "returnTo"
)

// safeReturnTo keeps post-login redirects on this site.
func safeReturnTo(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return raw
}

func (a *API) googleStart(w http.ResponseWriter, r *http.Request) {
	if !a.svc.OAuth.Enabled() {
		a.fail(w, r, a.oauthDisabled())
		return
	}

	state, err := common.MakeRandHexString(16)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	authURL, err := a.svc.OAuth.AuthURL(state)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	sess, _ := a.sessions.Get(r, common.OAuthSessionName)
	sess.Values[oauthStateKey] = state
	sess.Values[oauthReturnToKey] = safeReturnTo(r.URL.Query().Get("returnTo"))
	if err := sess.Save(r, w); err != nil {
		a.fail(w, r, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

func (a *API) googleCallback(w http.ResponseWriter, r *http.Request) {
	sess, _ := a.sessions.Get(r, common.OAuthSessionName)
	wantState, _ := sess.Values[oauthStateKey].(string)
	returnTo, _ := sess.Values[oauthReturnToKey].(string)

	sess.Options.MaxAge = -1
	_ = sess.Save(r, w)

	q := r.URL.Query()
	switch {
	case wantState == "" || q.Get("state") != wantState:
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusFound)
		return
	case q.Get("code") == "":
		http.Redirect(w, r, "/login?error=no_code", http.StatusFound)
		return
	}

	s, err := a.svc.OAuth.HandleCallback(r.Context(), q.Get("code"))
	if err != nil {
		if errors.Is(err, common.ErrProviderMismatch) {
			http.Redirect(w, r, "/login?error=provider_mismatch", http.StatusFound)
			return
		}
		a.logger.Error(r.Context(), "google callback failed", "error", err)
		http.Redirect(w, r, "/login?error=server_error", http.StatusFound)
		return
	}

	a.setSession(w, s.Token)
	http.Redirect(w, r, safeReturnTo(returnTo), http.StatusFound)
}

func (a *API) oauthDisabled() error {
	return &clientError{msg: "Google sign-in is not configured", err: common.ErrorNotFound}
}

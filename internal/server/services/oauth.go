package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	sc "github.com/dmitrijs2005/fundkeeper/internal/server/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// ErrOAuthDisabled is returned when Google sign-in is not configured.
var ErrOAuthDisabled = errors.New("google sign-in is not configured")

// OAuthService runs the Google authorization-code flow and signs the
// resulting account in through UserService.
type OAuthService struct {
	config      *oauth2.Config
	userInfoURL string
	users       *UserService
}

// NewOAuthService returns a service whose Enabled reports false when the
// Google client credentials are not configured.
func NewOAuthService(cfg *sc.Config, users *UserService) *OAuthService {
	s := &OAuthService{users: users, userInfoURL: googleUserInfoURL}
	if cfg.GoogleEnabled() {
		s.config = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  cfg.OAuthRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
		}
	}
	return s
}

func (s *OAuthService) Enabled() bool {
	return s.config != nil
}

// AuthURL is the Google consent URL carrying state.
func (s *OAuthService) AuthURL(state string) (string, error) {
	if !s.Enabled() {
		return "", ErrOAuthDisabled
	}
	return s.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account")), nil
}

// HandleCallback exchanges code for a token, fetches the Google profile and
// signs the matching account in, creating it on first use.
func (s *OAuthService) HandleCallback(ctx context.Context, code string) (*Session, error) {
	if !s.Enabled() {
		return nil, ErrOAuthDisabled
	}

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	profile, err := s.fetchProfile(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	return s.users.UpsertGoogleUser(ctx, *profile)
}

func (s *OAuthService) fetchProfile(ctx context.Context, token *oauth2.Token) (*GoogleProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google API returned status %d", resp.StatusCode)
	}

	var p GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode Google user response: %w", err)
	}
	return &p, nil
}

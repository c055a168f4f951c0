package api

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/edulock/sebdash/pkg/activity"
	"github.com/edulock/sebdash/pkg/credential"
	"github.com/edulock/sebdash/pkg/lms"
)

// StateCookieName holds the server-side copy of the anti-forgery state.
// The client-held copy travels through the provider's redirect.
const StateCookieName = "sebdash_oauth_state"

// Login starts the handshake: a fresh single-use state value is stored in
// a short-lived cookie and sent along to the provider's authorize endpoint.
func (s *Server) Login(c echo.Context) error {
	state, err := s.nonces.Get()
	if err != nil {
		return fmt.Errorf("generate state: %w", err)
	}

	c.SetCookie(&http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(StateTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	return c.Redirect(http.StatusFound, s.lmsClient.AuthCodeURL(state))
}

// Callback finishes the handshake. Validation order matters: parameter
// presence, then anti-forgery, then the code exchange with the
// confidential secret, then profile fetch, upsert and session creation.
func (s *Server) Callback(c echo.Context) error {
	if errCode := c.QueryParam("error"); errCode != "" {
		return ErrorBadRequest(fmt.Sprintf("provider declined authorization: %s", errCode))
	}

	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" || state == "" {
		return ErrorBadRequest("code and state parameters are required")
	}

	stateCookie, err := c.Cookie(StateCookieName)
	s.expireStateCookie(c)
	if err != nil || stateCookie.Value == "" {
		slog.Warn("handshake callback without stored state", "remote_addr", c.RealIP())
		return ErrCSRFMismatch
	}
	if subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(state)) != 1 {
		slog.Warn("handshake state mismatch", "remote_addr", c.RealIP())
		return ErrCSRFMismatch
	}
	if err := s.nonces.Redeem(state); err != nil {
		slog.Warn("handshake state not redeemable", "remote_addr", c.RealIP(), "error", err)
		return ErrCSRFMismatch
	}

	ctx := c.Request().Context()

	tokenResponse, err := s.lmsClient.ExchangeCode(ctx, code)
	if err != nil {
		var tokenErr *lms.TokenError
		if errors.As(err, &tokenErr) {
			// the provider's own status and error body, e.g. a replayed code
			return Error{
				HttpStatus:  tokenErr.Status,
				Code:        tokenErr.Cause.Code,
				Description: tokenErr.Cause.Description,
			}
		}
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	profile, err := s.lmsClient.FetchProfile(ctx, tokenResponse.AccessToken)
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}

	record, err := s.store.Upsert(&credential.UserCredential{
		UserID:       profile.ID,
		Domain:       s.lmsClient.Domain(),
		AccessToken:  tokenResponse.AccessToken,
		RefreshToken: tokenResponse.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tokenResponse.ExpiresIn) * time.Second),
		Profile: credential.Profile{
			Name:      profile.Name,
			Email:     profile.PrimaryEmail,
			AvatarURL: profile.AvatarURL,
		},
	})
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}

	if err := s.sessions.Create(c, record.UserID); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	s.feed.Record(activity.EventLogin, record.UserID, record.Profile.Name+" signed in")
	slog.Info("handshake complete", "user_id", record.UserID, "domain", record.Domain)

	return c.Redirect(http.StatusFound, "/")
}

// Logout destroys the session only; the credential record survives so a
// later login can reuse its refresh token.
func (s *Server) Logout(c echo.Context) error {
	if userID, ok := s.sessions.Read(c); ok {
		s.feed.Record(activity.EventLogout, userID, "signed out")
	}
	s.sessions.Destroy(c)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) expireStateCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

package lms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/edulock/sebdash/pkg/oauth2"
	"github.com/edulock/sebdash/pkg/util"
)

// TokenError carries the provider's own error body and HTTP status from a
// failed token endpoint call. The status is propagated outward unchanged.
type TokenError struct {
	Status int
	Cause  oauth2.Error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token endpoint returned %d: %s", e.Status, e.Cause)
}

func (e *TokenError) Unwrap() error {
	return e.Cause
}

// Profile is the canonical display identity fetched after a handshake.
type Profile struct {
	ID           int64  `json:"id" validate:"required"`
	Name         string `json:"name" validate:"required"`
	PrimaryEmail string `json:"primary_email"`
	AvatarURL    string `json:"avatar_url"`
}

// AuthCodeURL builds the provider's authorization redirect target.
func (c *Client) AuthCodeURL(state string) string {
	query := url.Values{}
	query.Set("client_id", c.cfg.ClientID)
	query.Set("redirect_uri", c.cfg.RedirectURI)
	query.Set("response_type", "code")
	query.Set("state", state)

	return fmt.Sprintf("%s/login/oauth2/auth?%s", c.domain, query.Encode())
}

// ExchangeCode redeems an authorization code at the token endpoint using
// the confidential client secret. The provider rejects replayed codes
// itself; that rejection is propagated, never masked.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.TokenResponse, error) {
	params := url.Values{}
	params.Set("grant_type", "authorization_code")
	params.Set("client_id", c.cfg.ClientID)
	params.Set("client_secret", c.cfg.ClientSecret)
	params.Set("redirect_uri", c.cfg.RedirectURI)
	params.Set("code", code)

	return c.postToken(ctx, params)
}

// RefreshToken mints a new access token from a refresh token. The refresh
// grant returns no new refresh token; the stored one stays valid.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.TokenResponse, error) {
	params := url.Values{}
	params.Set("grant_type", "refresh_token")
	params.Set("client_id", c.cfg.ClientID)
	params.Set("client_secret", c.cfg.ClientSecret)
	params.Set("refresh_token", refreshToken)

	return c.postToken(ctx, params)
}

func (c *Client) postToken(ctx context.Context, params url.Values) (*oauth2.TokenResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.domain + "/login/oauth2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var oauthErr oauth2.Error
		if err := json.Unmarshal(body, &oauthErr); err != nil {
			oauthErr = oauth2.Error{Code: "invalid_response", Description: string(body)}
		}
		return nil, &TokenError{Status: resp.StatusCode, Cause: oauthErr}
	}

	tokenResponse, err := util.DecodeValid[oauth2.TokenResponse](body)
	if err != nil {
		return nil, fmt.Errorf("token response: %w", err)
	}

	return tokenResponse, nil
}

// FetchProfile loads the display profile of the token's owner.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	body, _, err := c.get(ctx, c.apiURL("/api/v1/users/self/profile", nil), accessToken)
	if err != nil {
		return nil, err
	}

	profile, err := util.DecodeValid[Profile](body)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}

	return profile, nil
}

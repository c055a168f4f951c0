// Package lms implements the client side of a Canvas-style Learning
// Management System: the OAuth 2.0 provider endpoints (authorize, token,
// profile) and the bearer-authenticated resource API (courses, quizzes).
package lms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const UserAgent = "sebdash-client/0.1"

// ErrUnauthorized is returned when the resource API rejects the bearer
// token with 401. Callers treat the credential as revoked, not as a
// transient failure.
var ErrUnauthorized = errors.New("lms: token rejected by resource API")

// APIError is any non-2xx resource API response other than 401.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lms: unexpected status %d: %s", e.Status, e.Body)
}

// Config holds the confidential OAuth client registration for one LMS
// instance. The client secret never leaves the server process.
type Config struct {
	Domain       string `yaml:"domain" validate:"required,url"`
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	RedirectURI  string `yaml:"redirect_uri" validate:"required,url"`
}

type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRequestTimeout changes the bounded wait applied to every remote call.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

type Client struct {
	cfg        Config
	domain     string
	httpClient *http.Client
	timeout    time.Duration
}

func NewClient(cfg Config, opts ...ClientOption) *Client {
	c := &Client{
		cfg:        cfg,
		domain:     strings.TrimRight(cfg.Domain, "/"),
		httpClient: http.DefaultClient,
		timeout:    10 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ForDomain returns a copy of the client bound to another LMS instance.
// Credentials record the instance their user authenticated against, which
// is not necessarily the configured default.
func (c *Client) ForDomain(domain string) *Client {
	domain = strings.TrimRight(domain, "/")
	if domain == "" || domain == c.domain {
		return c
	}
	clone := *c
	clone.domain = domain
	return &clone
}

func (c *Client) Domain() string {
	return c.domain
}

// get performs one bearer-authenticated GET with the bounded per-call
// timeout. A 401 maps to ErrUnauthorized, any other non-2xx to APIError.
func (c *Client) get(ctx context.Context, rawURL, accessToken string) ([]byte, http.Header, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("call %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	return body, resp.Header, nil
}

// nextPageURL extracts the rel="next" target from a Link header, the
// pagination scheme used by the resource API. Empty means last page.
func nextPageURL(linkHeader string) string {
	for _, part := range strings.Split(linkHeader, ",") {
		section := strings.Split(part, ";")
		if len(section) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(section[0]), "<>")
		for _, param := range section[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return target
			}
		}
	}
	return ""
}

func (c *Client) apiURL(path string, query url.Values) string {
	u := c.domain + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

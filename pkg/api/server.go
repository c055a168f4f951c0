// Package api exposes the middleware over HTTP: the OAuth handshake, the
// dashboard composition endpoint and the live activity stream.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/edulock/sebdash/pkg/activity"
	"github.com/edulock/sebdash/pkg/aggregate"
	"github.com/edulock/sebdash/pkg/credential"
	"github.com/edulock/sebdash/pkg/lms"
	"github.com/edulock/sebdash/pkg/nonce"
	"github.com/edulock/sebdash/pkg/session"
)

// StateTTL bounds the lifetime of the anti-forgery state cookie.
const StateTTL = 10 * time.Minute

type Option func(*Server) error

func WithLMSClient(client *lms.Client) Option {
	return func(s *Server) error {
		s.lmsClient = client
		return nil
	}
}

func WithCredentialStore(store credential.Store) Option {
	return func(s *Server) error {
		s.store = store
		return nil
	}
}

func WithSessionManager(sessions *session.Manager) Option {
	return func(s *Server) error {
		s.sessions = sessions
		return nil
	}
}

func WithNonceService(nonces nonce.Service) Option {
	return func(s *Server) error {
		s.nonces = nonces
		return nil
	}
}

func WithActivityFeed(feed *activity.Feed) Option {
	return func(s *Server) error {
		s.feed = feed
		return nil
	}
}

// WithSecureCookies controls the Secure attribute of the state cookie.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) error {
		s.secureCookies = secure
		return nil
	}
}

type Server struct {
	lmsClient     *lms.Client
	store         credential.Store
	sessions      *session.Manager
	nonces        nonce.Service
	feed          *activity.Feed
	refresher     *credential.Refresher
	aggregator    *aggregate.Aggregator
	secureCookies bool
	upgrader      websocket.Upgrader
}

func NewServer(opts ...Option) (*Server, error) {
	s := &Server{
		secureCookies: true,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.lmsClient == nil {
		return nil, fmt.Errorf("lms client is required")
	}
	if s.store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if s.nonces == nil {
		nonces, err := nonce.NewHashicorpService()
		if err != nil {
			return nil, fmt.Errorf("create nonce service: %w", err)
		}
		s.nonces = nonces
	}
	if s.feed == nil {
		s.feed = activity.NewFeed(256)
	}

	s.refresher = credential.NewRefresher(s.store, credential.LMSRefreshFunc(s.lmsClient))
	s.aggregator = aggregate.New(s.lmsClient)

	return s, nil
}

// ErrorMappingMiddleware converts typed api.Error values to their HTTP
// response and collapses everything unexpected into the generic
// infrastructure failure. Raw errors never reach the consumer.
func ErrorMappingMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err == nil {
			return nil
		}

		var apiErr Error
		if errors.As(err, &apiErr) {
			if apiErr.HttpStatus >= 500 {
				slog.Error("request failed", "error", err, "path", c.Path(), "remote_addr", c.RealIP())
			}
			return c.JSON(apiErr.HttpStatus, apiErr)
		}

		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			return err
		}

		slog.Error("unexpected error", "error", err, "path", c.Path(), "remote_addr", c.RealIP())
		return c.JSON(ErrInfrastructure.HttpStatus, ErrInfrastructure)
	}
}

func (s *Server) MountRoutes(g *echo.Group) {
	g.Use(ErrorMappingMiddleware)
	g.GET("/auth/login", s.Login)
	g.GET("/auth/callback", s.Callback)
	g.POST("/auth/logout", s.Logout)
	g.GET("/api/dashboard", s.Dashboard)
	g.GET("/ws/activity", s.ActivityStream)
}

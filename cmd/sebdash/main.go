package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/edulock/sebdash/pkg/api"
	"github.com/edulock/sebdash/pkg/credential"
	"github.com/edulock/sebdash/pkg/lms"
	"github.com/edulock/sebdash/pkg/prettylog"
	"github.com/edulock/sebdash/pkg/session"
)

func main() {
	godotenv.Load()

	if os.Getenv("PRETTY_LOGS") != "false" {
		logger := slog.New(prettylog.NewHandler(slog.LevelDebug))
		slog.SetDefault(logger)
	}

	configPath := flag.String("config", "sebdash.yaml", "path to config file")
	flag.Parse()

	config, err := LoadConfigFile(*configPath)
	if err != nil {
		slog.Error("Unable to load config", "error", err)
		os.Exit(1)
	}

	signKey, err := config.Session.decodeKey(config.Session.SignKey)
	if err != nil {
		slog.Error("Invalid session sign key", "error", err)
		os.Exit(1)
	}
	encKey, err := config.Session.decodeKey(config.Session.EncryptionKey)
	if err != nil {
		slog.Error("Invalid session encryption key", "error", err)
		os.Exit(1)
	}
	if signKey == nil || encKey == nil {
		slog.Warn("No session keys configured, generating ephemeral keys; sessions will not survive a restart")
		if signKey == nil {
			signKey, err = session.GenerateKey(256)
		}
		if err == nil && encKey == nil {
			encKey, err = session.GenerateKey(256)
		}
		if err != nil {
			slog.Error("Unable to generate session keys", "error", err)
			os.Exit(1)
		}
	}

	secureCookies := true
	if config.Session.SecureCookies != nil {
		secureCookies = *config.Session.SecureCookies
	}

	sessions, err := session.NewManager(signKey, encKey, session.WithSecureCookies(secureCookies))
	if err != nil {
		slog.Error("Unable to create session manager", "error", err)
		os.Exit(1)
	}

	server, err := api.NewServer(
		api.WithLMSClient(lms.NewClient(config.LMS)),
		api.WithCredentialStore(credential.NewMemoryStore()),
		api.WithSessionManager(sessions),
		api.WithSecureCookies(secureCookies),
	)
	if err != nil {
		slog.Error("Unable to create server", "error", err)
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	server.MountRoutes(e.Group(""))

	slog.Info("Starting sebdash", "address", config.Address, "lms_domain", config.LMS.Domain)
	if err := e.Start(config.Address); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

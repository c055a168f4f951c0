package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/edulock/sebdash/pkg/activity"
	"github.com/edulock/sebdash/pkg/aggregate"
	"github.com/edulock/sebdash/pkg/credential"
	"github.com/edulock/sebdash/pkg/lms"
)

// DashboardUser is the profile block of the dashboard payload.
type DashboardUser struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Domain    string `json:"domain"`
}

// DashboardResponse is the consumer-facing success contract.
type DashboardResponse struct {
	User     DashboardUser               `json:"user"`
	Courses  []aggregate.DashboardCourse `json:"courses"`
	Activity []activity.Event            `json:"activity"`
}

// Dashboard composes session, token refresh and remote aggregation into a
// single payload. All credential failure modes collapse to the same
// outward "please re-authenticate" answer; only the logs tell them apart.
func (s *Server) Dashboard(c echo.Context) error {
	userID, ok := s.sessions.Read(c)
	if !ok {
		return ErrUnauthenticated
	}

	ctx := c.Request().Context()

	token, err := s.refresher.EnsureValidToken(ctx, userID)
	if err != nil {
		var refreshErr *credential.RefreshError
		switch {
		case errors.Is(err, credential.ErrUnknownUser):
			return ErrUnauthenticated
		case errors.Is(err, credential.ErrExpiredNoRefresh):
			slog.Info("credential expired without refresh token", "user_id", userID)
			return ErrReauthRequired
		case errors.As(err, &refreshErr):
			slog.Info("token refresh failed", "user_id", userID, "status", refreshErr.Status)
			return ErrReauthRequired
		default:
			return fmt.Errorf("ensure valid token: %w", err)
		}
	}

	record, err := s.store.Get(userID)
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}

	courses, err := s.aggregator.ListCoursesWithQuizStatus(ctx, token.Domain, token.AccessToken)
	if err != nil {
		if errors.Is(err, lms.ErrUnauthorized) {
			slog.Info("resource API revoked the credential", "user_id", userID)
			return ErrReauthRequired
		}
		return fmt.Errorf("aggregate courses: %w", err)
	}

	s.feed.Record(activity.EventDashboard, userID, "dashboard refreshed")

	return c.JSON(http.StatusOK, DashboardResponse{
		User: DashboardUser{
			ID:        record.UserID,
			Name:      record.Profile.Name,
			Email:     record.Profile.Email,
			AvatarURL: record.Profile.AvatarURL,
			Domain:    record.Domain,
		},
		Courses:  courses,
		Activity: s.feed.Recent(userID, 20),
	})
}

package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/edulock/sebdash/pkg/api"
	"github.com/edulock/sebdash/pkg/credential"
)

func sessionCookieFor(t *testing.T, f *fixture, userID int64) *http.Cookie {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, f.sessions.Create(c, userID))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func seedValidCredential(t *testing.T, f *fixture) {
	t.Helper()
	_, err := f.store.Upsert(&credential.UserCredential{
		UserID:       42,
		Domain:       f.lms.URL,
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    time.Now().Add(time.Hour),
		Profile:      credential.Profile{Name: "Ada Lovelace", Email: "ada@example.edu"},
	})
	require.NoError(t, err)
}

func dashboardMux(t *testing.T) *http.ServeMux {
	mux := providerMux(t)
	mux.HandleFunc("/api/v1/courses", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id": 101, "name": "Algebra", "course_code": "ALG-1", "total_students": 30}]`)
	})
	mux.HandleFunc("/api/v1/courses/101/quizzes", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id": 1, "title": "Midterm", "require_lockdown_browser": true}]`)
	})
	mux.HandleFunc("/api/quiz/v1/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	return mux
}

func getDashboard(f *fixture, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func TestDashboardUnauthenticated(t *testing.T) {
	f := newFixture(t, dashboardMux(t))

	rec := getDashboard(f, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardComposesPayload(t *testing.T) {
	f := newFixture(t, dashboardMux(t))
	seedValidCredential(t, f)

	rec := getDashboard(f, sessionCookieFor(t, f, 42))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload api.DashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))

	require.Equal(t, int64(42), payload.User.ID)
	require.Equal(t, "Ada Lovelace", payload.User.Name)
	require.Len(t, payload.Courses, 1)
	require.Equal(t, "active", string(payload.Courses[0].Status))
	require.NotEmpty(t, payload.Activity, "dashboard view is itself an activity event")
}

func TestDashboardExpiredCredentialWithoutRefresh(t *testing.T) {
	f := newFixture(t, dashboardMux(t))
	_, err := f.store.Upsert(&credential.UserCredential{
		UserID:      42,
		Domain:      f.lms.URL,
		AccessToken: "at",
		ExpiresAt:   time.Now().Add(-time.Hour),
		Profile:     credential.Profile{Name: "Ada Lovelace"},
	})
	require.NoError(t, err)

	rec := getDashboard(f, sessionCookieFor(t, f, 42))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "reauthentication_required")
}

func TestDashboardUnknownUser(t *testing.T) {
	f := newFixture(t, dashboardMux(t))

	// valid session for a user that has no credential record
	rec := getDashboard(f, sessionCookieFor(t, f, 7))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardUpstreamRevocation(t *testing.T) {
	mux := providerMux(t)
	mux.HandleFunc("/api/v1/courses", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "revoked", http.StatusUnauthorized)
	})
	f := newFixture(t, mux)
	seedValidCredential(t, f)

	rec := getDashboard(f, sessionCookieFor(t, f, 42))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "reauthentication_required")
}

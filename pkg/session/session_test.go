package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, opts ...ManagerOption) *Manager {
	t.Helper()
	signKey, err := GenerateKey(256)
	require.NoError(t, err)
	encKey, err := GenerateKey(256)
	require.NoError(t, err)
	m, err := NewManager(signKey, encKey, opts...)
	require.NoError(t, err)
	return m
}

func createCookie(t *testing.T, m *Manager, userID int64) *http.Cookie {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, m.Create(c, userID))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func readWithCookie(m *Manager, cookie *http.Cookie) (int64, bool) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	return m.Read(c)
}

func TestSessionRoundTrip(t *testing.T) {
	m := newManager(t)
	cookie := createCookie(t, m, 42)

	require.Equal(t, CookieName, cookie.Name)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	userID, ok := readWithCookie(m, cookie)
	require.True(t, ok)
	require.Equal(t, int64(42), userID)
}

func TestSessionAbsentCookie(t *testing.T) {
	m := newManager(t)

	_, ok := readWithCookie(m, nil)
	require.False(t, ok)
}

func TestSessionTamperedPayload(t *testing.T) {
	m := newManager(t)
	cookie := createCookie(t, m, 42)

	// flip one byte somewhere in the middle of the blob
	raw := []byte(cookie.Value)
	idx := len(raw) / 2
	for raw[idx] == '.' {
		idx++
	}
	if raw[idx] == 'A' {
		raw[idx] = 'B'
	} else {
		raw[idx] = 'A'
	}

	_, ok := readWithCookie(m, &http.Cookie{Name: CookieName, Value: string(raw)})
	require.False(t, ok, "tampering must never yield a decrypted id")
}

func TestSessionWrongKeyEpoch(t *testing.T) {
	m1 := newManager(t)
	m2 := newManager(t) // different keys: simulates a key rotation

	cookie := createCookie(t, m1, 42)

	_, ok := readWithCookie(m2, cookie)
	require.False(t, ok)
}

func TestSessionExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newManager(t, WithClock(func() time.Time { return now }))

	cookie := createCookie(t, m, 42)

	_, ok := readWithCookie(m, cookie)
	require.True(t, ok)

	now = now.Add(DefaultTTL + time.Second)
	_, ok = readWithCookie(m, cookie)
	require.False(t, ok)
}

func TestSessionDestroy(t *testing.T) {
	m := newManager(t)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	m.Destroy(c)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, CookieName, cookies[0].Name)
	require.Less(t, cookies[0].MaxAge, 0)
	require.Empty(t, cookies[0].Value)
}

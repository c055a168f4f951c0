// Package session maps an encrypted, integrity-checked cookie to a user id.
// There is no server-side session table: the cookie is the whole state,
// which keeps the subsystem horizontally scalable. Individual sessions
// cannot be revoked before their TTL; rotating the keys revokes all of them.
package session

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/labstack/echo/v4"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwe"
	"github.com/lestrrat-go/jwx/v2/jws"
)

const (
	// CookieName is the fixed name of the session cookie.
	CookieName = "sebdash_session"
	// DefaultTTL is the natural session lifetime.
	DefaultTTL = 7 * 24 * time.Hour
)

// payload is the only server-trusted content of a session cookie. It is
// CBOR-encoded, signed, then encrypted before leaving the process.
type payload struct {
	UserID    int64 `cbor:"1,keyasint"`
	ExpiresAt int64 `cbor:"2,keyasint"`
}

// GenerateKey returns a random symmetric key of the given bit size.
func GenerateKey(bits int) ([]byte, error) {
	key := make([]byte, bits/8)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

type ManagerOption func(*Manager)

// WithTTL overrides the session lifetime.
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithSecureCookies marks cookies Secure; on in production.
func WithSecureCookies(secure bool) ManagerOption {
	return func(m *Manager) {
		m.secure = secure
	}
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager creates, reads and destroys the session cookie. The payload is
// signed with the sign key (HS256) and encrypted with the encryption key
// (A256GCM, direct key agreement), so the client holds an opaque blob it
// can neither read nor forge.
type Manager struct {
	signKey []byte
	encKey  []byte
	ttl     time.Duration
	secure  bool
	now     func() time.Time
}

func NewManager(signKey, encKey []byte, opts ...ManagerOption) (*Manager, error) {
	if len(signKey) < 32 {
		return nil, fmt.Errorf("sign key must be at least 256 bit")
	}
	if len(encKey) != 32 {
		return nil, fmt.Errorf("encryption key must be exactly 256 bit for A256GCM")
	}

	m := &Manager{
		signKey: signKey,
		encKey:  encKey,
		ttl:     DefaultTTL,
		secure:  true,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Create binds a new session to the user id and sets the cookie.
func (m *Manager) Create(c echo.Context, userID int64) error {
	expiresAt := m.now().Add(m.ttl)

	plain, err := cbor.Marshal(payload{
		UserID:    userID,
		ExpiresAt: expiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("encode session payload: %w", err)
	}

	signed, err := jws.Sign(plain, jws.WithKey(jwa.HS256, m.signKey))
	if err != nil {
		return fmt.Errorf("sign session payload: %w", err)
	}

	encrypted, err := jwe.Encrypt(signed, jwe.WithContentEncryption(jwa.A256GCM), jwe.WithKey(jwa.DIRECT, m.encKey))
	if err != nil {
		return fmt.Errorf("encrypt session payload: %w", err)
	}

	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    string(encrypted),
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Read returns the user id of the request's session. A missing cookie, a
// wrong key, a malformed payload and an expired session all collapse to
// the same "not authenticated" answer; callers never learn which it was.
func (m *Manager) Read(c echo.Context) (int64, bool) {
	cookie, err := c.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return 0, false
	}

	signed, err := jwe.Decrypt([]byte(cookie.Value), jwe.WithKey(jwa.DIRECT, m.encKey))
	if err != nil {
		return 0, false
	}

	plain, err := jws.Verify(signed, jws.WithKey(jwa.HS256, m.signKey))
	if err != nil {
		return 0, false
	}

	var p payload
	if err := cbor.Unmarshal(plain, &p); err != nil {
		return 0, false
	}

	if p.UserID == 0 || m.now().Unix() >= p.ExpiresAt {
		return 0, false
	}

	return p.UserID, true
}

// Destroy expires the cookie. The credential record survives a logout.
func (m *Manager) Destroy(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

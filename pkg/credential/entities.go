// Package credential owns the durable per-user LMS credential record and
// the refresh logic that keeps its access token usable.
package credential

import (
	"errors"
	"time"
)

// Profile holds the display identity fields. They are refreshed only on
// re-authentication, never on a token refresh.
type Profile struct {
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// UserCredential is the single persistent record of this subsystem, keyed
// by the identity provider's stable user id. The access token must never be
// handed out without checking ExpiresAt first; a record without a refresh
// token cannot be auto-refreshed.
type UserCredential struct {
	UserID       int64     `json:"userId"`
	Domain       string    `json:"domain"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Profile      Profile   `json:"profile"`
	LastModified time.Time `json:"lastModified"`
}

// ErrNotFound is returned by a Store when no record exists for the user.
var ErrNotFound = errors.New("credential not found")

// Store persists UserCredential records. Upsert replaces token fields
// unconditionally and profile fields only when the new record carries any;
// UpdateTokens is the narrow write used by refresh and must leave profile
// and refresh token untouched. Every write bumps LastModified.
type Store interface {
	Get(userID int64) (*UserCredential, error)
	Upsert(record *UserCredential) (*UserCredential, error)
	UpdateTokens(userID int64, accessToken string, expiresAt time.Time) error
}

package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/edulock/sebdash/pkg/lms"
	"github.com/edulock/sebdash/pkg/oauth2"
)

// RefreshBuffer is the safety margin before expiry at which a token is
// refreshed proactively. A token that expires mid-request would break the
// aggregation calls that follow, so the fast path requires more remaining
// lifetime than the immediate moment.
const RefreshBuffer = 5 * time.Minute

var (
	// ErrUnknownUser means no credential record exists for the user.
	ErrUnknownUser = errors.New("no credential for user")
	// ErrExpiredNoRefresh is terminal: the token is stale and the record
	// carries no refresh token, so only re-authentication can recover.
	ErrExpiredNoRefresh = errors.New("token expired and no refresh token stored")
)

// RefreshError reports a rejected refresh grant with the provider's status.
type RefreshError struct {
	Status int
	Cause  error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh rejected with status %d: %v", e.Status, e.Cause)
}

func (e *RefreshError) Unwrap() error {
	return e.Cause
}

// ValidToken is a currently usable access token together with the LMS
// instance it belongs to.
type ValidToken struct {
	UserID      int64
	Domain      string
	AccessToken string
}

// RefreshFunc calls the remote token endpoint of the given LMS instance
// with a refresh grant.
type RefreshFunc func(ctx context.Context, domain, refreshToken string) (*oauth2.TokenResponse, error)

// LMSRefreshFunc adapts an lms.Client to a RefreshFunc.
func LMSRefreshFunc(client *lms.Client) RefreshFunc {
	return func(ctx context.Context, domain, refreshToken string) (*oauth2.TokenResponse, error) {
		return client.ForDomain(domain).RefreshToken(ctx, refreshToken)
	}
}

type RefresherOption func(*Refresher)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) RefresherOption {
	return func(r *Refresher) {
		r.now = now
	}
}

// WithRefreshBuffer overrides the proactive refresh margin.
func WithRefreshBuffer(buffer time.Duration) RefresherOption {
	return func(r *Refresher) {
		r.buffer = buffer
	}
}

// Refresher returns a currently valid access token per user, refreshing and
// persisting through the Store when the stored one is about to expire.
type Refresher struct {
	store   Store
	refresh RefreshFunc
	buffer  time.Duration
	now     func() time.Time
	group   singleflight.Group
}

func NewRefresher(store Store, refresh RefreshFunc, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		store:   store,
		refresh: refresh,
		buffer:  RefreshBuffer,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// EnsureValidToken loads the user's credential and returns its access token,
// refreshing first when less than the buffer remains. Failures are never
// recovered silently and a failed refresh is not retried within the call;
// the caller decides whether to force re-authentication. Concurrent calls
// for the same user share one refresh so the provider's single-use refresh
// token is not raced within this process.
func (r *Refresher) EnsureValidToken(ctx context.Context, userID int64) (*ValidToken, error) {
	result, err, _ := r.group.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		return r.ensure(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*ValidToken), nil
}

func (r *Refresher) ensure(ctx context.Context, userID int64) (*ValidToken, error) {
	record, err := r.store.Get(userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}

	// Fast path: enough lifetime left for the calls that follow.
	if record.ExpiresAt.Sub(r.now()) > r.buffer {
		return &ValidToken{
			UserID:      record.UserID,
			Domain:      record.Domain,
			AccessToken: record.AccessToken,
		}, nil
	}

	if record.RefreshToken == "" {
		return nil, ErrExpiredNoRefresh
	}

	tokenResponse, err := r.refresh(ctx, record.Domain, record.RefreshToken)
	if err != nil {
		var tokenErr *lms.TokenError
		if errors.As(err, &tokenErr) {
			slog.Warn("token refresh rejected by provider",
				"user_id", userID, "status", tokenErr.Status, "error", tokenErr.Cause)
			return nil, &RefreshError{Status: tokenErr.Status, Cause: tokenErr.Cause}
		}
		return nil, fmt.Errorf("call token endpoint: %w", err)
	}

	expiresAt := r.now().Add(time.Duration(tokenResponse.ExpiresIn) * time.Second)
	if err := r.store.UpdateTokens(userID, tokenResponse.AccessToken, expiresAt); err != nil {
		return nil, fmt.Errorf("persist refreshed token: %w", err)
	}

	slog.Info("access token refreshed", "user_id", userID, "expires_at", expiresAt)

	return &ValidToken{
		UserID:      record.UserID,
		Domain:      record.Domain,
		AccessToken: tokenResponse.AccessToken,
	}, nil
}

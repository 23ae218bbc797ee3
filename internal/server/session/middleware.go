// Package session turns the session cookie of an incoming request into an
// authenticated user, refreshing the upstream credentials once when the
// local token no longer verifies.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/classgate/internal/common"
	"github.com/dmitrijs2005/classgate/internal/logging"
	"github.com/dmitrijs2005/classgate/internal/server/auth"
	"github.com/dmitrijs2005/classgate/internal/server/models"
	"github.com/dmitrijs2005/classgate/internal/server/response"
	"github.com/dmitrijs2005/classgate/internal/server/upstream"
)

// Outcomes reported to the Recorder.
const (
	OutcomeAuthenticated = "authenticated"
	OutcomeRefreshed     = "refreshed"
	OutcomeRejected      = "rejected"
	OutcomeError         = "error"
)

// UserStore is the slice of user persistence the middleware needs.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
}

// Refresher exchanges an upstream refresh token for a new pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*upstream.TokenPair, error)
}

// Recorder counts authentication outcomes.
type Recorder interface {
	ObserveAuth(outcome string)
}

// Authenticator is what handlers depend on.
type Authenticator interface {
	Authenticate(w http.ResponseWriter, r *http.Request) (*models.User, error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAuth(string) {}

// Middleware authenticates requests against the session cookie and keeps
// the upstream credentials of the authenticated user fresh.
type Middleware struct {
	secret    []byte
	validity  time.Duration
	users     UserStore
	refresher Refresher
	cookies   *auth.CookieManager
	logger    logging.Logger
	recorder  Recorder
	now       func() time.Time
}

// Option configures a Middleware.
type Option func(*Middleware)

// WithClock replaces the clock used to verify and issue tokens.
func WithClock(now func() time.Time) Option {
	return func(m *Middleware) { m.now = now }
}

// WithRecorder reports every outcome to r.
func WithRecorder(r Recorder) Option {
	return func(m *Middleware) { m.recorder = r }
}

// NewMiddleware builds a Middleware signing tokens with secret that stay
// valid for validity.
func NewMiddleware(secret []byte, validity time.Duration, users UserStore, refresher Refresher,
	cookies *auth.CookieManager, logger logging.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		secret:    secret,
		validity:  validity,
		users:     users,
		refresher: refresher,
		cookies:   cookies,
		logger:    logger.With("module", "session"),
		recorder:  nopRecorder{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ Authenticator = (*Middleware)(nil)

// Authenticate runs the session state machine for r. On success it returns
// the user and may have set a refreshed cookie on w. Rejections clear the
// cookie and wrap common.ErrorUnauthorized; any other error is a lower-layer
// fault.
func (m *Middleware) Authenticate(w http.ResponseWriter, r *http.Request) (*models.User, error) {
	ctx := r.Context()

	token := m.cookies.Read(r)
	if token == "" {
		return nil, m.reject(ctx, w, errors.New("no session token"))
	}

	v := auth.Verify(token, m.secret, m.now())
	if v.Valid() {
		user, err := m.users.FindByID(ctx, v.Claims.UserID)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, m.reject(ctx, w, common.ErrUserNotFound)
		}
		if err != nil {
			return nil, m.fail(ctx, fmt.Errorf("load user: %w", err))
		}
		m.recorder.ObserveAuth(OutcomeAuthenticated)
		return user, nil
	}

	return m.attemptRefresh(ctx, w, v)
}

func (m *Middleware) attemptRefresh(ctx context.Context, w http.ResponseWriter, v auth.Verification) (*models.User, error) {
	// a mis-signed token names nobody
	if v.Claims == nil {
		return nil, m.reject(ctx, w, v.Err())
	}

	user, err := m.users.FindByID(ctx, v.Claims.UserID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, m.reject(ctx, w, common.ErrUserNotFound)
	}
	if err != nil {
		return nil, m.fail(ctx, fmt.Errorf("load user: %w", err))
	}

	if err := m.rotate(ctx, user); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil, m.reject(ctx, w, err)
		}
		return nil, m.fail(ctx, err)
	}

	token, expiresAt, err := auth.GenerateToken(user.ID, "", m.secret, m.validity, m.now())
	if err != nil {
		return nil, m.fail(ctx, fmt.Errorf("issue session token: %w", err))
	}
	user.SessionToken = token

	if err := m.users.Save(ctx, user); err != nil {
		return nil, m.fail(ctx, fmt.Errorf("save refreshed user: %w", err))
	}

	m.cookies.Issue(w, token, expiresAt)
	m.recorder.ObserveAuth(OutcomeRefreshed)
	m.logger.Debug(ctx, "session refreshed", "user_id", user.ID)

	return user, nil
}

// RotateUpstream refreshes and persists the user's upstream pair without
// touching the local session token. It is the recovery step for upstream
// calls rejected with 401. A missing or rejected refresh token wraps
// common.ErrorUnauthorized.
func (m *Middleware) RotateUpstream(ctx context.Context, user *models.User) error {
	if err := m.rotate(ctx, user); err != nil {
		return err
	}
	if err := m.users.Save(ctx, user); err != nil {
		return fmt.Errorf("save rotated user: %w", err)
	}
	return nil
}

// rotate performs the single refresh call and updates user in memory.
func (m *Middleware) rotate(ctx context.Context, user *models.User) error {
	if user.UpstreamRefreshToken == "" {
		return fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrInvalidToken)
	}

	pair, err := m.refresher.Refresh(ctx, user.UpstreamRefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrRefreshFailed) {
			return fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
		}
		return fmt.Errorf("upstream refresh: %w", err)
	}

	user.SetUpstreamTokens(pair.AccessToken, pair.RefreshToken)
	return nil
}

// Require rejects unauthenticated requests with 401 and passes the user to
// next through the request context.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.Authenticate(w, r)
		if err != nil {
			if errors.Is(err, common.ErrorUnauthorized) {
				response.Unauthorized(w)
				return
			}
			response.Internal(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// Clear expires the session cookie on w.
func (m *Middleware) Clear(w http.ResponseWriter) {
	m.cookies.Clear(w)
}

func (m *Middleware) reject(ctx context.Context, w http.ResponseWriter, cause error) error {
	m.cookies.Clear(w)
	m.recorder.ObserveAuth(OutcomeRejected)
	m.logger.Debug(ctx, "session rejected", "reason", cause)
	if errors.Is(cause, common.ErrorUnauthorized) {
		return cause
	}
	return fmt.Errorf("%w: %w", common.ErrorUnauthorized, cause)
}

func (m *Middleware) fail(ctx context.Context, err error) error {
	m.recorder.ObserveAuth(OutcomeError)
	m.logger.Error(ctx, "session lookup failed", "error", err)
	return err
}

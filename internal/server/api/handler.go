// Package api is the HTTP surface of classgate: student authentication,
// enrollment, the upstream pass-through and the admin console.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/classgate/internal/logging"
	"github.com/dmitrijs2005/classgate/internal/server/auth"
	"github.com/dmitrijs2005/classgate/internal/server/models"
	"github.com/dmitrijs2005/classgate/internal/server/services"
)

type UserService interface {
	RequestOTP(ctx context.Context, phone string) error
	Login(ctx context.Context, phone, otp string) (*services.LoginResult, error)
	Logout(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int, error)
	Enroll(ctx context.Context, userID, batchID string) (*models.User, error)
	Unenroll(ctx context.Context, userID, batchID string) (*models.User, error)
}

type BatchService interface {
	Create(ctx context.Context, b *models.Batch) (*models.Batch, error)
	Get(ctx context.Context, id string) (*models.Batch, error)
	List(ctx context.Context) ([]*models.Batch, error)
	Update(ctx context.Context, id string, b *models.Batch) (*models.Batch, error)
	Delete(ctx context.Context, id string) error
}

type AdminService interface {
	Login(ctx context.Context, username, password string) (string, time.Time, error)
	VerifyToken(token string) (*auth.Claims, error)
}

type ConfigService interface {
	Get(ctx context.Context) (*models.ServerConfig, error)
	Update(ctx context.Context, c *models.ServerConfig) (*models.ServerConfig, error)
}

type ProxyService interface {
	Fetch(ctx context.Context, user *models.User, batchID, resource string, query url.Values) (json.RawMessage, error)
}

// SessionGuard protects student routes and drops the session cookie.
type SessionGuard interface {
	Require(next http.Handler) http.Handler
	Clear(w http.ResponseWriter)
}

// HealthReporter reports the last database probe result.
type HealthReporter interface {
	Serving(ctx context.Context) bool
}

// Instrumentation is optional request metrics.
type Instrumentation interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

type Handler struct {
	users   UserService
	batches BatchService
	admins  AdminService
	config  ConfigService
	proxy   ProxyService

	session        SessionGuard
	sessionCookies *auth.CookieManager
	adminCookies   *auth.CookieManager

	health  HealthReporter
	metrics Instrumentation
	logger  logging.Logger
}

// Deps bundles what NewHandler needs. Health and Metrics may be nil.
type Deps struct {
	Users          UserService
	Batches        BatchService
	Admins         AdminService
	Config         ConfigService
	Proxy          ProxyService
	Session        SessionGuard
	SessionCookies *auth.CookieManager
	AdminCookies   *auth.CookieManager
	Health         HealthReporter
	Metrics        Instrumentation
	Logger         logging.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		users:          d.Users,
		batches:        d.Batches,
		admins:         d.Admins,
		config:         d.Config,
		proxy:          d.Proxy,
		session:        d.Session,
		sessionCookies: d.SessionCookies,
		adminCookies:   d.AdminCookies,
		health:         d.Health,
		metrics:        d.Metrics,
		logger:         d.Logger.With("module", "api"),
	}
}

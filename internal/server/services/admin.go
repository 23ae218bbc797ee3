package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/classgate/internal/common"
	"github.com/dmitrijs2005/classgate/internal/dbx"
	"github.com/dmitrijs2005/classgate/internal/logging"
	"github.com/dmitrijs2005/classgate/internal/server/auth"
	"github.com/dmitrijs2005/classgate/internal/server/config"
	"github.com/dmitrijs2005/classgate/internal/server/models"
	"github.com/dmitrijs2005/classgate/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is compared against when the username is unknown so both
// failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("classgate-dummy-password"), bcrypt.DefaultCost)

// AdminService authenticates admin console users. Unlike student sessions
// there is no refresh step: an expired admin token means logging in again.
type AdminService struct {
	db          dbx.Provider
	repomanager repomanager.RepositoryManager
	jwtSecret   []byte
	validity    time.Duration
	cost        int
	logger      logging.Logger
	now         func() time.Time
}

func NewAdminService(db dbx.Provider, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *AdminService {
	return &AdminService{
		db:          db,
		repomanager: m,
		jwtSecret:   []byte(cfg.AdminSecretKey),
		validity:    cfg.AdminTokenValidityDuration,
		cost:        bcrypt.DefaultCost,
		logger:      logger.With("module", "admins"),
		now:         time.Now,
	}
}

// CreateAdmin stores a new admin with a bcrypt hash of password.
func (s *AdminService) CreateAdmin(ctx context.Context, username, password string) (*models.Admin, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	db, err := s.db.DB(ctx)
	if err != nil {
		return nil, err
	}

	a := &models.Admin{ID: uuid.NewString(), Username: username, PasswordHash: hash}
	if err := s.repomanager.Admins(db).Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "admin created", "admin_id", a.ID, "username", username)
	return a, nil
}

// Login checks the credentials and returns an admin token and its expiry.
// Unknown users and wrong passwords both yield common.ErrInvalidCredentials.
func (s *AdminService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	db, err := s.db.DB(ctx)
	if err != nil {
		return "", time.Time{}, err
	}

	a, err := s.repomanager.Admins(db).FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return "", time.Time{}, common.ErrInvalidCredentials
		}
		return "", time.Time{}, err
	}

	if err := bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)); err != nil {
		s.logger.Warn(ctx, "admin login failed", "username", username)
		return "", time.Time{}, common.ErrInvalidCredentials
	}

	token, expiresAt, err := auth.GenerateToken(a.ID, common.AdminRole, s.jwtSecret, s.validity, s.now())
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue admin token: %w", err)
	}

	return token, expiresAt, nil
}

// VerifyToken accepts only valid, unexpired tokens carrying the admin role.
func (s *AdminService) VerifyToken(token string) (*auth.Claims, error) {
	v := auth.Verify(token, s.jwtSecret, s.now())
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, v.Err())
	}
	if v.Claims.Role != common.AdminRole {
		return nil, fmt.Errorf("%w: not an admin token", common.ErrorUnauthorized)
	}
	return v.Claims, nil
}

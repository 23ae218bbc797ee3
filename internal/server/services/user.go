// Package services contains server-side business logic. This file implements
// UserService: phone/OTP login, logout and the student's batch enrollments.
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
	usersrepo "github.com/dmitrijs2005/classgate/internal/server/repositories/users"
	"github.com/dmitrijs2005/classgate/internal/server/upstream"
	"github.com/dmitrijs2005/classgate/internal/server/verification"
)

// OTPClient is the upstream half of the OTP login.
type OTPClient interface {
	RequestOTP(ctx context.Context, phone string) (string, error)
	VerifyOTP(ctx context.Context, phone, otp, sessionID string) (*upstream.TokenPair, error)
}

// OTPStore tracks pending verifications between the two login steps.
type OTPStore interface {
	AllowRequest(ctx context.Context, phone string) error
	Save(ctx context.Context, phone, sessionID string) error
	Attempt(ctx context.Context, phone string) (*verification.Pending, error)
	Delete(ctx context.Context, phone string) error
}

// LoginResult is a freshly logged in user and the session token to set.
type LoginResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

type UserService struct {
	db          dbx.Provider
	repomanager repomanager.RepositoryManager
	otp         OTPClient
	otps        OTPStore
	jwtSecret   []byte
	validity    time.Duration
	logger      logging.Logger
	now         func() time.Time
}

func NewUserService(db dbx.Provider, m repomanager.RepositoryManager, otp OTPClient, otps OTPStore,
	cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		otp:         otp,
		otps:        otps,
		jwtSecret:   []byte(cfg.SecretKey),
		validity:    cfg.SessionTokenValidityDuration,
		logger:      logger.With("module", "users"),
		now:         time.Now,
	}
}

// RequestOTP throttles per phone, asks upstream to send a code and remembers
// the verification session.
func (s *UserService) RequestOTP(ctx context.Context, phone string) error {
	if err := s.otps.AllowRequest(ctx, phone); err != nil {
		return err
	}

	sessionID, err := s.otp.RequestOTP(ctx, phone)
	if err != nil {
		return fmt.Errorf("error requesting otp: %w", err)
	}

	if err := s.otps.Save(ctx, phone, sessionID); err != nil {
		return fmt.Errorf("error saving verification: %w", err)
	}

	return nil
}

// Login verifies the code with upstream, creates the account on first login,
// stores the upstream pair and issues a session token.
func (s *UserService) Login(ctx context.Context, phone, otp string) (*LoginResult, error) {
	pending, err := s.otps.Attempt(ctx, phone)
	if err != nil {
		if errors.Is(err, common.ErrOTPExpired) {
			return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
		}
		return nil, err
	}

	pair, err := s.otp.VerifyOTP(ctx, phone, otp, pending.SessionID)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
		}
		return nil, fmt.Errorf("error verifying otp: %w", err)
	}

	if err := s.otps.Delete(ctx, phone); err != nil {
		s.logger.Warn(ctx, "failed to drop verification", "error", err)
	}

	db, err := s.db.DB(ctx)
	if err != nil {
		return nil, err
	}

	var result *LoginResult
	for attempt := 0; attempt < 2; attempt++ {
		err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			var txErr error
			result, txErr = s.upsertLogin(ctx, tx, phone, pair)
			return txErr
		})
		// two first logins for the same phone race on the unique index
		if !errors.Is(err, common.ErrAlreadyExists) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user logged in", "user_id", result.User.ID)
	return result, nil
}

func (s *UserService) upsertLogin(ctx context.Context, tx dbx.DBTX, phone string, pair *upstream.TokenPair) (*LoginResult, error) {
	repo := s.repomanager.Users(tx)

	user, err := repo.FindByPhone(ctx, phone)
	if errors.Is(err, common.ErrorNotFound) {
		user, err = repo.Create(ctx, &models.User{PhoneNumber: phone})
	}
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := auth.GenerateToken(user.ID, "", s.jwtSecret, s.validity, s.now())
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	user.SetUpstreamTokens(pair.AccessToken, pair.RefreshToken)
	user.SessionToken = token
	user.HasLoggedIn = true

	if err := repo.Save(ctx, user); err != nil {
		return nil, err
	}

	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout forgets the session token and the upstream pair.
func (s *UserService) Logout(ctx context.Context, user *models.User) error {
	user.ClearSession()
	return s.Save(ctx, user)
}

func (s *UserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	repo, err := s.users(ctx)
	if err != nil {
		return nil, err
	}
	return repo.FindByID(ctx, id)
}

func (s *UserService) Save(ctx context.Context, user *models.User) error {
	repo, err := s.users(ctx)
	if err != nil {
		return err
	}
	return repo.Save(ctx, user)
}

// ListUsers returns one page of users and the total count.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	repo, err := s.users(ctx)
	if err != nil {
		return nil, 0, err
	}

	list, err := repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

// Enroll adds an active catalogue batch to the user's set. Unknown or
// inactive batches are ErrorNotFound; a repeat is ErrAlreadyExists. Only the
// enrollment column is written so a concurrent token rotation survives.
func (s *UserService) Enroll(ctx context.Context, userID, batchID string) (*models.User, error) {
	db, err := s.db.DB(ctx)
	if err != nil {
		return nil, err
	}

	batch, err := s.repomanager.Batches(db).FindByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !batch.Active {
		return nil, common.ErrorNotFound
	}

	repo := s.repomanager.Users(db)
	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !user.Enroll(models.EnrolledBatch{BatchID: batch.BatchID, Name: batch.Name}) {
		return nil, common.ErrAlreadyExists
	}
	if err := repo.SaveEnrollments(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *UserService) Unenroll(ctx context.Context, userID, batchID string) (*models.User, error) {
	repo, err := s.users(ctx)
	if err != nil {
		return nil, err
	}

	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Unenroll(batchID) {
		return nil, common.ErrorNotFound
	}
	if err := repo.SaveEnrollments(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *UserService) users(ctx context.Context) (usersrepo.Repository, error) {
	db, err := s.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	return s.repomanager.Users(db), nil
}

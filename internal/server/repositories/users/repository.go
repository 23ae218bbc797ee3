// Package users persists student accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/classgate/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	// Save writes every mutable field of user. Last write wins.
	Save(ctx context.Context, user *models.User) error
	// SaveEnrollments writes only user.EnrolledBatches, leaving the token
	// columns to whoever rotated them last.
	SaveEnrollments(ctx context.Context, user *models.User) error
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
}

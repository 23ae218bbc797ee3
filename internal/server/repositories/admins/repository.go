// Package admins persists admin console accounts.
package admins

import (
	"context"

	"github.com/dmitrijs2005/classgate/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, a *models.Admin) error
	FindByUsername(ctx context.Context, username string) (*models.Admin, error)
}

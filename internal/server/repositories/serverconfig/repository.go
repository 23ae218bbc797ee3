// Package serverconfig persists the singleton runtime settings document.
package serverconfig

import (
	"context"

	"github.com/dmitrijs2005/classgate/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context) (*models.ServerConfig, error)
	Upsert(ctx context.Context, c *models.ServerConfig) error
}

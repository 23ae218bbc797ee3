// Package batches persists the catalogue of batches students may enroll in.
package batches

import (
	"context"

	"github.com/dmitrijs2005/classgate/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, b *models.Batch) (*models.Batch, error)
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	FindByBatchID(ctx context.Context, batchID string) (*models.Batch, error)
	List(ctx context.Context) ([]*models.Batch, error)
	Update(ctx context.Context, b *models.Batch) error
	Delete(ctx context.Context, id string) error
}

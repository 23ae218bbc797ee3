package services

import (
	"context"

	"github.com/dmitrijs2005/classgate/internal/dbx"
	"github.com/dmitrijs2005/classgate/internal/server/models"
	"github.com/dmitrijs2005/classgate/internal/server/repositories/batches"
	"github.com/dmitrijs2005/classgate/internal/server/repositories/repomanager"
)

// BatchService manages the batch catalogue for the admin console.
type BatchService struct {
	db          dbx.Provider
	repomanager repomanager.RepositoryManager
}

func NewBatchService(db dbx.Provider, m repomanager.RepositoryManager) *BatchService {
	return &BatchService{db: db, repomanager: m}
}

func (s *BatchService) repo(ctx context.Context) (batches.Repository, error) {
	db, err := s.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	return s.repomanager.Batches(db), nil
}

func (s *BatchService) Create(ctx context.Context, b *models.Batch) (*models.Batch, error) {
	repo, err := s.repo(ctx)
	if err != nil {
		return nil, err
	}
	return repo.Create(ctx, b)
}

func (s *BatchService) Get(ctx context.Context, id string) (*models.Batch, error) {
	repo, err := s.repo(ctx)
	if err != nil {
		return nil, err
	}
	return repo.FindByID(ctx, id)
}

func (s *BatchService) List(ctx context.Context) ([]*models.Batch, error) {
	repo, err := s.repo(ctx)
	if err != nil {
		return nil, err
	}
	return repo.List(ctx)
}

// Update overwrites the editable fields of batch id.
func (s *BatchService) Update(ctx context.Context, id string, b *models.Batch) (*models.Batch, error) {
	repo, err := s.repo(ctx)
	if err != nil {
		return nil, err
	}

	current, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	current.BatchID = b.BatchID
	current.Name = b.Name
	current.Description = b.Description
	current.Active = b.Active

	if err := repo.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// Delete removes a batch from the catalogue. Existing enrollments keep
// their copy of the batch id and name.
func (s *BatchService) Delete(ctx context.Context, id string) error {
	repo, err := s.repo(ctx)
	if err != nil {
		return err
	}
	return repo.Delete(ctx, id)
}

package services

import (
	"context"

	"github.com/dmitrijs2005/classgate/internal/dbx"
	"github.com/dmitrijs2005/classgate/internal/server/models"
	"github.com/dmitrijs2005/classgate/internal/server/repositories/repomanager"
)

type ServerConfigService struct {
	db          dbx.Provider
	repomanager repomanager.RepositoryManager
}

func NewServerConfigService(db dbx.Provider, m repomanager.RepositoryManager) *ServerConfigService {
	return &ServerConfigService{db: db, repomanager: m}
}

func (s *ServerConfigService) Get(ctx context.Context) (*models.ServerConfig, error) {
	db, err := s.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	return s.repomanager.ServerConfig(db).Get(ctx)
}

func (s *ServerConfigService) Update(ctx context.Context, c *models.ServerConfig) (*models.ServerConfig, error) {
	db, err := s.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.repomanager.ServerConfig(db).Upsert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

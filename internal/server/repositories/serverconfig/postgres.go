package serverconfig

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/classgate/internal/dbx"
	"github.com/dmitrijs2005/classgate/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the stored document, or zero settings when none was written.
func (r *PostgresRepository) Get(ctx context.Context) (*models.ServerConfig, error) {
	query :=
		`SELECT maintenance_mode, min_app_version, banner, updated_at FROM server_config
		 WHERE id = 1
		 `

	c := &models.ServerConfig{}
	err := r.db.QueryRowContext(ctx, query).Scan(&c.MaintenanceMode, &c.MinAppVersion, &c.Banner, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.ServerConfig{}, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return c, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, c *models.ServerConfig) error {
	query :=
		`INSERT INTO server_config (id, maintenance_mode, min_app_version, banner, updated_at)
		 VALUES (1, $1, $2, $3, now())
		 ON CONFLICT (id) DO UPDATE
		 SET maintenance_mode = EXCLUDED.maintenance_mode, min_app_version = EXCLUDED.min_app_version,
		     banner = EXCLUDED.banner, updated_at = EXCLUDED.updated_at
		 RETURNING updated_at
		 `

	if err := r.db.QueryRowContext(ctx, query, c.MaintenanceMode, c.MinAppVersion, c.Banner).Scan(&c.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

package batches

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/classgate/internal/common"
	"github.com/dmitrijs2005/classgate/internal/dbx"
	"github.com/dmitrijs2005/classgate/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, b *models.Batch) (*models.Batch, error) {
	query :=
		`INSERT INTO batches (batch_id, name, description, active)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, b.BatchID, b.Name, b.Description, b.Active).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, mapWriteError(err)
	}

	return b, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	query :=
		`SELECT id, batch_id, name, description, active, created_at, updated_at FROM batches
		 WHERE id = $1
		 `
	return scanBatch(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) FindByBatchID(ctx context.Context, batchID string) (*models.Batch, error) {
	query :=
		`SELECT id, batch_id, name, description, active, created_at, updated_at FROM batches
		 WHERE batch_id = $1
		 `
	return scanBatch(r.db.QueryRowContext(ctx, query, batchID))
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.Batch, error) {
	query :=
		`SELECT id, batch_id, name, description, active, created_at, updated_at FROM batches
		 ORDER BY name, batch_id
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Batch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, b *models.Batch) error {
	if _, err := uuid.Parse(b.ID); err != nil {
		return common.ErrorNotFound
	}

	query :=
		`UPDATE batches
		 SET batch_id = $2, name = $3, description = $4, active = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, b.ID, b.BatchID, b.Name, b.Description, b.Active).Scan(&b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return mapWriteError(err)
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrorNotFound
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM batches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (*models.Batch, error) {
	b := &models.Batch{}
	err := row.Scan(&b.ID, &b.BatchID, &b.Name, &b.Description, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return b, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return common.ErrAlreadyExists
	}
	return fmt.Errorf("db error: %w", err)
}

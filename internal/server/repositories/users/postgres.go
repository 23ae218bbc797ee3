package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/classgate/internal/common"
	"github.com/dmitrijs2005/classgate/internal/dbx"
	"github.com/dmitrijs2005/classgate/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

const selectColumns = `id, phone_number, session_token, upstream_access_token, upstream_refresh_token,
		        enrolled_batches, has_logged_in, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	batches, err := encodeBatches(user.EnrolledBatches)
	if err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO users (phone_number, enrolled_batches, has_logged_in)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at
		 `

	err = r.db.QueryRowContext(ctx, query, user.PhoneNumber, batches, user.HasLoggedIn).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	query := `SELECT ` + selectColumns + ` FROM users
		 WHERE id = $1
		 `
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	query := `SELECT ` + selectColumns + ` FROM users
		 WHERE phone_number = $1
		 `
	return scanUser(r.db.QueryRowContext(ctx, query, phone))
}

func (r *PostgresRepository) Save(ctx context.Context, user *models.User) error {
	batches, err := encodeBatches(user.EnrolledBatches)
	if err != nil {
		return err
	}

	// both upstream tokens go out in the same statement
	query :=
		`UPDATE users
		 SET session_token = $2, upstream_access_token = $3, upstream_refresh_token = $4,
		     enrolled_batches = $5, has_logged_in = $6, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	err = r.db.QueryRowContext(ctx, query,
		user.ID,
		nullString(user.SessionToken),
		nullString(user.UpstreamAccessToken),
		nullString(user.UpstreamRefreshToken),
		batches,
		user.HasLoggedIn,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) SaveEnrollments(ctx context.Context, user *models.User) error {
	batches, err := encodeBatches(user.EnrolledBatches)
	if err != nil {
		return err
	}

	query :=
		`UPDATE users
		 SET enrolled_batches = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at
		 `

	err = r.db.QueryRowContext(ctx, query, user.ID, batches).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + selectColumns + ` FROM users
		 ORDER BY created_at, id
		 LIMIT $1 OFFSET $2
		 `

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u                            models.User
		session, upAccess, upRefresh sql.NullString
		batches                      []byte
	)

	err := row.Scan(&u.ID, &u.PhoneNumber, &session, &upAccess, &upRefresh,
		&batches, &u.HasLoggedIn, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	u.SessionToken = session.String
	u.SetUpstreamTokens(upAccess.String, upRefresh.String)

	if len(batches) > 0 {
		if err := json.Unmarshal(batches, &u.EnrolledBatches); err != nil {
			return nil, fmt.Errorf("decode enrolled batches: %w", err)
		}
	}

	return &u, nil
}

func encodeBatches(b []models.EnrolledBatch) ([]byte, error) {
	if b == nil {
		b = []models.EnrolledBatch{}
	}
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode enrolled batches: %w", err)
	}
	return data, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

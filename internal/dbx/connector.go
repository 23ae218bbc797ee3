package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/singleflight"
)

// ErrConnectorClosed is returned by DB after Close.
var ErrConnectorClosed = errors.New("database connector closed")

// DefaultOpenTimeout bounds one connect-and-migrate attempt.
const DefaultOpenTimeout = 30 * time.Second

// OpenFunc establishes a ready-to-use connection pool.
type OpenFunc func(ctx context.Context) (*sql.DB, error)

// MigrateFunc brings the schema up to date on a fresh pool.
type MigrateFunc func(ctx context.Context, db *sql.DB) error

// Connector owns the process-wide *sql.DB. The pool is established on the
// first DB call; concurrent first callers share one in-flight attempt and
// receive the same handle. A failed attempt is not remembered, so the next
// caller retries. The attempt is detached from the cancellation of whichever
// caller started it; each caller only stops waiting when its own ctx ends.
type Connector struct {
	open        OpenFunc
	openTimeout time.Duration
	group       singleflight.Group

	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

func NewConnector(open OpenFunc) *Connector {
	return &Connector{open: open, openTimeout: DefaultOpenTimeout}
}

// PostgresOpener opens dsn with the pgx stdlib driver, pings it and runs
// migrate (when non-nil) before handing the pool out.
func PostgresOpener(dsn string, migrate MigrateFunc) OpenFunc {
	return func(ctx context.Context) (*sql.DB, error) {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("db open error: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db ping error: %w", err)
		}
		if migrate != nil {
			if err := migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("migration error: %w", err)
			}
		}
		return db, nil
	}
}

// DB returns the shared pool, establishing it if needed.
func (c *Connector) DB(ctx context.Context) (*sql.DB, error) {
	c.mu.RLock()
	db, closed := c.db, c.closed
	c.mu.RUnlock()

	if closed {
		return nil, ErrConnectorClosed
	}
	if db != nil {
		return db, nil
	}

	ch := c.group.DoChan("db", func() (any, error) {
		c.mu.RLock()
		existing := c.db
		c.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		openCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.openTimeout)
		defer cancel()

		db, err := c.open(openCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			_ = db.Close()
			return nil, ErrConnectorClosed
		}
		c.db = db
		return db, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*sql.DB), nil
	}
}

// Ping connects on first use and then pings the pool.
func (c *Connector) Ping(ctx context.Context) error {
	db, err := c.DB(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close releases the pool. Subsequent DB calls fail with ErrConnectorClosed.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Provider hands out the pool. *Connector is the production implementation.
type Provider interface {
	DB(ctx context.Context) (*sql.DB, error)
}

type staticProvider struct{ db *sql.DB }

func (p staticProvider) DB(context.Context) (*sql.DB, error) { return p.db, nil }

// Static wraps an already open pool as a Provider.
func Static(db *sql.DB) Provider { return staticProvider{db: db} }

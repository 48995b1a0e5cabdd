package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ParseIsoLevel maps the PG_ISOLATION setting to a pgx isolation level.
func ParseIsoLevel(s string) (pgx.TxIsoLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "repeatable_read":
		return pgx.RepeatableRead, nil
	case "read_committed":
		return pgx.ReadCommitted, nil
	case "serializable":
		return pgx.Serializable, nil
	default:
		return "", fmt.Errorf("platform/db: unknown isolation level %q", s)
	}
}

// WithTx executes fn inside a transaction at the given isolation level. The
// transaction is rolled back whenever fn fails or the commit fails, so callers
// never observe partial writes.
func WithTx(ctx context.Context, pool *pgxpool.Pool, iso pgx.TxIsoLevel, fn func(pgx.Tx) error) error {
	if iso == "" {
		iso = pgx.RepeatableRead
	}
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: iso})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

func asPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

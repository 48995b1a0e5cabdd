package shared

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	keys    map[string]bool
	deleted int64
}

func (f *fakeExec) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	switch {
	case strings.HasPrefix(sql, "INSERT"):
		key := args[0].(string)
		if f.keys[key] {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"}
		}
		f.keys[key] = true
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.Contains(sql, "created_at <"):
		return pgconn.NewCommandTag("DELETE 3"), nil
	default:
		delete(f.keys, args[0].(string))
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
}

func TestIdempotencyStore(t *testing.T) {
	db := &fakeExec{keys: map[string]bool{}}
	store := NewIdempotencyStore(db)
	ctx := context.Background()

	require.NoError(t, store.CheckAndInsert(ctx, "abc", "stock.in"))
	err := store.CheckAndInsert(ctx, "abc", "stock.in")
	require.ErrorIs(t, err, ErrIdempotencyConflict)
	require.True(t, errors.Is(err, ErrConflict))

	require.NoError(t, store.CheckAndInsert(ctx, "abc", "stock.out"))
	require.NoError(t, store.Release(ctx, "abc", "stock.in"))
	require.NoError(t, store.CheckAndInsert(ctx, "abc", "stock.in"))

	n, err := store.Purge(ctx, time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	require.Error(t, store.CheckAndInsert(ctx, "", "stock.in"))
}

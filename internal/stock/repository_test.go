package stock

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

func TestClassifyTxError(t *testing.T) {
	wrap := func(code, constraint string) error {
		return fmt.Errorf("apply delta: %w", &pgconn.PgError{Code: code, ConstraintName: constraint})
	}

	require.NoError(t, classifyTxError(nil))
	require.ErrorIs(t, classifyTxError(wrap("40001", "")), ErrConcurrentUpdate)
	require.ErrorIs(t, classifyTxError(wrap("23514", balanceConstraint)), ErrOvercommit)

	other := classifyTxError(wrap("23514", "stock_in_lines_count_check"))
	require.NotErrorIs(t, other, ErrOvercommit)
	require.NotErrorIs(t, other, shared.ErrConflict)

	fk := classifyTxError(wrap("23503", "stock_in_lines_vendor_id_fkey"))
	require.ErrorIs(t, fk, shared.ErrValidation)
	require.Contains(t, fk.Error(), "stock_in_lines_vendor_id_fkey")

	plain := errors.New("connection reset")
	require.Equal(t, plain, classifyTxError(plain))
}

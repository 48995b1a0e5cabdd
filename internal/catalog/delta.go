package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-stock/internal/platform/db"
)

// ProductDelta is the only way stock counters change. Quantities are added to
// the stored value; LatestCost, LatestPrice and ProductCode overwrite it when
// set. RequireAvailable rejects the update if balance would go negative.
type ProductDelta struct {
	BalanceDelta     int64
	PendingInDelta   int64
	PendingOutDelta  int64
	LatestCost       *decimal.Decimal
	LatestPrice      *decimal.Decimal
	ProductCode      *string
	RequireAvailable bool
}

// Merge folds other into d. Later overwrite values win.
func (d ProductDelta) Merge(other ProductDelta) ProductDelta {
	d.BalanceDelta += other.BalanceDelta
	d.PendingInDelta += other.PendingInDelta
	d.PendingOutDelta += other.PendingOutDelta
	if other.LatestCost != nil {
		d.LatestCost = other.LatestCost
	}
	if other.LatestPrice != nil {
		d.LatestPrice = other.LatestPrice
	}
	if other.ProductCode != nil {
		d.ProductCode = other.ProductCode
	}
	d.RequireAvailable = d.RequireAvailable || other.RequireAvailable
	return d
}

// IsZero reports whether applying d would change nothing.
func (d ProductDelta) IsZero() bool {
	return d.BalanceDelta == 0 && d.PendingInDelta == 0 && d.PendingOutDelta == 0 &&
		d.LatestCost == nil && d.LatestPrice == nil && d.ProductCode == nil
}

const applyDeltaSQL = `UPDATE products SET
	balance = balance + $2,
	pending_in = pending_in + $3,
	pending_out = pending_out + $4,
	latest_cost = COALESCE($5::numeric, latest_cost),
	latest_price = COALESCE($6::numeric, latest_price),
	product_code = COALESCE($7::text, product_code),
	updated_at = NOW()
WHERE id = $1 AND (NOT $8::boolean OR balance + $2 >= 0)`

// ApplyDelta applies d to one product row using q, which is normally the
// transaction that owns the document mutation.
func ApplyDelta(ctx context.Context, q db.Querier, productID int64, d ProductDelta) error {
	if d.IsZero() {
		return nil
	}
	tag, err := q.Exec(ctx, applyDeltaSQL,
		productID, d.BalanceDelta, d.PendingInDelta, d.PendingOutDelta,
		nullDecimal(d.LatestCost), nullDecimal(d.LatestPrice), nullString(d.ProductCode), d.RequireAvailable)
	if err != nil {
		return fmt.Errorf("catalog: apply delta to product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		if d.RequireAvailable {
			var exists bool
			if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
				return fmt.Errorf("catalog: apply delta to product %d: %w", productID, err)
			}
			if exists {
				return fmt.Errorf("%w: product %d", ErrInsufficientStock, productID)
			}
		}
		return fmt.Errorf("%w %d", ErrProductNotFound, productID)
	}
	return nil
}

func nullDecimal(v *decimal.Decimal) any {
	if v == nil {
		return nil
	}
	return v.String()
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

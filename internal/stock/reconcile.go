package stock

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// PendingDrift reports a product whose pending counter disagrees with its
// draft lines.
type PendingDrift struct {
	ProductID int64
	Kind      Kind
	Stored    int64
	Expected  int64
}

// TotalDrift reports a document whose total disagrees with its lines.
type TotalDrift struct {
	Kind     Kind
	ID       int64
	Stored   decimal.Decimal
	Expected decimal.Decimal
}

// Soft-deleted drafts keep their pending contribution, so they are counted.
const pendingDriftSQL = `WITH draft AS (
	SELECT l.product_id, SUM(l.count) AS qty FROM %[1]s l
	JOIN %[2]s d ON d.id = l.%[3]s
	WHERE d.status = 'DRAFT'
	GROUP BY l.product_id
)
SELECT p.id, p.%[4]s, COALESCE(draft.qty, 0)
FROM products p LEFT JOIN draft ON draft.product_id = p.id
WHERE p.%[4]s <> COALESCE(draft.qty, 0)
ORDER BY p.id`

const totalDriftSQL = `SELECT d.id, d.total_amount, COALESCE(SUM(l.count * l.%[3]s), 0)
FROM %[1]s d LEFT JOIN %[2]s l ON l.%[4]s = d.id
GROUP BY d.id, d.total_amount
HAVING d.total_amount <> COALESCE(SUM(l.count * l.%[3]s), 0)
ORDER BY d.id`

// PendingDrift lists products whose pending_in or pending_out counter differs
// from the sum of draft line counts of kind.
func (r *Repository) PendingDrift(ctx context.Context, kind Kind) ([]PendingDrift, error) {
	t := kind.tables()
	column := "pending_in"
	if kind == KindOut {
		column = "pending_out"
	}
	rows, err := r.pool.Query(ctx, fmt.Sprintf(pendingDriftSQL, t.lines, t.doc, t.fk, column))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PendingDrift
	for rows.Next() {
		d := PendingDrift{Kind: kind}
		if err := rows.Scan(&d.ProductID, &d.Stored, &d.Expected); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TotalDrift lists documents of kind whose total_amount differs from
// Σ count × unit value of their lines.
func (r *Repository) TotalDrift(ctx context.Context, kind Kind) ([]TotalDrift, error) {
	t := kind.tables()
	rows, err := r.pool.Query(ctx, fmt.Sprintf(totalDriftSQL, t.doc, t.lines, t.value, t.fk))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TotalDrift
	for rows.Next() {
		d := TotalDrift{Kind: kind}
		if err := rows.Scan(&d.ID, &d.Stored, &d.Expected); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

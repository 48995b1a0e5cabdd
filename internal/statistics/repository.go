package statistics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the statistics queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// HotSales ranks products by Σ price × count over completed, live stock-outs
// completed within [from, to].
func (r *Repository) HotSales(ctx context.Context, from, to time.Time, limit int) ([]HotSale, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.name, v.id, v.name, SUM(l.count), SUM(l.price * l.count) AS total
		FROM stock_out_lines l
		JOIN stock_outs so ON so.id = l.stock_out_id
		JOIN products p ON p.id = l.product_id
		JOIN vendors v ON v.id = p.vendor_id
		WHERE so.status = 'COMPLETED' AND so.deleted_at IS NULL
			AND so.completed_at >= $1 AND so.completed_at <= $2
		GROUP BY p.id, p.name, v.id, v.name
		ORDER BY total DESC, p.id
		LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("statistics: hot sales: %w", err)
	}
	defer rows.Close()

	out := []HotSale{}
	for rows.Next() {
		var h HotSale
		if err := rows.Scan(&h.ProductID, &h.ProductName, &h.VendorID, &h.VendorName, &h.Count, &h.TotalAmount); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-stock/internal/catalog"
	"github.com/odyssey-erp/odyssey-stock/internal/platform/db"
	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// balanceConstraint is the CHECK keeping products.balance non-negative.
const balanceConstraint = "products_balance_check"

// ErrConcurrentUpdate indicates the transaction lost a serialization race.
var ErrConcurrentUpdate = fmt.Errorf("%w: concurrent update, retry the request", shared.ErrConflict)

// tables holds the per-kind table and column names.
type tables struct {
	doc   string
	lines string
	fk    string
	value string
}

func (k Kind) tables() tables {
	if k == KindOut {
		return tables{doc: "stock_outs", lines: "stock_out_lines", fk: "stock_out_id", value: "price"}
	}
	return tables{doc: "stock_ins", lines: "stock_in_lines", fk: "stock_in_id", value: "cost"}
}

const documentColumns = `id, remark, status, total_amount, completed_at, deleted_at, version, created_at, updated_at`

// Repository persists stock documents in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	iso  pgx.TxIsoLevel
}

// NewRepository constructs Repository. iso is the isolation level used by WithTx.
func NewRepository(pool *pgxpool.Pool, iso pgx.TxIsoLevel) *Repository {
	return &Repository{pool: pool, iso: iso}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside one transaction. Constraint and
// serialization failures are classified by classifyTxError.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return classifyTxError(db.WithTx(ctx, r.pool, r.iso, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	}))
}

// classifyTxError maps serialization failures to ErrConcurrentUpdate, a
// negative product balance to ErrOvercommit and a vendor or product removed
// mid-request to a validation error. Anything else is returned unchanged.
func classifyTxError(err error) error {
	switch {
	case db.IsSerializationFailure(err):
		return fmt.Errorf("%w: %v", ErrConcurrentUpdate, err)
	case db.IsCheckViolation(err) && db.ConstraintName(err) == balanceConstraint:
		return fmt.Errorf("%w: %v", ErrOvercommit, err)
	case db.IsForeignKeyViolation(err):
		return shared.ValidationErrorf("referenced vendor or product does not exist (%s)", db.ConstraintName(err))
	}
	return err
}

// Get loads a document and its lines, including soft-deleted documents.
func (r *Repository) Get(ctx context.Context, kind Kind, id int64) (Document, error) {
	return getDocument(ctx, r.pool, kind, id, false)
}

func getDocument(ctx context.Context, q db.Querier, kind Kind, id int64, lock bool) (Document, error) {
	t := kind.tables()
	query := `SELECT ` + documentColumns + ` FROM ` + t.doc + ` WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	doc, err := scanDocument(q.QueryRow(ctx, query, id), kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, fmt.Errorf("%w %d", ErrDocumentNotFound, id)
	}
	if err != nil {
		return Document{}, fmt.Errorf("stock: load %s %d: %w", kind.Module(), id, err)
	}
	lines, err := loadLines(ctx, q, kind, []int64{id})
	if err != nil {
		return Document{}, err
	}
	doc.Lines = lines[id]
	return doc, nil
}

func scanDocument(row pgx.Row, kind Kind) (Document, error) {
	doc := Document{Kind: kind}
	var status string
	err := row.Scan(&doc.ID, &doc.Remark, &status, &doc.TotalAmount, &doc.CompletedAt, &doc.DeletedAt,
		&doc.Version, &doc.CreatedAt, &doc.UpdatedAt)
	doc.Status = Status(status)
	return doc, err
}

// loadLines returns the lines of every document in ids keyed by document id,
// ordered by line id.
func loadLines(ctx context.Context, q db.Querier, kind Kind, ids []int64) (map[int64][]Line, error) {
	t := kind.tables()
	rows, err := q.Query(ctx, `SELECT id, `+t.fk+`, product_id, count, `+t.value+`, vendor_id
		FROM `+t.lines+` WHERE `+t.fk+` = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("stock: load %s lines: %w", kind.Module(), err)
	}
	defer rows.Close()

	out := make(map[int64][]Line, len(ids))
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.ProductID, &l.Count, &l.UnitValue, &l.VendorID); err != nil {
			return nil, err
		}
		out[l.DocumentID] = append(out[l.DocumentID], l)
	}
	return out, rows.Err()
}

func (r *txRepo) GetForUpdate(ctx context.Context, kind Kind, id int64) (Document, error) {
	return getDocument(ctx, r.tx, kind, id, true)
}

func (r *txRepo) InsertDocument(ctx context.Context, doc Document) (Document, error) {
	t := doc.Kind.tables()
	created, err := scanDocument(r.tx.QueryRow(ctx, `INSERT INTO `+t.doc+` (remark, status, total_amount, version)
		VALUES ($1, $2, $3, $4) RETURNING `+documentColumns,
		doc.Remark, string(doc.Status), doc.TotalAmount.String(), doc.Version), doc.Kind)
	if err != nil {
		return Document{}, fmt.Errorf("stock: insert %s: %w", doc.Kind.Module(), err)
	}
	return created, nil
}

func (r *txRepo) UpdateDocument(ctx context.Context, doc Document, expectedVersion *int64) error {
	t := doc.Kind.tables()
	tag, err := r.tx.Exec(ctx, `UPDATE `+t.doc+` SET remark = $2, status = $3, total_amount = $4, completed_at = $5,
		deleted_at = $6, version = $7, updated_at = NOW()
		WHERE id = $1 AND ($8::bigint IS NULL OR version = $8)`,
		doc.ID, doc.Remark, string(doc.Status), doc.TotalAmount.String(), doc.CompletedAt, doc.DeletedAt, doc.Version, expectedVersion)
	if err != nil {
		return fmt.Errorf("stock: update %s %d: %w", doc.Kind.Module(), doc.ID, err)
	}
	if tag.RowsAffected() == 0 {
		if expectedVersion != nil {
			return ErrVersionMismatch
		}
		return fmt.Errorf("%w %d", ErrDocumentNotFound, doc.ID)
	}
	return nil
}

func (r *txRepo) DeleteDocument(ctx context.Context, kind Kind, id int64) error {
	t := kind.tables()
	if kind == KindIn {
		if _, err := r.tx.Exec(ctx, `DELETE FROM history_costs WHERE stock_in_id = $1`, id); err != nil {
			return fmt.Errorf("stock: delete history costs: %w", err)
		}
	}
	if _, err := r.tx.Exec(ctx, `DELETE FROM `+t.lines+` WHERE `+t.fk+` = $1`, id); err != nil {
		return fmt.Errorf("stock: delete %s lines: %w", kind.Module(), err)
	}
	if _, err := r.tx.Exec(ctx, `DELETE FROM `+t.doc+` WHERE id = $1`, id); err != nil {
		return fmt.Errorf("stock: delete %s %d: %w", kind.Module(), id, err)
	}
	return nil
}

func (r *txRepo) InsertLine(ctx context.Context, kind Kind, line Line) (Line, error) {
	t := kind.tables()
	err := r.tx.QueryRow(ctx, `INSERT INTO `+t.lines+` (`+t.fk+`, product_id, count, `+t.value+`, vendor_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		line.DocumentID, line.ProductID, line.Count, line.UnitValue.String(), line.VendorID).Scan(&line.ID)
	if err != nil {
		return Line{}, fmt.Errorf("stock: insert %s line: %w", kind.Module(), err)
	}
	return line, nil
}

func (r *txRepo) UpdateLine(ctx context.Context, kind Kind, line Line) error {
	t := kind.tables()
	_, err := r.tx.Exec(ctx, `UPDATE `+t.lines+` SET count = $2, `+t.value+` = $3, vendor_id = $4 WHERE id = $1`,
		line.ID, line.Count, line.UnitValue.String(), line.VendorID)
	if err != nil {
		return fmt.Errorf("stock: update %s line %d: %w", kind.Module(), line.ID, err)
	}
	return nil
}

func (r *txRepo) DeleteLine(ctx context.Context, kind Kind, lineID int64) error {
	t := kind.tables()
	if _, err := r.tx.Exec(ctx, `DELETE FROM `+t.lines+` WHERE id = $1`, lineID); err != nil {
		return fmt.Errorf("stock: delete %s line %d: %w", kind.Module(), lineID, err)
	}
	return nil
}

func (r *txRepo) UpsertHistoryCost(ctx context.Context, h HistoryCost) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO history_costs (product_id, stock_in_id, line_id, cost)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (line_id) DO UPDATE SET cost = EXCLUDED.cost`,
		h.ProductID, h.DocumentID, h.LineID, h.Cost.String())
	if err != nil {
		return fmt.Errorf("stock: upsert history cost: %w", err)
	}
	return nil
}

func (r *txRepo) DeleteHistoryCost(ctx context.Context, lineID int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM history_costs WHERE line_id = $1`, lineID); err != nil {
		return fmt.Errorf("stock: delete history cost: %w", err)
	}
	return nil
}

func (r *txRepo) ProductVendors(ctx context.Context, productIDs []int64) (map[int64]int64, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, vendor_id FROM products WHERE id = ANY($1)`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("stock: product vendors: %w", err)
	}
	defer rows.Close()
	out := make(map[int64]int64, len(productIDs))
	for rows.Next() {
		var id, vendorID int64
		if err := rows.Scan(&id, &vendorID); err != nil {
			return nil, err
		}
		out[id] = vendorID
	}
	return out, rows.Err()
}

func (r *txRepo) ApplyProductDelta(ctx context.Context, productID int64, delta catalog.ProductDelta) error {
	return catalog.ApplyDelta(ctx, r.tx, productID, delta)
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-stock/internal/platform/db"
	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// Repository persists vendors and products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const vendorColumns = `id, name, remark, created_at, updated_at`

const productColumns = `p.id, p.name, p.vendor_id, v.name, p.remark, p.img, p.shelf_price, p.balance, p.pending_in,
	p.pending_out, p.latest_cost, p.latest_price, p.product_code, p.created_at, p.updated_at`

func scanVendor(row pgx.Row) (Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.Name, &v.Remark, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.VendorID, &p.VendorName, &p.Remark, &p.Img, &p.ShelfPrice, &p.Balance,
		&p.PendingIn, &p.PendingOut, &p.LatestCost, &p.LatestPrice, &p.ProductCode, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListVendors returns one page of vendors and the total match count.
func (r *Repository) ListVendors(ctx context.Context, filter VendorFilter) ([]Vendor, int, error) {
	where := ""
	args := []any{}
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		where = ` WHERE name ILIKE $1`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vendors`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count vendors: %w", err)
	}

	query := `SELECT ` + vendorColumns + ` FROM vendors` + where + ` ORDER BY id`
	query, args = paginate(query, args, filter.Page)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list vendors: %w", err)
	}
	defer rows.Close()

	vendors := []Vendor{}
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, 0, err
		}
		vendors = append(vendors, v)
	}
	return vendors, total, rows.Err()
}

// GetVendor loads one vendor.
func (r *Repository) GetVendor(ctx context.Context, id int64) (Vendor, error) {
	v, err := scanVendor(r.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Vendor{}, fmt.Errorf("%w %d", ErrVendorNotFound, id)
	}
	return v, err
}

// CreateVendor inserts a vendor.
func (r *Repository) CreateVendor(ctx context.Context, input VendorInput) (Vendor, error) {
	v, err := scanVendor(r.pool.QueryRow(ctx,
		`INSERT INTO vendors (name, remark) VALUES ($1, $2) RETURNING `+vendorColumns, input.Name, input.Remark))
	if db.IsUniqueViolation(err) {
		return Vendor{}, ErrDuplicateVendor
	}
	return v, err
}

// UpdateVendor overwrites name and remark.
func (r *Repository) UpdateVendor(ctx context.Context, id int64, input VendorInput) (Vendor, error) {
	v, err := scanVendor(r.pool.QueryRow(ctx,
		`UPDATE vendors SET name = $2, remark = $3, updated_at = NOW() WHERE id = $1 RETURNING `+vendorColumns,
		id, input.Name, input.Remark))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Vendor{}, fmt.Errorf("%w %d", ErrVendorNotFound, id)
	case db.IsUniqueViolation(err):
		return Vendor{}, ErrDuplicateVendor
	}
	return v, err
}

// DeleteVendors removes all given vendors, or none of them when any still
// owns products.
func (r *Repository) DeleteVendors(ctx context.Context, ids []int64) (int64, error) {
	var deleted int64
	err := db.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		var owning int64
		err := tx.QueryRow(ctx, `SELECT vendor_id FROM products WHERE vendor_id = ANY($1) LIMIT 1`, ids).Scan(&owning)
		if err == nil {
			return fmt.Errorf("%w: vendor %d", ErrVendorHasProducts, owning)
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM vendors WHERE id = ANY($1)`, ids)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if db.IsForeignKeyViolation(err) {
		return 0, ErrVendorHasProducts
	}
	return deleted, err
}

// ListProducts returns one page of products and the total match count.
func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error) {
	conds := []string{}
	args := []any{}
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		conds = append(conds, `p.name ILIKE $`+strconv.Itoa(len(args)))
	}
	if filter.VendorID > 0 {
		args = append(args, filter.VendorID)
		conds = append(conds, `p.vendor_id = $`+strconv.Itoa(len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = ` WHERE ` + strings.Join(conds, ` AND `)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count products: %w", err)
	}

	query := `SELECT ` + productColumns + ` FROM products p JOIN vendors v ON v.id = p.vendor_id` + where + ` ORDER BY p.id`
	query, args = paginate(query, args, filter.Page)
	products, err := r.queryProducts(ctx, r.pool, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list products: %w", err)
	}
	return products, total, nil
}

// GetProduct loads one product.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products p JOIN vendors v ON v.id = p.vendor_id WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w %d", ErrProductNotFound, id)
	}
	return p, err
}

// GetProductByCode loads the product carrying an assigned product code.
func (r *Repository) GetProductByCode(ctx context.Context, code string) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products p JOIN vendors v ON v.id = p.vendor_id WHERE p.product_code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w with code %s", ErrProductNotFound, code)
	}
	return p, err
}

// GetVendorsByIDs loads the vendors that exist among ids.
func (r *Repository) GetVendorsByIDs(ctx context.Context, ids []int64) ([]Vendor, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("catalog: vendors by ids: %w", err)
	}
	defer rows.Close()

	vendors := []Vendor{}
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

// GetProductsByIDs loads the products that exist among ids. Missing ids are
// simply absent from the result.
func (r *Repository) GetProductsByIDs(ctx context.Context, ids []int64) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	products, err := r.queryProducts(ctx, r.pool,
		`SELECT `+productColumns+` FROM products p JOIN vendors v ON v.id = p.vendor_id WHERE p.id = ANY($1) ORDER BY p.id`, ids)
	if err != nil {
		return nil, fmt.Errorf("catalog: products by ids: %w", err)
	}
	return products, nil
}

// CreateProduct inserts a product with zeroed counters.
func (r *Repository) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, vendor_id, remark, img, shelf_price) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		input.Name, input.VendorID, input.Remark, input.Img, input.ShelfPrice.String()).Scan(&id)
	switch {
	case db.IsUniqueViolation(err):
		return Product{}, ErrDuplicateProduct
	case db.IsForeignKeyViolation(err):
		return Product{}, fmt.Errorf("%w %d", ErrVendorNotFound, input.VendorID)
	case err != nil:
		return Product{}, fmt.Errorf("catalog: create product: %w", err)
	}
	return r.GetProduct(ctx, id)
}

// UpdateProduct applies patch to the descriptive fields.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, error) {
	var shelf any
	if patch.ShelfPrice != nil {
		shelf = patch.ShelfPrice.String()
	}
	tag, err := r.pool.Exec(ctx, `UPDATE products SET
		name = COALESCE($2, name),
		remark = COALESCE($3, remark),
		img = COALESCE($4, img),
		shelf_price = COALESCE($5::numeric, shelf_price),
		updated_at = NOW()
	WHERE id = $1`, id, patch.Name, patch.Remark, patch.Img, shelf)
	switch {
	case db.IsUniqueViolation(err):
		return Product{}, ErrDuplicateProduct
	case err != nil:
		return Product{}, fmt.Errorf("catalog: update product: %w", err)
	case tag.RowsAffected() == 0:
		return Product{}, fmt.Errorf("%w %d", ErrProductNotFound, id)
	}
	return r.GetProduct(ctx, id)
}

// DeleteProduct removes a product that no stock document references.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	switch {
	case db.IsForeignKeyViolation(err):
		return ErrProductInUse
	case err != nil:
		return fmt.Errorf("catalog: delete product: %w", err)
	case tag.RowsAffected() == 0:
		return fmt.Errorf("%w %d", ErrProductNotFound, id)
	}
	return nil
}

func (r *Repository) queryProducts(ctx context.Context, q db.Querier, query string, args ...any) ([]Product, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func paginate(query string, args []any, page shared.PageRequest) (string, []any) {
	if page.Disabled {
		return query, args
	}
	page = page.Normalize()
	args = append(args, page.Limit, (page.Page-1)*page.Limit)
	return query + ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args)), args
}

package stock

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// listQuery builds the WHERE clause shared by the page and count queries.
func listQuery(kind Kind, filter ListFilter) (string, []any) {
	t := kind.tables()
	conds := []string{}
	args := []any{}
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.ProductName != "" {
		conds = append(conds, `EXISTS (SELECT 1 FROM `+t.lines+` l JOIN products p ON p.id = l.product_id
			WHERE l.`+t.fk+` = d.id AND p.name ILIKE `+next("%"+filter.ProductName+"%")+`)`)
	}
	if filter.VendorName != "" {
		conds = append(conds, `EXISTS (SELECT 1 FROM `+t.lines+` l JOIN products p ON p.id = l.product_id
			JOIN vendors v ON v.id = COALESCE(l.vendor_id, p.vendor_id)
			WHERE l.`+t.fk+` = d.id AND v.name ILIKE `+next("%"+filter.VendorName+"%")+`)`)
	}
	if filter.Status != "" {
		conds = append(conds, `d.status = `+next(string(filter.Status)))
	}
	if filter.DeletedStart == nil && filter.DeletedEnd == nil {
		conds = append(conds, `d.deleted_at IS NULL`)
	}
	if filter.DeletedStart != nil {
		conds = append(conds, `d.deleted_at >= `+next(*filter.DeletedStart))
	}
	if filter.DeletedEnd != nil {
		conds = append(conds, `d.deleted_at <= `+next(*filter.DeletedEnd))
	}
	if filter.CompletedStart != nil {
		conds = append(conds, `d.completed_at >= `+next(*filter.CompletedStart))
	}
	if filter.CompletedEnd != nil {
		conds = append(conds, `d.completed_at <= `+next(*filter.CompletedEnd))
	}

	where := ""
	if len(conds) > 0 {
		where = ` WHERE ` + strings.Join(conds, ` AND `)
	}
	return where, args
}

// List returns one page of documents with their lines and the total count.
// The count and the page are queried concurrently.
func (r *Repository) List(ctx context.Context, kind Kind, filter ListFilter) ([]Document, int, error) {
	t := kind.tables()
	where, args := listQuery(kind, filter)

	var (
		total int
		docs  []Document
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.pool.QueryRow(gctx, `SELECT COUNT(*) FROM `+t.doc+` d`+where, args...).Scan(&total); err != nil {
			return fmt.Errorf("stock: count %s: %w", kind.Module(), err)
		}
		return nil
	})
	g.Go(func() error {
		query := `SELECT d.` + strings.ReplaceAll(documentColumns, ", ", ", d.") + ` FROM ` + t.doc + ` d` + where + ` ORDER BY d.id DESC`
		pageArgs := append([]any{}, args...)
		if !filter.Page.Disabled {
			page := filter.Page.Normalize()
			pageArgs = append(pageArgs, page.Limit, (page.Page-1)*page.Limit)
			query += ` LIMIT $` + strconv.Itoa(len(pageArgs)-1) + ` OFFSET $` + strconv.Itoa(len(pageArgs))
		}
		rows, err := r.pool.Query(gctx, query, pageArgs...)
		if err != nil {
			return fmt.Errorf("stock: list %s: %w", kind.Module(), err)
		}
		defer rows.Close()
		for rows.Next() {
			doc, err := scanDocument(rows, kind)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	if len(docs) == 0 {
		return []Document{}, total, nil
	}
	ids := make([]int64, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	lines, err := loadLines(ctx, r.pool, kind, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range docs {
		docs[i].Lines = lines[docs[i].ID]
	}
	return docs, total, nil
}

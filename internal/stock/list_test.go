package stock

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListQueryDefaultsToLiveDocuments(t *testing.T) {
	where, args := listQuery(KindIn, ListFilter{})
	require.Equal(t, ` WHERE d.deleted_at IS NULL`, where)
	require.Empty(t, args)
}

func TestListQueryFilters(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	where, args := listQuery(KindOut, ListFilter{
		ProductName:  "bolt",
		VendorName:   "acme",
		Status:       StatusCompleted,
		DeletedStart: &from,
		CompletedEnd: &to,
	})

	require.Contains(t, where, "FROM stock_out_lines l")
	require.Contains(t, where, "l.stock_out_id = d.id AND p.name ILIKE $1")
	require.Contains(t, where, "v.name ILIKE $2")
	require.Contains(t, where, "d.status = $3")
	require.Contains(t, where, "d.deleted_at >= $4")
	require.Contains(t, where, "d.completed_at <= $5")
	require.NotContains(t, where, "deleted_at IS NULL")
	require.Equal(t, []any{"%bolt%", "%acme%", "COMPLETED", from, to}, args)
	require.Equal(t, 5, strings.Count(where, "$"))
}

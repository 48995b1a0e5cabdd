package stock

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

func TestMergeLines(t *testing.T) {
	vendor := int64(4)
	lines, err := MergeLines([]LineInput{
		{ProductID: 2, Count: 1, UnitValue: dec("3")},
		{ProductID: 1, Count: 2, UnitValue: dec("5"), VendorID: &vendor},
		{ProductID: 2, Count: 4, UnitValue: dec("3.0")},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.EqualValues(t, 2, lines[0].ProductID)
	require.EqualValues(t, 5, lines[0].Count)
	require.EqualValues(t, 1, lines[1].ProductID)
	require.Equal(t, &vendor, lines[1].VendorID)

	_, err = MergeLines([]LineInput{
		{ProductID: 2, Count: 1, UnitValue: dec("3")},
		{ProductID: 2, Count: 1, UnitValue: dec("4")},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = MergeLines([]LineInput{{ProductID: 0, Count: 1}})
	require.ErrorIs(t, err, shared.ErrValidation)

	empty, err := MergeLines(nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestMergeLinesRejectsSubCentUnitValues(t *testing.T) {
	_, err := MergeLines([]LineInput{{ProductID: 1, Count: 3, UnitValue: dec("0.005")}})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "decimal places")

	lines, err := MergeLines([]LineInput{{ProductID: 1, Count: 3, UnitValue: dec("0.010")}})
	require.NoError(t, err)
	total := TotalAmount(lines)
	require.True(t, total.Equal(total.Round(MoneyScale)), "total %s", total)

	stored := []Line{{ID: 9, DocumentID: 4, ProductID: 1, Count: 3, UnitValue: dec("0.01")}}
	diff := DiffLines(stored, lines)
	require.Len(t, diff.Unchanged, 1)
	require.Empty(t, diff.Modified)
}

func TestMergeLinesRejectsCountOverflow(t *testing.T) {
	_, err := MergeLines([]LineInput{
		{ProductID: 1, Count: math.MaxInt64, UnitValue: dec("1")},
		{ProductID: 1, Count: 1, UnitValue: dec("1")},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Contains(t, err.Error(), "overflows")
}

func TestDiffLinesIgnoresRowAndDocumentIDs(t *testing.T) {
	stored := []Line{
		{ID: 10, DocumentID: 1, ProductID: 1, Count: 10, UnitValue: dec("2")},
		{ID: 11, DocumentID: 1, ProductID: 2, Count: 3, UnitValue: dec("2")},
		{ID: 12, DocumentID: 1, ProductID: 3, Count: 3, UnitValue: dec("2")},
	}
	next := []Line{
		{ProductID: 1, Count: 10, UnitValue: dec("2.00")},
		{ProductID: 2, Count: 3, UnitValue: dec("2.5")},
		{ProductID: 4, Count: 1, UnitValue: dec("1")},
	}
	res := DiffLines(stored, next)
	require.Len(t, res.Unchanged, 1)
	require.EqualValues(t, 1, res.Unchanged[0].ProductID)
	require.Len(t, res.Modified, 1)
	require.EqualValues(t, 2, res.Modified[0].ProductID)
	require.Zero(t, res.Modified[0].ID, "modified yields the new line")
	require.Len(t, res.Added, 1)
	require.EqualValues(t, 4, res.Added[0].ProductID)
	require.Len(t, res.Deleted, 1)
	require.EqualValues(t, 12, res.Deleted[0].ID, "deleted yields the stored line")
}

func TestDiffLinesComparesVendor(t *testing.T) {
	v1, v2 := int64(1), int64(2)
	stored := []Line{{ID: 1, ProductID: 1, Count: 1, UnitValue: dec("1"), VendorID: &v1}}
	require.Len(t, DiffLines(stored, []Line{{ProductID: 1, Count: 1, UnitValue: dec("1"), VendorID: &v2}}).Modified, 1)
	require.Len(t, DiffLines(stored, []Line{{ProductID: 1, Count: 1, UnitValue: dec("1")}}).Modified, 1)
	same := int64(1)
	require.Len(t, DiffLines(stored, []Line{{ProductID: 1, Count: 1, UnitValue: dec("1"), VendorID: &same}}).Unchanged, 1)
}

func TestPlanUpdateStockOut(t *testing.T) {
	stored := []Line{
		{ID: 1, ProductID: 3, Count: 10, UnitValue: dec("1")},
		{ID: 2, ProductID: 1, Count: 4, UnitValue: dec("1")},
	}
	next := []Line{
		{ProductID: 3, Count: 6, UnitValue: dec("1")},
		{ProductID: 2, Count: 5, UnitValue: dec("1")},
	}
	byProduct := map[int64]Line{3: stored[0], 1: stored[1]}
	changes := PlanUpdate(KindOut, DiffLines(stored, next), byProduct).Changes()

	require.Len(t, changes, 3)
	require.EqualValues(t, []int64{1, 2, 3}, []int64{changes[0].ProductID, changes[1].ProductID, changes[2].ProductID})

	deleted := changes[0].Delta
	require.EqualValues(t, 4, deleted.BalanceDelta)
	require.EqualValues(t, -4, deleted.PendingOutDelta)
	require.False(t, deleted.RequireAvailable)

	added := changes[1].Delta
	require.EqualValues(t, -5, added.BalanceDelta)
	require.EqualValues(t, 5, added.PendingOutDelta)
	require.True(t, added.RequireAvailable)

	shrunk := changes[2].Delta
	require.EqualValues(t, 4, shrunk.BalanceDelta)
	require.EqualValues(t, -4, shrunk.PendingOutDelta)
	require.False(t, shrunk.RequireAvailable)
}

func TestPlanConfirmStockIn(t *testing.T) {
	lines := []Line{{ProductID: 7, Count: 3, UnitValue: dec("4.2")}}
	changes := PlanConfirm(KindIn, lines, map[int64]string{7: "260120000300077"}).Changes()
	require.Len(t, changes, 1)
	d := changes[0].Delta
	require.EqualValues(t, 3, d.BalanceDelta)
	require.EqualValues(t, -3, d.PendingInDelta)
	require.True(t, d.LatestCost.Equal(dec("4.2")))
	require.Equal(t, "260120000300077", *d.ProductCode)
	require.Nil(t, d.LatestPrice)
}

func TestPlanReverseUndoesCreate(t *testing.T) {
	lines := []Line{{ProductID: 1, Count: 3, UnitValue: dec("1")}, {ProductID: 2, Count: 2, UnitValue: dec("1")}}
	for _, kind := range []Kind{KindIn, KindOut} {
		plan := PlanCreate(kind, lines)
		for _, c := range PlanReverse(kind, lines).Changes() {
			plan.Add(c.ProductID, c.Delta)
		}
		for _, c := range plan.Changes() {
			require.Zero(t, c.Delta.BalanceDelta)
			require.Zero(t, c.Delta.PendingInDelta)
			require.Zero(t, c.Delta.PendingOutDelta)
		}
	}
}

func TestTotalAmount(t *testing.T) {
	lines := []Line{
		{ProductID: 1, Count: 200, UnitValue: dec("100")},
		{ProductID: 2, Count: 20, UnitValue: dec("10")},
		{ProductID: 3, Count: 3, UnitValue: dec("0.1")},
	}
	require.True(t, TotalAmount(lines).Equal(dec("20200.3")))
	require.True(t, TotalAmount(nil).IsZero())
}

func TestParseConsistencyMode(t *testing.T) {
	mode, err := ParseConsistencyMode("")
	require.NoError(t, err)
	require.Equal(t, ModeIsolation, mode)
	mode, err = ParseConsistencyMode("Versioned")
	require.NoError(t, err)
	require.Equal(t, ModeVersioned, mode)
	_, err = ParseConsistencyMode("optimistic")
	require.Error(t, err)
}

package linediff

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type row struct {
	ID      int64
	Parent  int64
	Product *int64
	Count   int64
}

func ptr(v int64) *int64 { return &v }

func rowKey(r row) (int64, bool) {
	if r.Product == nil {
		return 0, false
	}
	return *r.Product, true
}

// ID and Parent are storage bookkeeping and never compared.
func rowEqual(a, b row) bool {
	return *a.Product == *b.Product && a.Count == b.Count
}

func products(rows []row) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r.Product)
	}
	return out
}

func TestDiffClassifies(t *testing.T) {
	old := []row{
		{ID: 1, Parent: 9, Product: ptr(1), Count: 10},
		{ID: 2, Parent: 9, Product: ptr(2), Count: 5},
		{ID: 3, Parent: 9, Product: ptr(3), Count: 7},
	}
	next := []row{
		{Product: ptr(4), Count: 1},
		{Product: ptr(1), Count: 15},
		{Product: ptr(3), Count: 7},
	}
	res := Diff(old, next, rowKey, rowEqual)

	require.Equal(t, []int64{4}, products(res.Added))
	require.Equal(t, []int64{1}, products(res.Modified))
	require.Equal(t, int64(15), res.Modified[0].Count)
	require.Equal(t, []int64{3}, products(res.Unchanged))
	require.Equal(t, []int64{2}, products(res.Deleted))
	require.Equal(t, int64(2), res.Deleted[0].ID)
	require.False(t, res.Empty())
}

func TestDiffIgnoresBookkeepingFields(t *testing.T) {
	old := []row{{ID: 10, Parent: 1, Product: ptr(5), Count: 3}}
	next := []row{{ID: 0, Parent: 0, Product: ptr(5), Count: 3}}
	res := Diff(old, next, rowKey, rowEqual)
	require.Len(t, res.Unchanged, 1)
	require.Empty(t, res.Modified)
	require.True(t, res.Empty())
}

func TestDiffDropsMissingKeys(t *testing.T) {
	old := []row{{ID: 1, Product: nil, Count: 1}, {ID: 2, Product: ptr(2), Count: 2}}
	next := []row{{Product: nil, Count: 9}, {Product: ptr(2), Count: 2}}
	res := Diff(old, next, rowKey, rowEqual)
	require.Empty(t, res.Added)
	require.Empty(t, res.Deleted)
	require.Len(t, res.Unchanged, 1)
}

func TestDiffEmptyInputs(t *testing.T) {
	res := Diff[row, int64](nil, nil, rowKey, rowEqual)
	require.True(t, res.Empty())

	res = Diff(nil, []row{{Product: ptr(1), Count: 1}}, rowKey, rowEqual)
	require.Len(t, res.Added, 1)

	res = Diff([]row{{Product: ptr(1), Count: 1}}, nil, rowKey, rowEqual)
	require.Len(t, res.Deleted, 1)
}

func TestDiffPartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		oldSet := map[int64]bool{}
		var old, next []row
		for _, p := range rng.Perm(30)[:rng.Intn(30)] {
			old = append(old, row{ID: int64(p + 100), Product: ptr(int64(p)), Count: int64(rng.Intn(3))})
			oldSet[int64(p)] = true
		}
		newSet := map[int64]bool{}
		for _, p := range rng.Perm(30)[:rng.Intn(30)] {
			next = append(next, row{Product: ptr(int64(p)), Count: int64(rng.Intn(3))})
			newSet[int64(p)] = true
		}

		res := Diff(old, next, rowKey, rowEqual)
		require.Equal(t, len(next), len(res.Added)+len(res.Modified)+len(res.Unchanged))

		seen := map[int64]string{}
		mark := func(bucket string, rows []row) {
			for _, r := range rows {
				_, dup := seen[*r.Product]
				require.False(t, dup, "product %d in %s and %s", *r.Product, bucket, seen[*r.Product])
				seen[*r.Product] = bucket
			}
		}
		mark("added", res.Added)
		mark("modified", res.Modified)
		mark("unchanged", res.Unchanged)
		for p := range newSet {
			require.Contains(t, seen, p)
		}
		for _, r := range res.Added {
			require.False(t, oldSet[*r.Product])
		}

		deleted := map[int64]bool{}
		for _, r := range res.Deleted {
			deleted[*r.Product] = true
		}
		for p := range oldSet {
			require.Equal(t, !newSet[p], deleted[p], "product %d", p)
		}
	}
}

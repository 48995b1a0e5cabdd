package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

func TestVendorLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.CreateVendor(ctx, VendorInput{Name: " A "})
	require.ErrorIs(t, err, shared.ErrValidation)

	acme, err := svc.CreateVendor(ctx, VendorInput{Name: "  Acme  ", Remark: "bolts"})
	require.NoError(t, err)
	require.Equal(t, "Acme", acme.Name)

	_, err = svc.CreateVendor(ctx, VendorInput{Name: "Acme"})
	require.ErrorIs(t, err, shared.ErrConflict)

	updated, err := svc.UpdateVendor(ctx, acme.ID, VendorInput{Name: "Acme Ltd"})
	require.NoError(t, err)
	require.Equal(t, "Acme Ltd", updated.Name)

	_, err = svc.GetVendor(ctx, 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetVendorsByIDsSkipsUnknownAndDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRepo(), nil)
	acme, err := svc.CreateVendor(ctx, VendorInput{Name: "Acme"})
	require.NoError(t, err)

	vendors, err := svc.GetVendorsByIDs(ctx, []int64{acme.ID, 404, acme.ID})
	require.NoError(t, err)
	require.Len(t, vendors, 1)
	require.Equal(t, acme.ID, vendors[0].ID)
}

func TestDeleteVendorsConflictWhenProductsRemain(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	acme, err := svc.CreateVendor(ctx, VendorInput{Name: "Acme"})
	require.NoError(t, err)
	globex, err := svc.CreateVendor(ctx, VendorInput{Name: "Globex"})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Bolt", VendorID: acme.ID})
	require.NoError(t, err)

	_, err = svc.DeleteVendors(ctx, []int64{acme.ID, globex.ID})
	require.ErrorIs(t, err, ErrVendorHasProducts)
	require.Len(t, repo.vendors, 2)

	deleted, err := svc.DeleteVendors(ctx, []int64{globex.ID, globex.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	_, err = svc.DeleteVendors(ctx, nil)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateProductRules(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRepo(), nil)
	acme, err := svc.CreateVendor(ctx, VendorInput{Name: "Acme"})
	require.NoError(t, err)

	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Bolt", VendorID: 404})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Bolt", VendorID: acme.ID, ShelfPrice: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, shared.ErrValidation)

	bolt, err := svc.CreateProduct(ctx, ProductInput{Name: "Bolt", VendorID: acme.ID, ShelfPrice: decimal.RequireFromString("2.50")})
	require.NoError(t, err)
	require.Zero(t, bolt.Balance)
	require.Nil(t, bolt.ProductCode)

	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Bolt", VendorID: acme.ID})
	require.ErrorIs(t, err, shared.ErrConflict)

	list, total, err := svc.ProductsByVendor(ctx, acme.ID)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, bolt.ID, list[0].ID)

	_, _, err = svc.ProductsByVendor(ctx, 404)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateProductKeepsUnsetFields(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRepo(), nil)
	acme, err := svc.CreateVendor(ctx, VendorInput{Name: "Acme"})
	require.NoError(t, err)
	bolt, err := svc.CreateProduct(ctx, ProductInput{Name: "Bolt", VendorID: acme.ID, Remark: "steel"})
	require.NoError(t, err)

	short := "x"
	_, err = svc.UpdateProduct(ctx, bolt.ID, ProductPatch{Name: &short})
	require.ErrorIs(t, err, shared.ErrValidation)

	price := decimal.NewFromInt(7)
	updated, err := svc.UpdateProduct(ctx, bolt.ID, ProductPatch{ShelfPrice: &price})
	require.NoError(t, err)
	require.Equal(t, "Bolt", updated.Name)
	require.Equal(t, "steel", updated.Remark)
	require.True(t, updated.ShelfPrice.Equal(price))
}

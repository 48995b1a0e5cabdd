package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// Vendor supplies products.
type Vendor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Remark    string    `json:"remark"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Product is a catalog item with its stock counters. The counters are only
// ever changed through ApplyDelta.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	VendorID    int64           `json:"vendorId"`
	VendorName  string          `json:"vendorName,omitempty"`
	Remark      string          `json:"remark"`
	Img         string          `json:"img"`
	ShelfPrice  decimal.Decimal `json:"shelfPrice"`
	Balance     int64           `json:"balance"`
	PendingIn   int64           `json:"pendingIn"`
	PendingOut  int64           `json:"pendingOut"`
	LatestCost  decimal.Decimal `json:"latestCost"`
	LatestPrice decimal.Decimal `json:"latestPrice"`
	ProductCode *string         `json:"productCode"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// VendorFilter narrows vendor listings.
type VendorFilter struct {
	Name string
	Page shared.PageRequest
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Name     string
	VendorID int64
	Page     shared.PageRequest
}

// VendorInput carries the mutable vendor fields.
type VendorInput struct {
	Name   string
	Remark string
}

// ProductInput carries the fields accepted on create.
type ProductInput struct {
	Name       string
	VendorID   int64
	Remark     string
	Img        string
	ShelfPrice decimal.Decimal
}

// ProductPatch updates descriptive product fields. Nil fields are kept.
type ProductPatch struct {
	Name       *string
	Remark     *string
	Img        *string
	ShelfPrice *decimal.Decimal
}

var (
	// ErrVendorNotFound indicates the vendor id does not exist.
	ErrVendorNotFound = fmt.Errorf("%w: vendor", shared.ErrNotFound)
	// ErrProductNotFound indicates the product id does not exist.
	ErrProductNotFound = fmt.Errorf("%w: product", shared.ErrNotFound)
	// ErrDuplicateVendor indicates a vendor with the same name exists.
	ErrDuplicateVendor = fmt.Errorf("%w: vendor name already exists", shared.ErrConflict)
	// ErrDuplicateProduct indicates the vendor already has a product with that name.
	ErrDuplicateProduct = fmt.Errorf("%w: product name already exists for vendor", shared.ErrConflict)
	// ErrVendorHasProducts blocks deleting vendors that still own products.
	ErrVendorHasProducts = fmt.Errorf("%w: vendor still has products", shared.ErrConflict)
	// ErrProductInUse blocks deleting products referenced by stock documents.
	ErrProductInUse = fmt.Errorf("%w: product is referenced by stock documents", shared.ErrConflict)
	// ErrInsufficientStock indicates a guarded decrement would drive balance negative.
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", shared.ErrConflict)

	errNameTooShort = errors.New("name must be at least 2 characters")
)

package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// RepositoryPort abstracts catalog persistence for the service.
type RepositoryPort interface {
	ListVendors(ctx context.Context, filter VendorFilter) ([]Vendor, int, error)
	GetVendor(ctx context.Context, id int64) (Vendor, error)
	CreateVendor(ctx context.Context, input VendorInput) (Vendor, error)
	UpdateVendor(ctx context.Context, id int64, input VendorInput) (Vendor, error)
	DeleteVendors(ctx context.Context, ids []int64) (int64, error)
	GetVendorsByIDs(ctx context.Context, ids []int64) ([]Vendor, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	GetProductByCode(ctx context.Context, code string) (Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (Product, error)
	UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// Service coordinates vendor and product management.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ListVendors returns a page of vendors.
func (s *Service) ListVendors(ctx context.Context, filter VendorFilter) ([]Vendor, int, error) {
	filter.Name = strings.TrimSpace(filter.Name)
	return s.repo.ListVendors(ctx, filter)
}

// GetVendor loads one vendor.
func (s *Service) GetVendor(ctx context.Context, id int64) (Vendor, error) {
	if id <= 0 {
		return Vendor{}, fmt.Errorf("%w %d", ErrVendorNotFound, id)
	}
	return s.repo.GetVendor(ctx, id)
}

// CreateVendor validates and stores a vendor.
func (s *Service) CreateVendor(ctx context.Context, input VendorInput) (Vendor, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateName(input.Name); err != nil {
		return Vendor{}, err
	}
	vendor, err := s.repo.CreateVendor(ctx, input)
	if err != nil {
		return Vendor{}, err
	}
	s.logger.Info("vendor created", slog.Int64("vendor_id", vendor.ID))
	return vendor, nil
}

// UpdateVendor validates and overwrites a vendor.
func (s *Service) UpdateVendor(ctx context.Context, id int64, input VendorInput) (Vendor, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateName(input.Name); err != nil {
		return Vendor{}, err
	}
	return s.repo.UpdateVendor(ctx, id, input)
}

// DeleteVendors deletes vendors in one batch.
func (s *Service) DeleteVendors(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: at least one vendor id required", shared.ErrValidation)
	}
	deleted, err := s.repo.DeleteVendors(ctx, uniqueIDs(ids))
	if err != nil {
		return 0, err
	}
	s.logger.Info("vendors deleted", slog.Int64("count", deleted))
	return deleted, nil
}

// ListProducts returns a page of products.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error) {
	filter.Name = strings.TrimSpace(filter.Name)
	return s.repo.ListProducts(ctx, filter)
}

// ProductsByVendor lists every product of one vendor.
func (s *Service) ProductsByVendor(ctx context.Context, vendorID int64) ([]Product, int, error) {
	if _, err := s.GetVendor(ctx, vendorID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListProducts(ctx, ProductFilter{VendorID: vendorID, Page: shared.PageRequest{Disabled: true}})
}

// GetProduct loads one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w %d", ErrProductNotFound, id)
	}
	return s.repo.GetProduct(ctx, id)
}

// GetProductByCode loads the product that was assigned code.
func (s *Service) GetProductByCode(ctx context.Context, code string) (Product, error) {
	return s.repo.GetProductByCode(ctx, code)
}

// GetVendorsByIDs loads the existing vendors among ids.
func (s *Service) GetVendorsByIDs(ctx context.Context, ids []int64) ([]Vendor, error) {
	return s.repo.GetVendorsByIDs(ctx, uniqueIDs(ids))
}

// GetProductsByIDs loads the existing products among ids.
func (s *Service) GetProductsByIDs(ctx context.Context, ids []int64) ([]Product, error) {
	return s.repo.GetProductsByIDs(ctx, uniqueIDs(ids))
}

// CreateProduct validates and stores a product for an existing vendor.
func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateName(input.Name); err != nil {
		return Product{}, err
	}
	if input.ShelfPrice.IsNegative() {
		return Product{}, fmt.Errorf("%w: shelf price must be >= 0", shared.ErrValidation)
	}
	if _, err := s.GetVendor(ctx, input.VendorID); err != nil {
		return Product{}, fmt.Errorf("%w: vendor %d does not exist", shared.ErrValidation, input.VendorID)
	}
	product, err := s.repo.CreateProduct(ctx, input)
	if err != nil {
		return Product{}, err
	}
	s.logger.Info("product created", slog.Int64("product_id", product.ID), slog.Int64("vendor_id", product.VendorID))
	return product, nil
}

// UpdateProduct changes descriptive fields. Stock counters are not editable here.
func (s *Service) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, error) {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if err := validateName(name); err != nil {
			return Product{}, err
		}
		patch.Name = &name
	}
	if patch.ShelfPrice != nil && patch.ShelfPrice.IsNegative() {
		return Product{}, fmt.Errorf("%w: shelf price must be >= 0", shared.ErrValidation)
	}
	return s.repo.UpdateProduct(ctx, id, patch)
}

// DeleteProduct removes an unreferenced product.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

func validateName(name string) error {
	if utf8.RuneCountInString(name) < 2 {
		return fmt.Errorf("%w: %s", shared.ErrValidation, errNameTooShort)
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

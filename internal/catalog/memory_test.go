package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

type memoryRepo struct {
	vendors  map[int64]Vendor
	products map[int64]Product
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{vendors: map[int64]Vendor{}, products: map[int64]Product{}}
}

func (m *memoryRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryRepo) ListVendors(_ context.Context, filter VendorFilter) ([]Vendor, int, error) {
	out := []Vendor{}
	for _, v := range m.vendors {
		if filter.Name == "" || strings.Contains(strings.ToLower(v.Name), strings.ToLower(filter.Name)) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) GetVendor(_ context.Context, id int64) (Vendor, error) {
	v, ok := m.vendors[id]
	if !ok {
		return Vendor{}, fmt.Errorf("%w %d", ErrVendorNotFound, id)
	}
	return v, nil
}

func (m *memoryRepo) CreateVendor(_ context.Context, input VendorInput) (Vendor, error) {
	for _, v := range m.vendors {
		if v.Name == input.Name {
			return Vendor{}, ErrDuplicateVendor
		}
	}
	v := Vendor{ID: m.id(), Name: input.Name, Remark: input.Remark, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.vendors[v.ID] = v
	return v, nil
}

func (m *memoryRepo) UpdateVendor(_ context.Context, id int64, input VendorInput) (Vendor, error) {
	v, ok := m.vendors[id]
	if !ok {
		return Vendor{}, fmt.Errorf("%w %d", ErrVendorNotFound, id)
	}
	v.Name, v.Remark = input.Name, input.Remark
	m.vendors[id] = v
	return v, nil
}

func (m *memoryRepo) DeleteVendors(_ context.Context, ids []int64) (int64, error) {
	for _, p := range m.products {
		for _, id := range ids {
			if p.VendorID == id {
				return 0, ErrVendorHasProducts
			}
		}
	}
	var n int64
	for _, id := range ids {
		if _, ok := m.vendors[id]; ok {
			delete(m.vendors, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) ListProducts(_ context.Context, filter ProductFilter) ([]Product, int, error) {
	out := []Product{}
	for _, p := range m.products {
		if filter.VendorID > 0 && p.VendorID != filter.VendorID {
			continue
		}
		if filter.Name != "" && !strings.Contains(p.Name, filter.Name) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) GetProduct(_ context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w %d", ErrProductNotFound, id)
	}
	return p, nil
}

func (m *memoryRepo) GetProductByCode(_ context.Context, code string) (Product, error) {
	for _, p := range m.products {
		if p.ProductCode != nil && *p.ProductCode == code {
			return p, nil
		}
	}
	return Product{}, ErrProductNotFound
}

func (m *memoryRepo) GetVendorsByIDs(_ context.Context, ids []int64) ([]Vendor, error) {
	out := []Vendor{}
	for _, id := range ids {
		if v, ok := m.vendors[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memoryRepo) GetProductsByIDs(_ context.Context, ids []int64) ([]Product, error) {
	out := []Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) CreateProduct(_ context.Context, input ProductInput) (Product, error) {
	for _, p := range m.products {
		if p.Name == input.Name && p.VendorID == input.VendorID {
			return Product{}, ErrDuplicateProduct
		}
	}
	p := Product{ID: m.id(), Name: input.Name, VendorID: input.VendorID, Remark: input.Remark, Img: input.Img, ShelfPrice: input.ShelfPrice}
	m.products[p.ID] = p
	return p, nil
}

func (m *memoryRepo) UpdateProduct(_ context.Context, id int64, patch ProductPatch) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w %d", ErrProductNotFound, id)
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Remark != nil {
		p.Remark = *patch.Remark
	}
	if patch.Img != nil {
		p.Img = *patch.Img
	}
	if patch.ShelfPrice != nil {
		p.ShelfPrice = *patch.ShelfPrice
	}
	m.products[id] = p
	return p, nil
}

func (m *memoryRepo) DeleteProduct(_ context.Context, id int64) error {
	if _, ok := m.products[id]; !ok {
		return fmt.Errorf("%w %d", ErrProductNotFound, id)
	}
	delete(m.products, id)
	return nil
}

package catalog

import "github.com/shopspring/decimal"

type vendorRequest struct {
	Name   string `json:"name" validate:"required,min=2,max=100"`
	Remark string `json:"remark" validate:"max=255"`
}

type batchDeleteRequest struct {
	ID []int64 `json:"id" validate:"required,min=1,dive,gt=0"`
}

type createProductRequest struct {
	Name       string          `json:"name" validate:"required,min=2,max=100"`
	VendorID   int64           `json:"vendorId" validate:"required,gt=0"`
	Remark     string          `json:"remark" validate:"max=255"`
	Img        string          `json:"img" validate:"max=512"`
	ShelfPrice decimal.Decimal `json:"shelfPrice"`
}

type updateProductRequest struct {
	Name       *string          `json:"name" validate:"omitempty,min=2,max=100"`
	Remark     *string          `json:"remark" validate:"omitempty,max=255"`
	Img        *string          `json:"img" validate:"omitempty,max=512"`
	ShelfPrice *decimal.Decimal `json:"shelfPrice"`
}

// ListResult is the data payload of listing endpoints.
type ListResult[T any] struct {
	Total int `json:"total"`
	List  []T `json:"list"`
}

package stock

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// lineRequest accepts the unit value as unitValue, or under its per-kind name
// (cost for stock-in, price for stock-out).
type lineRequest struct {
	ProductID int64            `json:"productId" validate:"required,gt=0"`
	Count     int64            `json:"count" validate:"required,gt=0"`
	UnitValue *decimal.Decimal `json:"unitValue"`
	Cost      *decimal.Decimal `json:"cost"`
	Price     *decimal.Decimal `json:"price"`
	VendorID  *int64           `json:"vendorId" validate:"omitempty,gt=0"`
}

type createRequest struct {
	Remark string        `json:"remark" validate:"max=255"`
	Lines  []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type updateRequest struct {
	Remark  *string       `json:"remark" validate:"omitempty,max=255"`
	Lines   []lineRequest `json:"lines" validate:"required,dive"`
	Version *int64        `json:"version" validate:"omitempty,gt=0"`
}

type confirmRequest struct {
	CompletedAt *time.Time `json:"completedAt"`
	Version     *int64     `json:"version" validate:"omitempty,gt=0"`
}

func toLineInputs(kind Kind, reqs []lineRequest) ([]LineInput, error) {
	out := make([]LineInput, 0, len(reqs))
	for i, req := range reqs {
		value := req.UnitValue
		if kind == KindIn && req.Cost != nil {
			value = req.Cost
		}
		if kind == KindOut && req.Price != nil {
			value = req.Price
		}
		if value == nil {
			return nil, shared.ValidationErrorf("line %d: unit value is required", i)
		}
		out = append(out, LineInput{ProductID: req.ProductID, Count: req.Count, UnitValue: *value, VendorID: req.VendorID})
	}
	return out, nil
}

// ListResult is the data payload of listing endpoints.
type ListResult struct {
	Total      int               `json:"total"`
	Pagination shared.Pagination `json:"pagination"`
	List       []Document        `json:"list"`
}

type updateResponse struct {
	Document *Document `json:"document,omitempty"`
	Removed  bool      `json:"removed"`
	Added    int       `json:"added"`
	Modified int       `json:"modified"`
	Deleted  int       `json:"deleted"`
}

// Package statistics reports sales figures derived from completed stock-out
// documents.
package statistics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// HotSalesLimit caps the hot-sales ranking.
const HotSalesLimit = 10

// MaxRangeDays bounds the hot-sales window.
const MaxRangeDays = 365

// HotSale is one ranked product.
type HotSale struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	VendorID    int64           `json:"vendorId"`
	VendorName  string          `json:"vendorName"`
	Count       int64           `json:"count"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// HotSalesQuery selects the window by calendar day, inclusive on both ends.
type HotSalesQuery struct {
	StartDate time.Time
	EndDate   time.Time
}

var (
	// ErrEndInFuture rejects windows ending after today.
	ErrEndInFuture = fmt.Errorf("%w: endDate must not be after today", shared.ErrValidation)
	// ErrRangeTooLong rejects windows longer than MaxRangeDays.
	ErrRangeTooLong = fmt.Errorf("%w: startDate and endDate must be at most %d days apart", shared.ErrValidation, MaxRangeDays)
	// ErrRangeInverted rejects windows whose start follows their end.
	ErrRangeInverted = fmt.Errorf("%w: startDate must not be after endDate", shared.ErrValidation)
)

package stock

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentConfirmed is published after a confirmation commits.
type DocumentConfirmed struct {
	Kind        Kind            `json:"kind"`
	DocumentID  int64           `json:"documentId"`
	CompletedAt time.Time       `json:"completedAt"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	ProductIDs  []int64         `json:"productIds"`
}

// Notifier fans confirmation events out to background consumers.
type Notifier interface {
	DocumentConfirmed(ctx context.Context, evt DocumentConfirmed) error
}

// MetricsPort counts document lifecycle transitions.
type MetricsPort interface {
	ObserveStockTransition(module, action string)
}

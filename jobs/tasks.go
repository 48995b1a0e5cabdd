package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-stock/internal/stock"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockReconcile recomputes pending counters and document totals.
	TaskStockReconcile = "stock:reconcile"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
	// TaskDocumentConfirmed fans a committed confirmation out to consumers.
	TaskDocumentConfirmed = "stock:document_confirmed"
)

// ReconcilePayload selects which document kinds to reconcile. Empty means both.
type ReconcilePayload struct {
	Kinds []stock.Kind `json:"kinds,omitempty"`
}

// CleanupPayload overrides the configured retention when positive.
type CleanupPayload struct {
	RetentionHours int `json:"retentionHours,omitempty"`
}

// NewReconcileTask builds a stock:reconcile task.
func NewReconcileTask(kinds ...stock.Kind) (*asynq.Task, error) {
	data, err := json.Marshal(ReconcilePayload{Kinds: kinds})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockReconcile, data), nil
}

// NewCleanupTask builds an idempotency:cleanup task.
func NewCleanupTask(retentionHours int) (*asynq.Task, error) {
	data, err := json.Marshal(CleanupPayload{RetentionHours: retentionHours})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

// NewDocumentConfirmedTask wraps a confirmation event.
func NewDocumentConfirmedTask(evt stock.DocumentConfirmed) (*asynq.Task, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDocumentConfirmed, data), nil
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-stock/internal/stock"
)

// StatisticsInvalidator drops cached statistics.
type StatisticsInvalidator interface {
	Invalidate(ctx context.Context) error
}

// DocumentConfirmedJob reacts to committed confirmations. Only stock-out
// confirmations feed hot-sales, so stock-in events are acknowledged and dropped.
type DocumentConfirmedJob struct {
	Statistics StatisticsInvalidator
	Logger     *slog.Logger
}

// NewDocumentConfirmedJob wires the fan-out handler.
func NewDocumentConfirmedJob(stats StatisticsInvalidator, logger *slog.Logger) *DocumentConfirmedJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentConfirmedJob{Statistics: stats, Logger: logger}
}

// Handle processes stock:document_confirmed tasks.
func (j *DocumentConfirmedJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Statistics == nil {
		return errors.New("document confirmed: handler not configured")
	}
	var evt stock.DocumentConfirmed
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return asynq.SkipRetry
	}
	if evt.Kind != stock.KindOut {
		return nil
	}
	if err := j.Statistics.Invalidate(ctx); err != nil {
		j.Logger.Error("invalidate statistics", slog.Int64("document_id", evt.DocumentID), slog.Any("error", err))
		return err
	}
	j.Logger.Info("statistics invalidated", slog.Int64("document_id", evt.DocumentID),
		slog.String("total_amount", evt.TotalAmount.String()))
	return nil
}

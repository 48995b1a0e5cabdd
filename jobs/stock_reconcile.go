package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-stock/internal/jobs"
	"github.com/odyssey-erp/odyssey-stock/internal/stock"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReconcileSource runs the read-only drift queries.
type ReconcileSource interface {
	PendingDrift(ctx context.Context, kind stock.Kind) ([]stock.PendingDrift, error)
	TotalDrift(ctx context.Context, kind stock.Kind) ([]stock.TotalDrift, error)
}

// ReconcileReport summarises one reconciliation run.
type ReconcileReport struct {
	Pending []stock.PendingDrift
	Totals  []stock.TotalDrift
}

// Clean reports whether no drift was found.
func (r ReconcileReport) Clean() bool {
	return len(r.Pending) == 0 && len(r.Totals) == 0
}

// ReconcileJob compares denormalised stock counters with the rows they
// summarise. It never writes.
type ReconcileJob struct {
	Source  ReconcileSource
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReconcileJob wires dependencies for the reconcile handler.
func NewReconcileJob(source ReconcileSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconcileJob {
	return &ReconcileJob{Source: source, Logger: logger, Metrics: metrics}
}

// Handle processes stock:reconcile tasks.
func (j *ReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil {
		return errors.New("stock reconcile: handler not configured")
	}
	var payload ReconcilePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	_, err := j.Run(ctx, payload.Kinds...)
	return err
}

// Run reconciles kinds (both when empty) and reports what it found.
func (j *ReconcileJob) Run(ctx context.Context, kinds ...stock.Kind) (ReconcileReport, error) {
	if len(kinds) == 0 {
		kinds = []stock.Kind{stock.KindIn, stock.KindOut}
	}
	tracker := j.metrics().Track(TaskStockReconcile)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()
	var report ReconcileReport
	for _, kind := range kinds {
		if !kind.Valid() {
			resultErr = stock.ErrUnknownKind
			return report, resultErr
		}
		pending, err := j.Source.PendingDrift(ctx, kind)
		if err != nil {
			resultErr = err
			logger.Error("pending drift query", slog.String("module", kind.Module()), slog.Any("error", err))
			return report, resultErr
		}
		totals, err := j.Source.TotalDrift(ctx, kind)
		if err != nil {
			resultErr = err
			logger.Error("total drift query", slog.String("module", kind.Module()), slog.Any("error", err))
			return report, resultErr
		}
		for _, d := range pending {
			logger.Warn("pending counter drift",
				slog.String("module", kind.Module()), slog.Int64("product_id", d.ProductID),
				slog.Int64("stored", d.Stored), slog.Int64("expected", d.Expected))
		}
		for _, d := range totals {
			logger.Warn("document total drift",
				slog.String("module", kind.Module()), slog.Int64("document_id", d.ID),
				slog.String("stored", d.Stored.String()), slog.String("expected", d.Expected.String()))
		}
		j.metrics().AddDiscrepancies(pendingCheck(kind), len(pending))
		j.metrics().AddDiscrepancies(kind.Module()+"_total", len(totals))
		report.Pending = append(report.Pending, pending...)
		report.Totals = append(report.Totals, totals...)
	}
	logger.Info("stock reconcile finished",
		slog.Int("pending_drift", len(report.Pending)), slog.Int("total_drift", len(report.Totals)),
		slog.Duration("duration", time.Since(start)))
	return report, resultErr
}

func pendingCheck(kind stock.Kind) string {
	if kind == stock.KindOut {
		return "pending_out"
	}
	return "pending_in"
}

func (j *ReconcileJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStockReconcile))
	}
	return slog.Default().With(slog.String("job", TaskStockReconcile))
}

func (j *ReconcileJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

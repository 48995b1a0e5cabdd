package statistics

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// RepositoryPort abstracts the statistics queries.
type RepositoryPort interface {
	HotSales(ctx context.Context, from, to time.Time, limit int) ([]HotSale, error)
}

// Service serves cached statistics.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	clock  shared.Clock
	logger *slog.Logger
	group  singleflight.Group
}

// NewService builds Service. cache may be nil to disable caching.
func NewService(repo RepositoryPort, cache *Cache, clock shared.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, clock: clock, logger: logger}
}

// HotSales returns the top products by stock-out revenue for the window.
func (s *Service) HotSales(ctx context.Context, q HotSalesQuery) ([]HotSale, error) {
	from, to, err := s.window(q)
	if err != nil {
		return nil, err
	}
	key, err := s.cache.BuildKey(ctx, "statistics", "hot_sales", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		s.logger.Warn("statistics cache unavailable", slog.Any("error", err))
		return s.repo.HotSales(ctx, from, to, HotSalesLimit)
	}

	resultChan := s.group.DoChan(key, func() (any, error) {
		var out []HotSale
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return s.repo.HotSales(ctx, from, to, HotSalesLimit)
		})
		return out, err
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]HotSale), nil
	}
}

// Invalidate drops every cached statistic.
func (s *Service) Invalidate(ctx context.Context) error {
	ver, err := s.cache.Bump(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("statistics cache bumped", slog.Int64("version", ver))
	return nil
}

// window resolves the calendar days of q into [start 00:00, end 23:59:59.999999999]
// in the clock's location.
func (s *Service) window(q HotSalesQuery) (time.Time, time.Time, error) {
	now := s.clock.Now()
	loc := now.Location()
	start := shared.Today(q.StartDate.In(loc))
	end := shared.Today(q.EndDate.In(loc))
	switch {
	case end.After(shared.Today(now)):
		return time.Time{}, time.Time{}, ErrEndInFuture
	case start.After(end):
		return time.Time{}, time.Time{}, ErrRangeInverted
	case end.Sub(start) > MaxRangeDays*24*time.Hour:
		return time.Time{}, time.Time{}, ErrRangeTooLong
	}
	return start, end.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
}

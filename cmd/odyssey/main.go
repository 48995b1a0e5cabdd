package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-stock/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-stock/internal/app"
	"github.com/odyssey-erp/odyssey-stock/internal/catalog"
	"github.com/odyssey-erp/odyssey-stock/internal/observability"
	"github.com/odyssey-erp/odyssey-stock/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-stock/internal/platform/db"
	"github.com/odyssey-erp/odyssey-stock/internal/shared"
	"github.com/odyssey-erp/odyssey-stock/internal/statistics"
	"github.com/odyssey-erp/odyssey-stock/internal/stock"
	"github.com/odyssey-erp/odyssey-stock/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	redisOpts := cfg.Redis().AsynqOpt()
	jobClient := jobs.NewClient(redisOpts)
	defer func() { _ = jobClient.Close() }()
	inspector := asynq.NewInspector(redisOpts)
	defer func() { _ = inspector.Close() }()

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := cli.NewJobsCLI(jobClient, inspector, os.Stdout).Run(ctx, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("redis unavailable, statistics cache disabled", slog.Any("error", err))
	} else {
		defer func() { _ = redisClient.Close() }()
	}

	metrics := observability.NewMetrics()
	clock := shared.SystemClock{Location: cfg.Location()}

	catalogService := catalog.NewService(catalog.NewRepository(pool), logger)
	stockService := stock.NewService(
		stock.NewRepository(pool, cfg.Isolation()),
		catalogService,
		shared.NewAuditLogger(pool),
		shared.NewIdempotencyStore(pool),
		stock.ServiceConfig{
			Mode:     cfg.ConsistencyMode(),
			Clock:    clock,
			Logger:   logger,
			Notifier: jobClient,
			Metrics:  metrics,
		},
	)

	statsCache := statistics.NewCache(redisClient, cfg.StatsCacheTTL)
	statsCache.OnLookup(metrics.ObserveCacheLookup)
	statsService := statistics.NewService(statistics.NewRepository(pool), statsCache, clock, logger)
	if redisClient != nil {
		applied, err := statsCache.ListenForInvalidation(ctx)
		if err != nil {
			logger.Warn("statistics invalidation listener", slog.Any("error", err))
		} else {
			go func() {
				for ver := range applied {
					logger.Debug("statistics cache version applied", slog.Int64("version", ver))
				}
			}()
		}
	}

	health := map[string]app.Pinger{"postgres": pool}
	if redisClient != nil {
		health["redis"] = app.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		StockHandler:      stock.NewHandler(logger, stockService, cfg.Location()),
		CatalogHandler:    catalog.NewHandler(logger, catalogService),
		StatisticsHandler: statistics.NewHandler(logger, statsService, cfg.Location()),
		JobHandler:        jobs.NewHandler(inspector, logger),
		Metrics:           metrics,
		Health:            health,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr),
			slog.String("consistency_mode", string(cfg.ConsistencyMode())), slog.String("isolation", string(cfg.Isolation())))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

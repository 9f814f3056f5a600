package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lattice-ops/lattice/internal/app"
	"github.com/lattice-ops/lattice/internal/budget"
	"github.com/lattice-ops/lattice/internal/observability"
	"github.com/lattice-ops/lattice/internal/platform/db"
	"github.com/lattice-ops/lattice/internal/shared"
	"github.com/lattice-ops/lattice/internal/timeclock"
	"github.com/lattice-ops/lattice/jobs"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	if app.InTestMode() {
		logger.Info("test mode, skipping startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	idempotency := shared.NewIdempotencyStore(pool)

	zone, err := cfg.TimeclockLocation()
	if err != nil {
		logger.Error("resolve timeclock zone", slog.String("zone", cfg.TimeclockZone), slog.Any("error", err))
		os.Exit(1)
	}

	timeclockSvc := timeclock.NewService(timeclock.NewRepository(pool), auditLogger, nil, zone)
	budgetSvc := budget.NewService(budget.NewRepository(pool), auditLogger, logger, metrics)

	worker := jobs.NewWorker(logger, jobs.WorkerConfig{
		RedisAddr: cfg.RedisAddr,
	}, budgetSvc, timeclockSvc, idempotency)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down worker")
		worker.Shutdown()
	}()

	logger.Info("worker starting", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(); err != nil {
		logger.Error("worker", slog.Any("error", err))
		os.Exit(1)
	}
}

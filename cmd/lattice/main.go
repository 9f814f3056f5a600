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

	"github.com/lattice-ops/lattice/internal/app"
	"github.com/lattice-ops/lattice/internal/audit"
	audithttp "github.com/lattice-ops/lattice/internal/audit/http"
	"github.com/lattice-ops/lattice/internal/budget"
	"github.com/lattice-ops/lattice/internal/observability"
	"github.com/lattice-ops/lattice/internal/platform/cache"
	"github.com/lattice-ops/lattice/internal/platform/db"
	"github.com/lattice-ops/lattice/internal/purchasing"
	"github.com/lattice-ops/lattice/internal/receipts"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	approvals := shared.NewApprovalRecorder(pool, logger)
	idempotency := shared.NewIdempotencyStore(pool)

	zone, err := cfg.TimeclockLocation()
	if err != nil {
		logger.Error("resolve timeclock zone", slog.String("zone", cfg.TimeclockZone), slog.Any("error", err))
		os.Exit(1)
	}

	statusCache := timeclock.NewStatusCache(redisClient, cfg.StatusCacheTTL)
	timeclockSvc := timeclock.NewService(timeclock.NewRepository(pool), auditLogger, statusCache, zone)

	purchasingRepo := purchasing.NewRepository(pool)
	purchasingSvc := purchasing.NewService(purchasingRepo, auditLogger, approvals, idempotency, metrics, int64(cfg.AutoApproveLimit*100))

	budgetSvc := budget.NewService(budget.NewRepository(pool), auditLogger, logger, metrics)
	receiptsSvc := receipts.NewService(receipts.NewRepository(pool), purchasingRepo, auditLogger)
	auditSvc := audit.NewService(audit.NewRepository(pool))

	jobClient := jobs.NewClient(cfg.RedisAddr)
	defer func() { _ = jobClient.Close() }()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		TimeclockHandler:  timeclock.NewHandler(logger, timeclockSvc, cfg.StatusPollPerMinute),
		PurchasingHandler: purchasing.NewHandler(logger, purchasingSvc),
		BudgetHandler:     budget.NewHandler(logger, budgetSvc),
		ReceiptsHandler:   receipts.NewHandler(logger, receiptsSvc),
		AuditHandler:      audithttp.NewHandler(logger, auditSvc),
		JobHandler:        jobs.NewHandler(logger, jobClient, cfg.RedisAddr),
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
}

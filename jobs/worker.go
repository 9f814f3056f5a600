package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lattice-ops/lattice/internal/budget"
)

// systemActorID attributes scheduled maintenance in the audit trail.
const systemActorID = 0

// BudgetMaintainer is the slice of the budget service the worker needs.
type BudgetMaintainer interface {
	RecalculateAll(ctx context.Context, actorID int64) (int, error)
	DriftScan(ctx context.Context) ([]budget.Drift, error)
}

// TimeclockMaintainer is the slice of the timeclock service the worker needs.
type TimeclockMaintainer interface {
	AutoCloseStale(ctx context.Context, olderThan time.Duration, now time.Time) (int, error)
}

// IdempotencyCleaner prunes processed idempotency keys.
type IdempotencyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// WorkerConfig tunes the background worker.
type WorkerConfig struct {
	RedisAddr   string
	Concurrency int

	// StaleSessionAge is how long a timeclock session may stay open before
	// the autoclose task force-closes it.
	StaleSessionAge time.Duration
	// IdempotencyRetention is how long processed keys are kept.
	IdempotencyRetention time.Duration
}

// Worker hosts the asynq server and scheduler for all maintenance tasks.
type Worker struct {
	logger    *slog.Logger
	cfg       WorkerConfig
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux

	budget    BudgetMaintainer
	timeclock TimeclockMaintainer
	cleaner   IdempotencyCleaner
}

// NewWorker wires the task handlers and the periodic schedule. Drift scans
// and idempotency cleanup run nightly, the autoclose sweep hourly; the full
// reconcile is enqueued on demand only.
func NewWorker(logger *slog.Logger, cfg WorkerConfig, budgetSvc BudgetMaintainer, timeclockSvc TimeclockMaintainer, cleaner IdempotencyCleaner) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.StaleSessionAge <= 0 {
		cfg.StaleSessionAge = 16 * time.Hour
	}
	if cfg.IdempotencyRetention <= 0 {
		cfg.IdempotencyRetention = 30 * 24 * time.Hour
	}

	w := &Worker{
		logger:    logger,
		cfg:       cfg,
		budget:    budgetSvc,
		timeclock: timeclockSvc,
		cleaner:   cleaner,
	}

	w.mux = asynq.NewServeMux()
	w.mux.HandleFunc(TypeBudgetReconcile, w.handleBudgetReconcile)
	w.mux.HandleFunc(TypeBudgetDriftScan, w.handleBudgetDriftScan)
	w.mux.HandleFunc(TypeTimeclockAutoclose, w.handleTimeclockAutoclose)
	w.mux.HandleFunc(TypeIdempotencyCleanup, w.handleIdempotencyCleanup)

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	w.server = asynq.NewServer(redisOpt, asynq.Config{Concurrency: cfg.Concurrency})
	w.scheduler = asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	return w
}

// Run starts the scheduler and blocks serving tasks.
func (w *Worker) Run() error {
	if _, err := w.scheduler.Register("0 3 * * *", NewBudgetDriftScanTask()); err != nil {
		return err
	}
	if _, err := w.scheduler.Register("30 3 * * *", NewIdempotencyCleanupTask()); err != nil {
		return err
	}
	if _, err := w.scheduler.Register("@every 1h", NewTimeclockAutocloseTask()); err != nil {
		return err
	}
	if err := w.scheduler.Start(); err != nil {
		return err
	}
	return w.server.Run(w.mux)
}

// Shutdown stops the scheduler and drains the server.
func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}

func (w *Worker) handleBudgetReconcile(ctx context.Context, _ *asynq.Task) error {
	written, err := w.budget.RecalculateAll(ctx, systemActorID)
	if err != nil {
		w.logger.Error("budget reconcile", slog.Any("error", err))
		return err
	}
	w.logger.Info("budget reconcile done", slog.Int("lines_written", written))
	return nil
}

func (w *Worker) handleBudgetDriftScan(ctx context.Context, _ *asynq.Task) error {
	drifts, err := w.budget.DriftScan(ctx)
	if err != nil {
		w.logger.Error("budget drift scan", slog.Any("error", err))
		return err
	}
	w.logger.Info("budget drift scan done", slog.Int("drift_lines", len(drifts)))
	return nil
}

func (w *Worker) handleTimeclockAutoclose(ctx context.Context, _ *asynq.Task) error {
	closed, err := w.timeclock.AutoCloseStale(ctx, w.cfg.StaleSessionAge, time.Now())
	if err != nil {
		w.logger.Error("timeclock autoclose", slog.Any("error", err))
		return err
	}
	if closed > 0 {
		w.logger.Info("timeclock autoclose done", slog.Int("closed", closed))
	}
	return nil
}

func (w *Worker) handleIdempotencyCleanup(ctx context.Context, _ *asynq.Task) error {
	if err := w.cleaner.Cleanup(ctx, w.cfg.IdempotencyRetention); err != nil {
		w.logger.Error("idempotency cleanup", slog.Any("error", err))
		return err
	}
	return nil
}

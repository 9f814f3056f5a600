package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lattice-ops/lattice/internal/budget"
)

type fakeBudget struct {
	recalcs int
	scans   int
	drifts  []budget.Drift
	err     error
}

func (f *fakeBudget) RecalculateAll(_ context.Context, _ int64) (int, error) {
	f.recalcs++
	return 3, f.err
}

func (f *fakeBudget) DriftScan(_ context.Context) ([]budget.Drift, error) {
	f.scans++
	return f.drifts, f.err
}

type fakeTimeclock struct {
	olderThan time.Duration
	closed    int
}

func (f *fakeTimeclock) AutoCloseStale(_ context.Context, olderThan time.Duration, _ time.Time) (int, error) {
	f.olderThan = olderThan
	f.closed++
	return 1, nil
}

type fakeCleaner struct {
	retention time.Duration
}

func (f *fakeCleaner) Cleanup(_ context.Context, olderThan time.Duration) error {
	f.retention = olderThan
	return nil
}

func newTestWorker(b *fakeBudget, tc *fakeTimeclock, cl *fakeCleaner) *Worker {
	return NewWorker(slog.Default(), WorkerConfig{RedisAddr: "127.0.0.1:6379"}, b, tc, cl)
}

func TestWorkerRoutesTasks(t *testing.T) {
	b := &fakeBudget{}
	tc := &fakeTimeclock{}
	cl := &fakeCleaner{}
	w := newTestWorker(b, tc, cl)
	ctx := context.Background()

	require.NoError(t, w.mux.ProcessTask(ctx, NewBudgetReconcileTask()))
	require.Equal(t, 1, b.recalcs)

	require.NoError(t, w.mux.ProcessTask(ctx, NewBudgetDriftScanTask()))
	require.Equal(t, 1, b.scans)

	require.NoError(t, w.mux.ProcessTask(ctx, NewTimeclockAutocloseTask()))
	require.Equal(t, 1, tc.closed)
	require.Equal(t, 16*time.Hour, tc.olderThan)

	require.NoError(t, w.mux.ProcessTask(ctx, NewIdempotencyCleanupTask()))
	require.Equal(t, 30*24*time.Hour, cl.retention)
}

func TestWorkerPropagatesFailures(t *testing.T) {
	b := &fakeBudget{err: errors.New("db down")}
	w := newTestWorker(b, &fakeTimeclock{}, &fakeCleaner{})

	// Failed tasks surface the error so asynq retries them.
	require.Error(t, w.mux.ProcessTask(context.Background(), NewBudgetReconcileTask()))
	require.Error(t, w.mux.ProcessTask(context.Background(), NewBudgetDriftScanTask()))
}

func TestWorkerConfigDefaults(t *testing.T) {
	w := newTestWorker(&fakeBudget{}, &fakeTimeclock{}, &fakeCleaner{})
	require.Equal(t, 5, w.cfg.Concurrency)
	require.Equal(t, 16*time.Hour, w.cfg.StaleSessionAge)
}

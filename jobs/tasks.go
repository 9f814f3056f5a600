// Package jobs runs background maintenance through asynq: ledger
// reconciliation, drift scans, stale timeclock session closing and
// idempotency key cleanup.
package jobs

import "github.com/hibiken/asynq"

// Task type names. The scheduler registers the periodic ones; all of them can
// also be enqueued on demand.
const (
	TypeBudgetReconcile    = "budget:reconcile"
	TypeBudgetDriftScan    = "budget:drift_scan"
	TypeTimeclockAutoclose = "timeclock:autoclose"
	TypeIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// NewBudgetReconcileTask builds the full ledger rebuild task.
func NewBudgetReconcileTask() *asynq.Task {
	return asynq.NewTask(TypeBudgetReconcile, nil)
}

// NewBudgetDriftScanTask builds the read-only drift scan task.
func NewBudgetDriftScanTask() *asynq.Task {
	return asynq.NewTask(TypeBudgetDriftScan, nil)
}

// NewTimeclockAutocloseTask builds the stale session closer task.
func NewTimeclockAutocloseTask() *asynq.Task {
	return asynq.NewTask(TypeTimeclockAutoclose, nil)
}

// NewIdempotencyCleanupTask builds the idempotency key retention task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TypeIdempotencyCleanup, nil)
}

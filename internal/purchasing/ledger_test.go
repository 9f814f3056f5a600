package purchasing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func statusPtr(s Status) *Status { return &s }

func TestLedgerDeltasApproval(t *testing.T) {
	items := []LineItem{
		{BudgetLineID: 1, Quantity: 2, UnitCents: 5000},
		{BudgetLineID: 2, Quantity: 1, UnitCents: 3000},
	}

	adjs := LedgerDeltas(statusPtr(StatusPending), StatusApproved, items)
	require.Equal(t, []LedgerAdjustment{
		{BudgetLineID: 1, EncumberedCents: 10000},
		{BudgetLineID: 2, EncumberedCents: 3000},
	}, adjs)
}

func TestLedgerDeltasCompletion(t *testing.T) {
	items := []LineItem{{BudgetLineID: 1, Quantity: 1, UnitCents: 7500}}

	adjs := LedgerDeltas(statusPtr(StatusApproved), StatusCompleted, items)
	require.Equal(t, []LedgerAdjustment{
		{BudgetLineID: 1, EncumberedCents: -7500, ActualCents: 7500},
	}, adjs)
}

func TestLedgerDeltasRelease(t *testing.T) {
	items := []LineItem{{BudgetLineID: 1, Quantity: 1, UnitCents: 7500}}

	// Cancelling an approved order releases the encumbrance.
	adjs := LedgerDeltas(statusPtr(StatusApproved), StatusCancelled, items)
	require.Equal(t, []LedgerAdjustment{{BudgetLineID: 1, EncumberedCents: -7500}}, adjs)

	// Voiding a completed order reverses the actuals.
	adjs = LedgerDeltas(statusPtr(StatusCompleted), StatusCancelled, items)
	require.Equal(t, []LedgerAdjustment{{BudgetLineID: 1, ActualCents: -7500}}, adjs)
}

func TestLedgerDeltasNeutralTransitions(t *testing.T) {
	items := []LineItem{{BudgetLineID: 1, Quantity: 4, UnitCents: 250}}

	// Moves between non-holding states touch nothing.
	require.Empty(t, LedgerDeltas(statusPtr(StatusDraft), StatusPending, items))
	require.Empty(t, LedgerDeltas(statusPtr(StatusPending), StatusRejected, items))
	require.Empty(t, LedgerDeltas(statusPtr(StatusRejected), StatusDraft, items))
	require.Empty(t, LedgerDeltas(statusPtr(StatusPending), StatusCancelled, items))
}

func TestLedgerDeltasFromScratch(t *testing.T) {
	items := []LineItem{{BudgetLineID: 1, Quantity: 1, UnitCents: 1200}}

	// A nil old status derives an order's full contribution, as used when
	// re-deriving ledgers from scratch.
	require.Equal(t, []LedgerAdjustment{{BudgetLineID: 1, EncumberedCents: 1200}},
		LedgerDeltas(nil, StatusApproved, items))
	require.Equal(t, []LedgerAdjustment{{BudgetLineID: 1, ActualCents: 1200}},
		LedgerDeltas(nil, StatusCompleted, items))
	require.Empty(t, LedgerDeltas(nil, StatusDraft, items))
}

func TestLedgerDeltasAggregatesPerBudgetLine(t *testing.T) {
	items := []LineItem{
		{BudgetLineID: 1, Quantity: 1, UnitCents: 100},
		{BudgetLineID: 2, Quantity: 1, UnitCents: 200},
		{BudgetLineID: 1, Quantity: 3, UnitCents: 50},
	}

	adjs := LedgerDeltas(statusPtr(StatusPending), StatusApproved, items)
	require.Equal(t, []LedgerAdjustment{
		{BudgetLineID: 1, EncumberedCents: 250},
		{BudgetLineID: 2, EncumberedCents: 200},
	}, adjs)
}

func TestLedgerDeltasLifecycleZeroSum(t *testing.T) {
	items := []LineItem{
		{BudgetLineID: 1, Quantity: 2, UnitCents: 5000},
		{BudgetLineID: 2, Quantity: 1, UnitCents: 3000},
	}
	path := []Status{StatusPending, StatusApproved, StatusCompleted, StatusCancelled}

	// Walking the full lifecycle and summing every delta nets to zero on both
	// ledger columns for every budget line.
	net := map[int64]LedgerAdjustment{}
	from := StatusDraft
	for _, to := range path {
		for _, adj := range LedgerDeltas(&from, to, items) {
			entry := net[adj.BudgetLineID]
			entry.EncumberedCents += adj.EncumberedCents
			entry.ActualCents += adj.ActualCents
			net[adj.BudgetLineID] = entry
		}
		from = to
	}
	for id, entry := range net {
		require.Zero(t, entry.EncumberedCents, "line %d", id)
		require.Zero(t, entry.ActualCents, "line %d", id)
	}
}

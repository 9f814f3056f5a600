package purchasing

// LedgerAdjustment is one signed change to a budget line's ledger columns.
type LedgerAdjustment struct {
	BudgetLineID    int64
	EncumberedCents int64
	ActualCents     int64
}

// statusHolds returns the ledger contribution an order in the given status
// holds against a budget line: approved orders encumber their amount,
// completed orders have actualised it. All other states hold nothing.
func statusHolds(status Status, amountCents int64) (encumbered, actual int64) {
	switch status {
	case StatusApproved:
		return amountCents, 0
	case StatusCompleted:
		return 0, amountCents
	default:
		return 0, 0
	}
}

// LedgerDeltas computes the budget line adjustments implied by a status
// change, as the difference between what the order holds in the new status and
// what it held in the old one. A nil old status means the order contributes
// from scratch, which is how reconciliation re-derives ledgers. Lines whose
// net change is zero are omitted so callers never issue no-op updates.
func LedgerDeltas(old *Status, next Status, items []LineItem) []LedgerAdjustment {
	perLine := make(map[int64]*LedgerAdjustment)
	order := make([]int64, 0, len(items))

	for _, item := range items {
		amount := item.AmountCents()
		newEnc, newAct := statusHolds(next, amount)
		var oldEnc, oldAct int64
		if old != nil {
			oldEnc, oldAct = statusHolds(*old, amount)
		}
		adj, ok := perLine[item.BudgetLineID]
		if !ok {
			adj = &LedgerAdjustment{BudgetLineID: item.BudgetLineID}
			perLine[item.BudgetLineID] = adj
			order = append(order, item.BudgetLineID)
		}
		adj.EncumberedCents += newEnc - oldEnc
		adj.ActualCents += newAct - oldAct
	}

	out := make([]LedgerAdjustment, 0, len(order))
	for _, id := range order {
		adj := perLine[id]
		if adj.EncumberedCents == 0 && adj.ActualCents == 0 {
			continue
		}
		out = append(out, *adj)
	}
	return out
}

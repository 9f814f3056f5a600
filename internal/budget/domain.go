package budget

import (
	"errors"
	"time"
)

// BudgetLine is one allocation with its running ledger. EncumberedCents and
// ActualCents are maintained incrementally by order transitions and can be
// re-derived in full from the orders themselves.
type BudgetLine struct {
	ID              int64     `json:"id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	FiscalYear      int       `json:"fiscalYear"`
	BudgetCents     int64     `json:"budgetCents"`
	EncumberedCents int64     `json:"encumberedCents"`
	ActualCents     int64     `json:"actualCents"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// AvailableCents is the remaining spendable amount.
func (b BudgetLine) AvailableCents() int64 {
	return b.BudgetCents - b.EncumberedCents - b.ActualCents
}

// Ledger is the derived pair of ledger sums for one budget line.
type Ledger struct {
	EncumberedCents int64 `json:"encumberedCents"`
	ActualCents     int64 `json:"actualCents"`
}

// Drift describes one budget line whose stored ledger diverges from the sums
// derived from its orders.
type Drift struct {
	BudgetLineID int64  `json:"budgetLineId"`
	Code         string `json:"code"`
	Stored       Ledger `json:"stored"`
	Derived      Ledger `json:"derived"`
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("budget: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("budget: invalid input")
	// ErrDuplicate indicates a code collision within a fiscal year.
	ErrDuplicate = errors.New("budget: duplicate line code")
)

package purchasing

import (
	"errors"
	"time"
)

// Status enumerates purchase order lifecycle states.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING_APPROVAL"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// LineItem is one order line charged against a budget line.
type LineItem struct {
	ID           int64  `json:"id"`
	OrderID      int64  `json:"orderId"`
	BudgetLineID int64  `json:"budgetLineId"`
	Description  string `json:"description"`
	Quantity     int    `json:"quantity"`
	UnitCents    int64  `json:"unitCents"`
}

// AmountCents returns the line total.
func (li LineItem) AmountCents() int64 {
	return int64(li.Quantity) * li.UnitCents
}

// PurchaseOrder is the aggregate root of the purchasing module.
type PurchaseOrder struct {
	ID          int64      `json:"id"`
	Number      string     `json:"number"`
	VendorName  string     `json:"vendorName"`
	Status      Status     `json:"status"`
	RequestedBy int64      `json:"requestedBy"`
	Note        string     `json:"note"`
	Items       []LineItem `json:"items"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TotalCents sums all line amounts.
func (po PurchaseOrder) TotalCents() int64 {
	var total int64
	for _, item := range po.Items {
		total += item.AmountCents()
	}
	return total
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	Status Status
	Vendor string
	Limit  int
	Offset int
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("purchasing: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("purchasing: invalid input")
	// ErrInvalidState indicates a disallowed lifecycle transition.
	ErrInvalidState = errors.New("purchasing: invalid state transition")
	// ErrDuplicate indicates an order number collision.
	ErrDuplicate = errors.New("purchasing: duplicate order number")
)

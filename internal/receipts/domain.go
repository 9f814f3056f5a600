package receipts

import (
	"errors"
	"time"
)

// Receipt records goods or an invoice received against a purchase order.
type Receipt struct {
	ID          int64     `json:"id"`
	OrderID     int64     `json:"orderId"`
	Reference   string    `json:"reference"`
	AmountCents int64     `json:"amountCents"`
	ReceivedBy  int64     `json:"receivedBy"`
	ReceivedAt  time.Time `json:"receivedAt"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MatchResult summarises how the receipts recorded against an order compare
// to the order itself.
type MatchResult struct {
	OrderID         int64  `json:"orderId"`
	OrderStatus     string `json:"orderStatus"`
	OrderTotalCents int64  `json:"orderTotalCents"`
	ReceivedCents   int64  `json:"receivedCents"`
	ReceiptCount    int    `json:"receiptCount"`
	Matched         bool   `json:"matched"`
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("receipts: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("receipts: invalid input")
	// ErrOrderNotReceivable indicates the order is not in a state that can
	// take receipts.
	ErrOrderNotReceivable = errors.New("receipts: order cannot take receipts")
)

package receipts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lattice-ops/lattice/internal/purchasing"
	"github.com/lattice-ops/lattice/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	Insert(ctx context.Context, receipt Receipt) (int64, error)
	Get(ctx context.Context, id int64) (Receipt, error)
	ListByOrder(ctx context.Context, orderID int64) ([]Receipt, error)
	Delete(ctx context.Context, id int64) error
}

// OrderPort looks up purchase orders from the purchasing module.
type OrderPort interface {
	GetOrder(ctx context.Context, id int64) (purchasing.PurchaseOrder, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service records receipts against orders and matches them up.
type Service struct {
	repo   RepositoryPort
	orders OrderPort
	audit  AuditPort
}

// NewService constructs the receipts service.
func NewService(repo RepositoryPort, orders OrderPort, audit AuditPort) *Service {
	return &Service{repo: repo, orders: orders, audit: audit}
}

// CreateInput carries the fields accepted when recording a receipt.
type CreateInput struct {
	OrderID     int64
	Reference   string
	AmountCents int64
	ReceivedBy  int64
	ReceivedAt  time.Time
	Note        string
}

// Create records a receipt. Only approved or completed orders can take
// receipts; anything earlier in the lifecycle has nothing to receive against.
func (s *Service) Create(ctx context.Context, input CreateInput) (Receipt, error) {
	if strings.TrimSpace(input.Reference) == "" {
		return Receipt{}, fmt.Errorf("%w: reference required", ErrValidation)
	}
	if input.AmountCents <= 0 {
		return Receipt{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	po, err := s.orders.GetOrder(ctx, input.OrderID)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: order %d", ErrNotFound, input.OrderID)
	}
	if po.Status != purchasing.StatusApproved && po.Status != purchasing.StatusCompleted {
		return Receipt{}, fmt.Errorf("%w: order %d is %s", ErrOrderNotReceivable, po.ID, po.Status)
	}

	receipt := Receipt{
		OrderID:     input.OrderID,
		Reference:   strings.TrimSpace(input.Reference),
		AmountCents: input.AmountCents,
		ReceivedBy:  input.ReceivedBy,
		ReceivedAt:  input.ReceivedAt,
		Note:        input.Note,
	}
	if receipt.ReceivedAt.IsZero() {
		receipt.ReceivedAt = time.Now()
	}
	id, err := s.repo.Insert(ctx, receipt)
	if err != nil {
		return Receipt{}, err
	}
	receipt.ID = id
	s.recordAudit(ctx, input.ReceivedBy, "RECEIPT_CREATE", id, map[string]any{"order_id": input.OrderID, "amount_cents": input.AmountCents})
	return s.repo.Get(ctx, id)
}

// Get loads one receipt.
func (s *Service) Get(ctx context.Context, id int64) (Receipt, error) {
	return s.repo.Get(ctx, id)
}

// ListByOrder returns all receipts against one order.
func (s *Service) ListByOrder(ctx context.Context, orderID int64) ([]Receipt, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

// Delete removes a mis-entered receipt.
func (s *Service) Delete(ctx context.Context, id, actorID int64) error {
	receipt, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "RECEIPT_DELETE", id, map[string]any{"order_id": receipt.OrderID})
	return nil
}

// MatchOrder compares the receipts against the order total. An order is
// matched when it is completed and fully received.
func (s *Service) MatchOrder(ctx context.Context, orderID int64) (MatchResult, error) {
	po, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return MatchResult{}, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	received, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return MatchResult{}, err
	}
	result := MatchResult{
		OrderID:         po.ID,
		OrderStatus:     string(po.Status),
		OrderTotalCents: po.TotalCents(),
		ReceiptCount:    len(received),
	}
	for _, receipt := range received {
		result.ReceivedCents += receipt.AmountCents
	}
	result.Matched = po.Status == purchasing.StatusCompleted && result.ReceivedCents == result.OrderTotalCents
	return result, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "receipt", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

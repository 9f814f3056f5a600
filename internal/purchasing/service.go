package purchasing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lattice-ops/lattice/internal/observability"
	"github.com/lattice-ops/lattice/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (PurchaseOrder, error)
	GetOrderByNumber(ctx context.Context, number string) (PurchaseOrder, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]PurchaseOrder, error)
	CountOrders(ctx context.Context, filter OrderFilter) (int, error)
}

// TxRepository exposes transactional operations. AdjustBudgetLine must apply
// the deltas as in-database increments so concurrent transitions against the
// same budget line cannot lose updates.
type TxRepository interface {
	InsertOrder(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertItems(ctx context.Context, orderID int64, items []LineItem) error
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	AdjustBudgetLine(ctx context.Context, adj LedgerAdjustment) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ApprovalPort records approval history.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// IdempotencyPort guards operations that must run at most once.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service orchestrates the purchase order lifecycle and keeps budget ledgers
// in step with it.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	approvals   ApprovalPort
	idempotency IdempotencyPort
	metrics     *observability.Metrics

	// autoApproveLimitCents auto-approves submissions at or below this total.
	// Zero disables the shortcut.
	autoApproveLimitCents int64
}

// NewService constructs the purchasing service.
func NewService(repo RepositoryPort, audit AuditPort, approvals ApprovalPort, idempotency IdempotencyPort, metrics *observability.Metrics, autoApproveLimitCents int64) *Service {
	return &Service{
		repo:                  repo,
		audit:                 audit,
		approvals:             approvals,
		idempotency:           idempotency,
		metrics:               metrics,
		autoApproveLimitCents: autoApproveLimitCents,
	}
}

// CreateOrderInput carries the fields accepted when drafting an order.
type CreateOrderInput struct {
	Number      string
	VendorName  string
	RequestedBy int64
	Note        string
	Items       []LineItem
}

// CreateOrder drafts a new purchase order. Drafts hold nothing against any
// budget line until approved.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (PurchaseOrder, error) {
	if strings.TrimSpace(input.VendorName) == "" {
		return PurchaseOrder{}, fmt.Errorf("%w: vendor name required", ErrValidation)
	}
	if len(input.Items) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: at least one line item required", ErrValidation)
	}
	for i, item := range input.Items {
		if item.BudgetLineID <= 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: item %d missing budget line", ErrValidation, i)
		}
		if item.Quantity <= 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: item %d quantity must be positive", ErrValidation, i)
		}
		if item.UnitCents < 0 {
			return PurchaseOrder{}, fmt.Errorf("%w: item %d unit price must not be negative", ErrValidation, i)
		}
	}

	po := PurchaseOrder{
		Number:      strings.TrimSpace(input.Number),
		VendorName:  strings.TrimSpace(input.VendorName),
		Status:      StatusDraft,
		RequestedBy: input.RequestedBy,
		Note:        input.Note,
		Items:       input.Items,
	}
	if po.Number == "" {
		po.Number = generateOrderNumber()
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertOrder(ctx, po)
		if err != nil {
			return err
		}
		po.ID = id
		return tx.InsertItems(ctx, id, po.Items)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, input.RequestedBy, "PO_CREATE", po.ID, map[string]any{"number": po.Number, "total_cents": po.TotalCents()})
	return s.repo.GetOrder(ctx, po.ID)
}

// GetOrder loads one order with its items.
func (s *Service) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListOrders returns one page of orders matching the filter along with
// pagination metadata.
func (s *Service) ListOrders(ctx context.Context, filter OrderFilter, page, perPage int) ([]PurchaseOrder, shared.Pagination, error) {
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}
	if page <= 0 {
		page = 1
	}
	total, err := s.repo.CountOrders(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	filter.Limit = perPage
	filter.Offset = (page - 1) * perPage
	orders, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return orders, shared.NewPagination(page, perPage, total), nil
}

// Submit moves a draft into approval. Orders whose total falls within the
// auto-approval limit are approved in the same call, attributed to the
// submitter.
func (s *Service) Submit(ctx context.Context, id, actorID int64, note string) (PurchaseOrder, error) {
	po, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if err := s.transition(ctx, po, StatusPending); err != nil {
		return PurchaseOrder{}, err
	}
	s.recordApproval(ctx, po.ID, actorID, shared.ApprovalSubmit, note)
	s.recordAudit(ctx, actorID, "PO_SUBMIT", po.ID, map[string]any{"number": po.Number})

	if s.autoApproveLimitCents > 0 && po.TotalCents() <= s.autoApproveLimitCents {
		po.Status = StatusPending
		if err := s.transition(ctx, po, StatusApproved); err != nil {
			return PurchaseOrder{}, err
		}
		s.recordApproval(ctx, po.ID, actorID, shared.ApprovalApprove, "auto-approved within limit")
		s.recordAudit(ctx, actorID, "PO_AUTO_APPROVE", po.ID, map[string]any{"number": po.Number, "limit_cents": s.autoApproveLimitCents})
	}
	return s.repo.GetOrder(ctx, id)
}

// Approve encumbers the order total against its budget lines.
func (s *Service) Approve(ctx context.Context, id, actorID int64, note string) (PurchaseOrder, error) {
	po, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if err := s.transition(ctx, po, StatusApproved); err != nil {
		return PurchaseOrder{}, err
	}
	s.recordApproval(ctx, po.ID, actorID, shared.ApprovalApprove, note)
	s.recordAudit(ctx, actorID, "PO_APPROVE", po.ID, map[string]any{"number": po.Number})
	return s.repo.GetOrder(ctx, id)
}

// Reject sends a pending order back without touching any ledger.
func (s *Service) Reject(ctx context.Context, id, actorID int64, note string) (PurchaseOrder, error) {
	po, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if err := s.transition(ctx, po, StatusRejected); err != nil {
		return PurchaseOrder{}, err
	}
	s.recordApproval(ctx, po.ID, actorID, shared.ApprovalReject, note)
	s.recordAudit(ctx, actorID, "PO_REJECT", po.ID, map[string]any{"number": po.Number})
	return s.repo.GetOrder(ctx, id)
}

// Reopen returns a rejected order to draft so it can be edited and submitted
// again.
func (s *Service) Reopen(ctx context.Context, id, actorID int64, note string) (PurchaseOrder, error) {
	po, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if err := s.transition(ctx, po, StatusDraft); err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actorID, "PO_REOPEN", po.ID, map[string]any{"number": po.Number, "note": note})
	return s.repo.GetOrder(ctx, id)
}

// Complete converts the order's encumbrance into actual spend. Guarded by an
// idempotency key so a retried completion cannot double-book the ledger; the
// key is released again when the transition itself fails.
func (s *Service) Complete(ctx context.Context, id, actorID int64) (PurchaseOrder, error) {
	po, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	key := fmt.Sprintf("PO:%s:complete", po.Number)
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "purchasing"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return PurchaseOrder{}, fmt.Errorf("%w: completion already processed", ErrInvalidState)
			}
			return PurchaseOrder{}, err
		}
	}
	if err := s.transition(ctx, po, StatusCompleted); err != nil {
		if s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, key)
		}
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actorID, "PO_COMPLETE", po.ID, map[string]any{"number": po.Number, "total_cents": po.TotalCents()})
	return s.repo.GetOrder(ctx, id)
}

// Cancel voids the order, releasing whatever it held against the ledger.
func (s *Service) Cancel(ctx context.Context, id, actorID int64, note string) (PurchaseOrder, error) {
	po, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if err := s.transition(ctx, po, StatusCancelled); err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actorID, "PO_CANCEL", po.ID, map[string]any{"number": po.Number, "note": note})
	return s.repo.GetOrder(ctx, id)
}

// transition validates the move and applies the status write and every ledger
// adjustment inside one transaction, so readers never observe the status and
// the ledger out of step.
func (s *Service) transition(ctx context.Context, po PurchaseOrder, to Status) error {
	if !CanTransition(po.Status, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidState, po.Status, to)
	}
	from := po.Status
	adjustments := LedgerDeltas(&from, to, po.Items)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateStatus(ctx, po.ID, from, to); err != nil {
			return err
		}
		for _, adj := range adjustments {
			if err := tx.AdjustBudgetLine(ctx, adj); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	label := fmt.Sprintf("%s->%s", from, to)
	for range adjustments {
		s.metrics.ObserveLedgerAdjustment(label)
	}
	return nil
}

func (s *Service) recordApproval(ctx context.Context, orderID, actorID int64, action shared.ApprovalAction, note string) {
	if s.approvals == nil {
		return
	}
	_ = s.approvals.Record(ctx, shared.ApprovalLog{
		Module:  "purchasing",
		RefID:   orderRef(orderID),
		ActorID: actorID,
		Action:  action,
		Note:    note,
		At:      time.Now(),
	})
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "purchase_order", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

// orderRef derives a stable UUID for the approvals table from the order id.
func orderRef(orderID int64) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("po:%d", orderID)))
}

func generateOrderNumber() string {
	return "PO-" + strings.ToUpper(uuid.NewString()[:8])
}

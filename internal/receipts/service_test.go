package receipts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lattice-ops/lattice/internal/purchasing"
	"github.com/lattice-ops/lattice/internal/shared"
)

type memoryRepo struct {
	receipts map[int64]*Receipt
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{receipts: map[int64]*Receipt{}}
}

func (r *memoryRepo) Insert(_ context.Context, receipt Receipt) (int64, error) {
	r.nextID++
	receipt.ID = r.nextID
	receipt.CreatedAt = time.Now()
	stored := receipt
	r.receipts[receipt.ID] = &stored
	return receipt.ID, nil
}

func (r *memoryRepo) Get(_ context.Context, id int64) (Receipt, error) {
	receipt, ok := r.receipts[id]
	if !ok {
		return Receipt{}, ErrNotFound
	}
	return *receipt, nil
}

func (r *memoryRepo) ListByOrder(_ context.Context, orderID int64) ([]Receipt, error) {
	var out []Receipt
	for id := int64(1); id <= r.nextID; id++ {
		receipt, ok := r.receipts[id]
		if ok && receipt.OrderID == orderID {
			out = append(out, *receipt)
		}
	}
	return out, nil
}

func (r *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.receipts[id]; !ok {
		return ErrNotFound
	}
	delete(r.receipts, id)
	return nil
}

type memoryOrders struct {
	orders map[int64]purchasing.PurchaseOrder
}

func (o *memoryOrders) GetOrder(_ context.Context, id int64) (purchasing.PurchaseOrder, error) {
	po, ok := o.orders[id]
	if !ok {
		return purchasing.PurchaseOrder{}, purchasing.ErrNotFound
	}
	return po, nil
}

type memoryAudit struct {
	logs []shared.AuditLog
}

func (a *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newTestService(orders map[int64]purchasing.PurchaseOrder) (*Service, *memoryRepo, *memoryAudit) {
	repo := newMemoryRepo()
	audit := &memoryAudit{}
	return NewService(repo, &memoryOrders{orders: orders}, audit), repo, audit
}

func testOrder(id int64, status purchasing.Status, totalCents int64) purchasing.PurchaseOrder {
	return purchasing.PurchaseOrder{
		ID:     id,
		Number: "PO-TEST",
		Status: status,
		Items:  []purchasing.LineItem{{BudgetLineID: 1, Quantity: 1, UnitCents: totalCents}},
	}
}

func TestCreateReceipt(t *testing.T) {
	svc, _, audit := newTestService(map[int64]purchasing.PurchaseOrder{
		1: testOrder(1, purchasing.StatusApproved, 10000),
	})
	ctx := context.Background()

	receipt, err := svc.Create(ctx, CreateInput{OrderID: 1, Reference: "INV-42", AmountCents: 6000, ReceivedBy: 3})
	require.NoError(t, err)
	require.Equal(t, int64(1), receipt.ID)
	require.False(t, receipt.ReceivedAt.IsZero())
	require.Len(t, audit.logs, 1)
	require.Equal(t, "RECEIPT_CREATE", audit.logs[0].Action)
}

func TestCreateReceiptValidation(t *testing.T) {
	svc, _, _ := newTestService(map[int64]purchasing.PurchaseOrder{
		1: testOrder(1, purchasing.StatusApproved, 10000),
		2: testOrder(2, purchasing.StatusDraft, 10000),
	})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{OrderID: 1, Reference: " ", AmountCents: 100})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{OrderID: 1, Reference: "INV-1", AmountCents: 0})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{OrderID: 99, Reference: "INV-1", AmountCents: 100})
	require.ErrorIs(t, err, ErrNotFound)

	// Draft orders have nothing to receive against.
	_, err = svc.Create(ctx, CreateInput{OrderID: 2, Reference: "INV-1", AmountCents: 100})
	require.ErrorIs(t, err, ErrOrderNotReceivable)
}

func TestDeleteReceipt(t *testing.T) {
	svc, repo, _ := newTestService(map[int64]purchasing.PurchaseOrder{
		1: testOrder(1, purchasing.StatusApproved, 10000),
	})
	ctx := context.Background()

	receipt, err := svc.Create(ctx, CreateInput{OrderID: 1, Reference: "INV-42", AmountCents: 6000})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, receipt.ID, 3))
	require.Empty(t, repo.receipts)
	require.ErrorIs(t, svc.Delete(ctx, receipt.ID, 3), ErrNotFound)
}

func TestMatchOrder(t *testing.T) {
	orders := map[int64]purchasing.PurchaseOrder{
		1: testOrder(1, purchasing.StatusCompleted, 10000),
		2: testOrder(2, purchasing.StatusApproved, 5000),
	}
	svc, _, _ := newTestService(orders)
	ctx := context.Background()

	// Partially received: not matched.
	_, err := svc.Create(ctx, CreateInput{OrderID: 1, Reference: "INV-1", AmountCents: 4000})
	require.NoError(t, err)
	result, err := svc.MatchOrder(ctx, 1)
	require.NoError(t, err)
	require.False(t, result.Matched)
	require.Equal(t, int64(4000), result.ReceivedCents)

	// Fully received and completed: matched.
	_, err = svc.Create(ctx, CreateInput{OrderID: 1, Reference: "INV-2", AmountCents: 6000})
	require.NoError(t, err)
	result, err = svc.MatchOrder(ctx, 1)
	require.NoError(t, err)
	require.True(t, result.Matched)
	require.Equal(t, 2, result.ReceiptCount)

	// Fully received but only approved: not matched yet.
	_, err = svc.Create(ctx, CreateInput{OrderID: 2, Reference: "INV-3", AmountCents: 5000})
	require.NoError(t, err)
	result, err = svc.MatchOrder(ctx, 2)
	require.NoError(t, err)
	require.False(t, result.Matched)
	require.Equal(t, int64(5000), result.ReceivedCents)
}

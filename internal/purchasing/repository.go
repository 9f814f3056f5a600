package purchasing

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const orderColumns = `id, number, vendor_name, status, requested_by, note, created_at, updated_at`

// GetOrder loads one order and its items.
func (r *Repository) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id=$1`, id)
}

// GetOrderByNumber loads one order by its business number.
func (r *Repository) GetOrderByNumber(ctx context.Context, number string) (PurchaseOrder, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE number=$1`, number)
}

func (r *Repository) getOrder(ctx context.Context, query string, arg any) (PurchaseOrder, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	po, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	items, err := r.listItems(ctx, po.ID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Items = items
	return po, nil
}

// CountOrders returns how many orders match the filter.
func (r *Repository) CountOrders(ctx context.Context, filter OrderFilter) (int, error) {
	query := `SELECT COUNT(*) FROM purchase_orders WHERE 1=1`
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status=$` + strconv.Itoa(len(args))
	}
	if filter.Vendor != "" {
		args = append(args, "%"+filter.Vendor+"%")
		query += ` AND vendor_name ILIKE $` + strconv.Itoa(len(args))
	}
	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ListOrders returns orders matching the filter, newest first, without items.
func (r *Repository) ListOrders(ctx context.Context, filter OrderFilter) ([]PurchaseOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM purchase_orders WHERE 1=1`
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status=$` + strconv.Itoa(len(args))
	}
	if filter.Vendor != "" {
		args = append(args, "%"+filter.Vendor+"%")
		query += ` AND vendor_name ILIKE $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		po, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, po)
	}
	return orders, rows.Err()
}

func (r *Repository) listItems(ctx context.Context, orderID int64) ([]LineItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, budget_line_id, description, quantity, unit_cents
FROM purchase_order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.BudgetLineID, &item.Description, &item.Quantity, &item.UnitCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (tx *txRepo) InsertOrder(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_orders (number, vendor_name, status, requested_by, note)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		po.Number, po.VendorName, string(po.Status), po.RequestedBy, po.Note).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (tx *txRepo) InsertItems(ctx context.Context, orderID int64, items []LineItem) error {
	for _, item := range items {
		_, err := tx.tx.Exec(ctx, `INSERT INTO purchase_order_items (order_id, budget_line_id, description, quantity, unit_cents)
VALUES ($1, $2, $3, $4, $5)`, orderID, item.BudgetLineID, item.Description, item.Quantity, item.UnitCents)
		if err != nil {
			return err
		}
	}
	return nil
}

// UpdateStatus performs a compare-and-set on the order status; a concurrent
// transition makes the match fail.
func (tx *txRepo) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET status=$1, updated_at=NOW()
WHERE id=$2 AND status=$3`, string(to), id, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %d no longer %s", ErrInvalidState, id, from)
	}
	return nil
}

// AdjustBudgetLine applies the signed deltas as in-database increments.
func (tx *txRepo) AdjustBudgetLine(ctx context.Context, adj LedgerAdjustment) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE budget_lines
SET encumbered_cents = encumbered_cents + $1, actual_cents = actual_cents + $2, updated_at = NOW()
WHERE id=$3`, adj.EncumberedCents, adj.ActualCents, adj.BudgetLineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: budget line %d", ErrNotFound, adj.BudgetLineID)
	}
	return nil
}

func scanOrder(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	var status string
	if err := row.Scan(&po.ID, &po.Number, &po.VendorName, &status, &po.RequestedBy, &po.Note, &po.CreatedAt, &po.UpdatedAt); err != nil {
		return PurchaseOrder{}, err
	}
	po.Status = Status(status)
	return po, nil
}

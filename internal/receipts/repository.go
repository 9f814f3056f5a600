package receipts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
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

const receiptColumns = `id, order_id, reference, amount_cents, received_by, received_at, note, created_at`

// Insert stores a receipt and returns its id.
func (r *Repository) Insert(ctx context.Context, receipt Receipt) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO receipts (order_id, reference, amount_cents, received_by, received_at, note)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		receipt.OrderID, receipt.Reference, receipt.AmountCents, receipt.ReceivedBy, receipt.ReceivedAt, receipt.Note).Scan(&id)
	return id, err
}

// Get loads one receipt.
func (r *Repository) Get(ctx context.Context, id int64) (Receipt, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE id=$1`, id)
	receipt, err := scanReceipt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Receipt{}, ErrNotFound
		}
		return Receipt{}, err
	}
	return receipt, nil
}

// ListByOrder returns receipts for one order, oldest first.
func (r *Repository) ListByOrder(ctx context.Context, orderID int64) ([]Receipt, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE order_id=$1 ORDER BY received_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}
	return receipts, rows.Err()
}

// Delete removes a receipt.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM receipts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanReceipt(row pgx.Row) (Receipt, error) {
	var receipt Receipt
	err := row.Scan(&receipt.ID, &receipt.OrderID, &receipt.Reference, &receipt.AmountCents,
		&receipt.ReceivedBy, &receipt.ReceivedAt, &receipt.Note, &receipt.CreatedAt)
	if err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

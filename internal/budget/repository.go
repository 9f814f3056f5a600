package budget

import (
	"context"
	"errors"
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

const lineColumns = `id, code, name, fiscal_year, budget_cents, encumbered_cents, actual_cents, created_at, updated_at`

// GetLine loads one budget line.
func (r *Repository) GetLine(ctx context.Context, id int64) (BudgetLine, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+lineColumns+` FROM budget_lines WHERE id=$1`, id)
	line, err := scanLine(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BudgetLine{}, ErrNotFound
		}
		return BudgetLine{}, err
	}
	return line, nil
}

// ListLines returns lines ordered by code; zero fiscalYear selects all years.
func (r *Repository) ListLines(ctx context.Context, fiscalYear int) ([]BudgetLine, error) {
	query := `SELECT ` + lineColumns + ` FROM budget_lines`
	args := []any{}
	if fiscalYear != 0 {
		args = append(args, fiscalYear)
		query += ` WHERE fiscal_year=$` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY fiscal_year, code`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []BudgetLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

const deriveQuery = `SELECT i.budget_line_id,
COALESCE(SUM(CASE WHEN o.status = 'APPROVED' THEN i.quantity * i.unit_cents ELSE 0 END), 0),
COALESCE(SUM(CASE WHEN o.status = 'COMPLETED' THEN i.quantity * i.unit_cents ELSE 0 END), 0)
FROM purchase_order_items i
JOIN purchase_orders o ON o.id = i.order_id
WHERE o.status IN ('APPROVED', 'COMPLETED')
GROUP BY i.budget_line_id`

// DeriveLedgers recomputes the ledger sums from the orders.
func (r *Repository) DeriveLedgers(ctx context.Context) (map[int64]Ledger, error) {
	rows, err := r.pool.Query(ctx, deriveQuery)
	if err != nil {
		return nil, err
	}
	return collectLedgers(rows)
}

func (tx *txRepo) DeriveLedgers(ctx context.Context) (map[int64]Ledger, error) {
	rows, err := tx.tx.Query(ctx, deriveQuery)
	if err != nil {
		return nil, err
	}
	return collectLedgers(rows)
}

func collectLedgers(rows pgx.Rows) (map[int64]Ledger, error) {
	defer rows.Close()
	ledgers := make(map[int64]Ledger)
	for rows.Next() {
		var id int64
		var ledger Ledger
		if err := rows.Scan(&id, &ledger.EncumberedCents, &ledger.ActualCents); err != nil {
			return nil, err
		}
		ledgers[id] = ledger
	}
	return ledgers, rows.Err()
}

func (tx *txRepo) InsertLine(ctx context.Context, line BudgetLine) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO budget_lines (code, name, fiscal_year, budget_cents)
VALUES ($1, $2, $3, $4) RETURNING id`, line.Code, line.Name, line.FiscalYear, line.BudgetCents).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return id, nil
}

func (tx *txRepo) UpdateLine(ctx context.Context, line BudgetLine) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE budget_lines SET name=$1, budget_cents=$2, updated_at=NOW()
WHERE id=$3`, line.Name, line.BudgetCents, line.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (tx *txRepo) ZeroLedgers(ctx context.Context) error {
	_, err := tx.tx.Exec(ctx, `UPDATE budget_lines SET encumbered_cents=0, actual_cents=0, updated_at=NOW()`)
	return err
}

func (tx *txRepo) SetLedger(ctx context.Context, id int64, ledger Ledger) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE budget_lines SET encumbered_cents=$1, actual_cents=$2, updated_at=NOW()
WHERE id=$3`, ledger.EncumberedCents, ledger.ActualCents, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanLine(row pgx.Row) (BudgetLine, error) {
	var line BudgetLine
	err := row.Scan(&line.ID, &line.Code, &line.Name, &line.FiscalYear,
		&line.BudgetCents, &line.EncumberedCents, &line.ActualCents,
		&line.CreatedAt, &line.UpdatedAt)
	if err != nil {
		return BudgetLine{}, err
	}
	return line, nil
}

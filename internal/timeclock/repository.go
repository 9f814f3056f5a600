package timeclock

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
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

const entryColumns = `id, employee_id, clock_in, clock_out, duration_seconds, note`

// GetOpenEntry returns the employee's open session, if any.
func (r *Repository) GetOpenEntry(ctx context.Context, employeeID int64) (TimeEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM timeclock_entries
WHERE employee_id=$1 AND clock_out IS NULL ORDER BY clock_in DESC LIMIT 1`, employeeID)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TimeEntry{}, ErrNotFound
		}
		return TimeEntry{}, err
	}
	return entry, nil
}

// ListEntries returns entries with clock-in inside [from, to).
func (r *Repository) ListEntries(ctx context.Context, employeeID int64, from, to time.Time) ([]TimeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM timeclock_entries WHERE clock_in >= $1 AND clock_in < $2`
	args := []any{from, to}
	if employeeID != 0 {
		query += ` AND employee_id = $3`
		args = append(args, employeeID)
	}
	query += ` ORDER BY clock_in`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []TimeEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ListOpenEntriesBefore returns open sessions whose clock-in precedes cutoff.
func (r *Repository) ListOpenEntriesBefore(ctx context.Context, cutoff time.Time) ([]TimeEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM timeclock_entries
WHERE clock_out IS NULL AND clock_in < $1 ORDER BY clock_in`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []TimeEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// GetSettings loads the configuration singleton, falling back to the default
// weekly-starting-Sunday spec with alerting disabled when the row is absent.
func (r *Repository) GetSettings(ctx context.Context) (Settings, error) {
	var (
		daily, weekly         pgtype.Int4
		alertDaily, alertWeek int
		kind                  string
		weekStartDay          int
		anchor                pgtype.Date
	)
	err := r.pool.QueryRow(ctx, `SELECT daily_threshold_minutes, weekly_threshold_minutes,
alert_before_daily_minutes, alert_before_weekly_minutes, period_kind, week_start_day, reference_anchor
FROM timeclock_settings WHERE id=1`).
		Scan(&daily, &weekly, &alertDaily, &alertWeek, &kind, &weekStartDay, &anchor)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{PeriodSpec: PayPeriodSpec{Kind: PayPeriodWeekly}}, nil
		}
		return Settings{}, err
	}

	settings := Settings{PeriodSpec: PayPeriodSpec{Kind: PayPeriodKind(kind), WeekStartDay: weekStartDay}}
	if anchor.Valid {
		settings.PeriodSpec.ReferenceAnchor = anchor.Time
	}
	if daily.Valid || weekly.Valid {
		th := &OvertimeThresholds{AlertBeforeDailyMinutes: alertDaily, AlertBeforeWeeklyMinutes: alertWeek}
		if daily.Valid {
			v := int(daily.Int32)
			th.DailyMinutes = &v
		}
		if weekly.Valid {
			v := int(weekly.Int32)
			th.WeeklyMinutes = &v
		}
		settings.Thresholds = th
	}
	return settings, nil
}

func (tx *txRepo) InsertEntry(ctx context.Context, entry TimeEntry) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO timeclock_entries (employee_id, clock_in, note)
VALUES ($1, $2, $3) RETURNING id`, entry.EmployeeID, entry.ClockIn, entry.Note).Scan(&id)
	return id, err
}

func (tx *txRepo) CloseEntry(ctx context.Context, id int64, clockOut time.Time, durationSeconds int64) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE timeclock_entries SET clock_out=$1, duration_seconds=$2
WHERE id=$3 AND clock_out IS NULL`, clockOut, durationSeconds, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (tx *txRepo) SaveSettings(ctx context.Context, settings Settings) error {
	var daily, weekly pgtype.Int4
	var alertDaily, alertWeek int
	if th := settings.Thresholds; th != nil {
		if th.DailyMinutes != nil {
			daily = pgtype.Int4{Int32: int32(*th.DailyMinutes), Valid: true}
		}
		if th.WeeklyMinutes != nil {
			weekly = pgtype.Int4{Int32: int32(*th.WeeklyMinutes), Valid: true}
		}
		alertDaily = th.AlertBeforeDailyMinutes
		alertWeek = th.AlertBeforeWeeklyMinutes
	}
	var anchor pgtype.Date
	if !settings.PeriodSpec.ReferenceAnchor.IsZero() {
		anchor = pgtype.Date{Time: settings.PeriodSpec.ReferenceAnchor, Valid: true}
	}
	_, err := tx.tx.Exec(ctx, `INSERT INTO timeclock_settings
(id, daily_threshold_minutes, weekly_threshold_minutes, alert_before_daily_minutes, alert_before_weekly_minutes, period_kind, week_start_day, reference_anchor)
VALUES (1, $1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
  daily_threshold_minutes=EXCLUDED.daily_threshold_minutes,
  weekly_threshold_minutes=EXCLUDED.weekly_threshold_minutes,
  alert_before_daily_minutes=EXCLUDED.alert_before_daily_minutes,
  alert_before_weekly_minutes=EXCLUDED.alert_before_weekly_minutes,
  period_kind=EXCLUDED.period_kind,
  week_start_day=EXCLUDED.week_start_day,
  reference_anchor=EXCLUDED.reference_anchor`,
		daily, weekly, alertDaily, alertWeek, string(settings.PeriodSpec.Kind), settings.PeriodSpec.WeekStartDay, anchor)
	return err
}

func scanEntry(row pgx.Row) (TimeEntry, error) {
	var entry TimeEntry
	var clockOut pgtype.Timestamptz
	var duration pgtype.Int8
	if err := row.Scan(&entry.ID, &entry.EmployeeID, &entry.ClockIn, &clockOut, &duration, &entry.Note); err != nil {
		return TimeEntry{}, err
	}
	if clockOut.Valid {
		t := clockOut.Time
		entry.ClockOut = &t
	}
	if duration.Valid {
		v := duration.Int64
		entry.DurationSeconds = &v
	}
	return entry, nil
}

package timeclock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lattice-ops/lattice/internal/shared"
)

type memoryRepo struct {
	entries  []TimeEntry
	settings *Settings
	nextID   int64
}

type memoryTx struct {
	repo *memoryRepo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetOpenEntry(_ context.Context, employeeID int64) (TimeEntry, error) {
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if entry.EmployeeID == employeeID && entry.ClockOut == nil {
			return entry, nil
		}
	}
	return TimeEntry{}, ErrNotFound
}

func (r *memoryRepo) ListEntries(_ context.Context, employeeID int64, from, to time.Time) ([]TimeEntry, error) {
	var out []TimeEntry
	for _, entry := range r.entries {
		if employeeID != 0 && entry.EmployeeID != employeeID {
			continue
		}
		if entry.ClockIn.Before(from) || !entry.ClockIn.Before(to) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *memoryRepo) ListOpenEntriesBefore(_ context.Context, cutoff time.Time) ([]TimeEntry, error) {
	var out []TimeEntry
	for _, entry := range r.entries {
		if entry.ClockOut == nil && entry.ClockIn.Before(cutoff) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetSettings(_ context.Context) (Settings, error) {
	if r.settings == nil {
		return Settings{PeriodSpec: PayPeriodSpec{Kind: PayPeriodWeekly}}, nil
	}
	return *r.settings, nil
}

func (tx *memoryTx) InsertEntry(_ context.Context, entry TimeEntry) (int64, error) {
	tx.repo.nextID++
	entry.ID = tx.repo.nextID
	tx.repo.entries = append(tx.repo.entries, entry)
	return entry.ID, nil
}

func (tx *memoryTx) CloseEntry(_ context.Context, id int64, clockOut time.Time, durationSeconds int64) error {
	for i, entry := range tx.repo.entries {
		if entry.ID == id && entry.ClockOut == nil {
			out := clockOut
			seconds := durationSeconds
			tx.repo.entries[i].ClockOut = &out
			tx.repo.entries[i].DurationSeconds = &seconds
			return nil
		}
	}
	return ErrNotFound
}

func (tx *memoryTx) SaveSettings(_ context.Context, settings Settings) error {
	tx.repo.settings = &settings
	return nil
}

type memoryAudit struct {
	logs []shared.AuditLog
}

func (a *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newTestService() (*Service, *memoryRepo, *memoryAudit) {
	repo := &memoryRepo{}
	audit := &memoryAudit{}
	return NewService(repo, audit, nil, time.UTC), repo, audit
}

func TestClockInAndOut(t *testing.T) {
	svc, repo, audit := newTestService()
	ctx := context.Background()
	start := date(2025, time.March, 12).Add(9 * time.Hour)

	entry, err := svc.ClockIn(ctx, 7, start)
	require.NoError(t, err)
	require.Equal(t, int64(1), entry.ID)
	require.Nil(t, entry.ClockOut)

	closed, err := svc.ClockOut(ctx, 7, start.Add(8*time.Hour+30*time.Second))
	require.NoError(t, err)
	require.NotNil(t, closed.DurationSeconds)
	require.Equal(t, int64(8*3600+30), *closed.DurationSeconds)
	require.NotNil(t, repo.entries[0].ClockOut)

	require.Len(t, audit.logs, 2)
	require.Equal(t, "CLOCK_IN", audit.logs[0].Action)
	require.Equal(t, "CLOCK_OUT", audit.logs[1].Action)
}

func TestClockInRejectsSecondOpenSession(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	start := date(2025, time.March, 12).Add(9 * time.Hour)

	_, err := svc.ClockIn(ctx, 7, start)
	require.NoError(t, err)

	_, err = svc.ClockIn(ctx, 7, start.Add(time.Hour))
	require.ErrorIs(t, err, ErrSessionOpen)

	// A different employee is unaffected.
	_, err = svc.ClockIn(ctx, 8, start)
	require.NoError(t, err)
}

func TestClockInRequiresEmployee(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.ClockIn(context.Background(), 0, time.Now())
	require.ErrorIs(t, err, ErrValidation)
}

func TestClockOutWithoutOpenSession(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.ClockOut(context.Background(), 7, time.Now())
	require.ErrorIs(t, err, ErrNoOpenSession)
}

func TestClockOutBeforeClockIn(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	start := date(2025, time.March, 12).Add(9 * time.Hour)

	_, err := svc.ClockIn(ctx, 7, start)
	require.NoError(t, err)

	_, err = svc.ClockOut(ctx, 7, start.Add(-time.Minute))
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateSettingsValidation(t *testing.T) {
	svc, repo, audit := newTestService()
	ctx := context.Background()

	err := svc.UpdateSettings(ctx, Settings{PeriodSpec: PayPeriodSpec{Kind: PayPeriodWeekly, WeekStartDay: 7}}, 1)
	require.ErrorIs(t, err, ErrValidation)

	bad := -1
	err = svc.UpdateSettings(ctx, Settings{
		Thresholds: &OvertimeThresholds{DailyMinutes: &bad},
		PeriodSpec: PayPeriodSpec{Kind: PayPeriodWeekly},
	}, 1)
	require.ErrorIs(t, err, ErrValidation)

	settings := Settings{
		Thresholds: &OvertimeThresholds{DailyMinutes: intPtr(480), AlertBeforeDailyMinutes: 60},
		PeriodSpec: PayPeriodSpec{Kind: PayPeriodBiweekly, WeekStartDay: 1, ReferenceAnchor: date(2025, time.January, 6)},
	}
	require.NoError(t, svc.UpdateSettings(ctx, settings, 1))
	require.NotNil(t, repo.settings)
	require.Equal(t, PayPeriodBiweekly, repo.settings.PeriodSpec.Kind)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "TIMECLOCK_CONFIG", audit.logs[0].Action)
}

func TestLiveStatus(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	now := date(2025, time.March, 12).Add(17 * time.Hour)

	// Alerting disabled: nil status, no error.
	status, err := svc.LiveStatus(ctx, 7, now)
	require.NoError(t, err)
	require.Nil(t, status)

	repo.settings = &Settings{
		Thresholds: &OvertimeThresholds{DailyMinutes: intPtr(480), AlertBeforeDailyMinutes: 60},
		PeriodSpec: PayPeriodSpec{Kind: PayPeriodWeekly},
	}
	repo.entries = append(repo.entries, workDay(7, date(2025, time.March, 12), 300))
	repo.entries[0].ID = 1
	repo.nextID = 1

	// Open session started two hours before now.
	open := TimeEntry{ID: 2, EmployeeID: 7, ClockIn: now.Add(-2 * time.Hour)}
	repo.entries = append(repo.entries, open)
	repo.nextID = 2

	status, err = svc.LiveStatus(ctx, 7, now)
	require.NoError(t, err)
	require.NotNil(t, status)
	require.Equal(t, 420, status.Daily.CurrentMinutes)
	require.True(t, status.Daily.Approaching)
	require.False(t, status.Daily.Exceeded)
}

func TestPeriodSummary(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	repo.settings = &Settings{
		Thresholds: &OvertimeThresholds{DailyMinutes: intPtr(480)},
		PeriodSpec: PayPeriodSpec{Kind: PayPeriodSemimonthly},
	}
	repo.entries = []TimeEntry{
		workDay(1, date(2025, time.March, 3), 600),
		workDay(2, date(2025, time.March, 10), 400),
		workDay(1, date(2025, time.March, 20), 600), // outside the first half
	}

	period, summary, err := svc.PeriodSummary(ctx, date(2025, time.March, 8))
	require.NoError(t, err)
	require.Equal(t, date(2025, time.March, 1), period.Start)
	require.Equal(t, date(2025, time.March, 15), period.End)
	require.Len(t, summary.PerEmployee, 2)
	require.Equal(t, 120, summary.PerEmployee[1].DailyOvertimeMinutes)
	require.Equal(t, 400, summary.PerEmployee[2].RegularMinutes)
}

func TestAutoCloseStale(t *testing.T) {
	svc, repo, audit := newTestService()
	ctx := context.Background()
	now := date(2025, time.March, 12).Add(6 * time.Hour)

	repo.entries = []TimeEntry{
		{ID: 1, EmployeeID: 1, ClockIn: now.Add(-20 * time.Hour)},
		{ID: 2, EmployeeID: 2, ClockIn: now.Add(-2 * time.Hour)},
	}
	repo.nextID = 2

	closed, err := svc.AutoCloseStale(ctx, 16*time.Hour, now)
	require.NoError(t, err)
	require.Equal(t, 1, closed)
	require.NotNil(t, repo.entries[0].ClockOut)
	require.Nil(t, repo.entries[1].ClockOut)
	require.Len(t, audit.logs, 1)
	require.Equal(t, "CLOCK_OUT_AUTO", audit.logs[0].Action)
}

func TestClockInNormalizesToConfiguredZone(t *testing.T) {
	repo := &memoryRepo{}
	zone := time.FixedZone("UTC-5", -5*3600)
	svc := NewService(repo, &memoryAudit{}, nil, zone)
	ctx := context.Background()

	// 03:00 UTC is still the previous evening in the configured zone, so the
	// entry must land on the earlier calendar day.
	at := time.Date(2025, time.March, 10, 3, 0, 0, 0, time.UTC)
	entry, err := svc.ClockIn(ctx, 7, at)
	require.NoError(t, err)
	require.True(t, entry.ClockIn.Equal(at))
	require.Equal(t, zone, entry.ClockIn.Location())
	require.Equal(t, 9, entry.ClockIn.Day())
}

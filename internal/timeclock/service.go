package timeclock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lattice-ops/lattice/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOpenEntry(ctx context.Context, employeeID int64) (TimeEntry, error)
	// ListEntries returns entries whose clock-in falls in [from, to). A zero
	// employeeID selects all employees.
	ListEntries(ctx context.Context, employeeID int64, from, to time.Time) ([]TimeEntry, error)
	ListOpenEntriesBefore(ctx context.Context, cutoff time.Time) ([]TimeEntry, error)
	GetSettings(ctx context.Context) (Settings, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	InsertEntry(ctx context.Context, entry TimeEntry) (int64, error)
	CloseEntry(ctx context.Context, id int64, clockOut time.Time, durationSeconds int64) error
	SaveSettings(ctx context.Context, settings Settings) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates timeclock flows. All instants are normalized to zone
// before day and week bucketing, so clients in other offsets land in the
// employer's calendar days.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	cache *StatusCache
	zone  *time.Location
}

// NewService constructs the timeclock service. A nil zone falls back to UTC.
func NewService(repo RepositoryPort, audit AuditPort, cache *StatusCache, zone *time.Location) *Service {
	if zone == nil {
		zone = time.UTC
	}
	return &Service{repo: repo, audit: audit, cache: cache, zone: zone}
}

// Zone returns the location timeclock instants are bucketed in.
func (s *Service) Zone() *time.Location {
	return s.zone
}

func (s *Service) now() time.Time {
	return time.Now().In(s.zone)
}

// ClockIn opens a new work session for the employee.
func (s *Service) ClockIn(ctx context.Context, employeeID int64, at time.Time) (TimeEntry, error) {
	if employeeID == 0 {
		return TimeEntry{}, ErrValidation
	}
	if at.IsZero() {
		at = s.now()
	} else {
		at = at.In(s.zone)
	}
	_, err := s.repo.GetOpenEntry(ctx, employeeID)
	if err == nil {
		return TimeEntry{}, ErrSessionOpen
	}
	if !errors.Is(err, ErrNotFound) {
		return TimeEntry{}, err
	}
	entry := TimeEntry{EmployeeID: employeeID, ClockIn: at}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		return nil
	})
	if err != nil {
		return TimeEntry{}, err
	}
	s.cache.Invalidate(ctx, employeeID)
	s.recordAudit(ctx, employeeID, "CLOCK_IN", entry.ID, map[string]any{"at": at})
	return entry, nil
}

// ClockOut closes the employee's open session. The stored duration is the
// whole-second span between the two instants.
func (s *Service) ClockOut(ctx context.Context, employeeID int64, at time.Time) (TimeEntry, error) {
	if at.IsZero() {
		at = s.now()
	} else {
		at = at.In(s.zone)
	}
	open, err := s.repo.GetOpenEntry(ctx, employeeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TimeEntry{}, ErrNoOpenSession
		}
		return TimeEntry{}, err
	}
	seconds := int64(at.Sub(open.ClockIn).Seconds())
	if seconds < 0 {
		return TimeEntry{}, ErrValidation
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.CloseEntry(ctx, open.ID, at, seconds)
	})
	if err != nil {
		return TimeEntry{}, err
	}
	open.ClockOut = &at
	open.DurationSeconds = &seconds
	s.cache.Invalidate(ctx, employeeID)
	s.recordAudit(ctx, employeeID, "CLOCK_OUT", open.ID, map[string]any{"seconds": seconds})
	return open, nil
}

// LiveStatus evaluates the employee's overtime alert state, serving a recent
// cached value when available. Returns nil status when alerting is disabled.
func (s *Service) LiveStatus(ctx context.Context, employeeID int64, now time.Time) (*AlertStatus, error) {
	if now.IsZero() {
		now = s.now()
	} else {
		now = now.In(s.zone)
	}
	if cached, ok := s.cache.Get(ctx, employeeID); ok {
		return cached, nil
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.Thresholds.Enabled() {
		return nil, nil
	}
	from := weekStart(now, overtimeWeekStartDay)
	entries, err := s.repo.ListEntries(ctx, employeeID, from, now.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	activeMinutes := 0
	open, err := s.repo.GetOpenEntry(ctx, employeeID)
	switch {
	case err == nil:
		activeMinutes = int(now.Sub(open.ClockIn).Minutes())
		if activeMinutes < 0 {
			activeMinutes = 0
		}
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}
	status := EvaluateAlertStatus(entries, settings.Thresholds, now, activeMinutes)
	if status != nil {
		s.cache.Set(ctx, employeeID, status)
	}
	return status, nil
}

// GetSettings loads the configuration singleton.
func (s *Service) GetSettings(ctx context.Context) (Settings, error) {
	return s.repo.GetSettings(ctx)
}

// UpdateSettings validates and persists the configuration singleton.
func (s *Service) UpdateSettings(ctx context.Context, settings Settings, actorID int64) error {
	if settings.PeriodSpec.WeekStartDay < 0 || settings.PeriodSpec.WeekStartDay > 6 {
		return ErrValidation
	}
	if th := settings.Thresholds; th != nil {
		if th.DailyMinutes != nil && *th.DailyMinutes < 0 {
			return ErrValidation
		}
		if th.WeeklyMinutes != nil && *th.WeeklyMinutes < 0 {
			return ErrValidation
		}
		if th.AlertBeforeDailyMinutes < 0 || th.AlertBeforeWeeklyMinutes < 0 {
			return ErrValidation
		}
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SaveSettings(ctx, settings)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "TIMECLOCK_CONFIG", 1, map[string]any{"kind": settings.PeriodSpec.Kind})
	return nil
}

// Periods returns the count most recent pay periods, newest first.
func (s *Service) Periods(ctx context.Context, ref time.Time, count int) ([]PayPeriod, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if ref.IsZero() {
		ref = s.now()
	}
	return RecentPeriods(ref, settings.PeriodSpec, count), nil
}

// PeriodSummary computes overtime buckets for every employee in the pay
// period containing ref.
func (s *Service) PeriodSummary(ctx context.Context, ref time.Time) (PayPeriod, OvertimeSummary, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return PayPeriod{}, OvertimeSummary{}, err
	}
	if ref.IsZero() {
		ref = s.now()
	}
	period := PeriodFor(ref, settings.PeriodSpec)
	entries, err := s.repo.ListEntries(ctx, 0, period.Start, period.End.AddDate(0, 0, 1))
	if err != nil {
		return PayPeriod{}, OvertimeSummary{}, err
	}
	return period, CalculateOvertime(entries, settings.Thresholds), nil
}

// AutoCloseStale force-closes sessions that have been open longer than
// olderThan, returning how many were closed. Run from the background worker.
func (s *Service) AutoCloseStale(ctx context.Context, olderThan time.Duration, now time.Time) (int, error) {
	if now.IsZero() {
		now = s.now()
	}
	stale, err := s.repo.ListOpenEntriesBefore(ctx, now.Add(-olderThan))
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, entry := range stale {
		seconds := int64(now.Sub(entry.ClockIn).Seconds())
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			return tx.CloseEntry(ctx, entry.ID, now, seconds)
		})
		if err != nil {
			return closed, err
		}
		closed++
		s.recordAudit(ctx, entry.EmployeeID, "CLOCK_OUT_AUTO", entry.ID, map[string]any{"seconds": seconds})
	}
	return closed, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "timeclock", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

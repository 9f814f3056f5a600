package timeclock

import (
	"errors"
	"time"
)

// TimeEntry is one employee work session. ClockOut and DurationSeconds stay
// nil while the session is open; once closed the duration equals the span
// between the two instants in whole seconds.
type TimeEntry struct {
	ID              int64
	EmployeeID      int64
	ClockIn         time.Time
	ClockOut        *time.Time
	DurationSeconds *int64
	Note            string
}

// Completed reports whether the entry has been clocked out.
func (e TimeEntry) Completed() bool {
	return e.ClockOut != nil && e.DurationSeconds != nil
}

// Minutes returns the entry duration in whole minutes, truncating seconds.
// Open entries contribute zero.
func (e TimeEntry) Minutes() int {
	if !e.Completed() {
		return 0
	}
	return int(*e.DurationSeconds / 60)
}

// OvertimeThresholds configures overtime bucketing and alerting. A nil
// threshold means no cap of that kind.
type OvertimeThresholds struct {
	DailyMinutes  *int
	WeeklyMinutes *int

	// Lead times for the approaching-threshold alert; zero disables.
	AlertBeforeDailyMinutes  int
	AlertBeforeWeeklyMinutes int
}

// Enabled reports whether any overtime threshold is configured.
func (t *OvertimeThresholds) Enabled() bool {
	return t != nil && (t.DailyMinutes != nil || t.WeeklyMinutes != nil)
}

// PayPeriodKind enumerates supported pay period schedules.
type PayPeriodKind string

const (
	PayPeriodWeekly      PayPeriodKind = "WEEKLY"
	PayPeriodBiweekly    PayPeriodKind = "BIWEEKLY"
	PayPeriodSemimonthly PayPeriodKind = "SEMIMONTHLY"
	PayPeriodMonthly     PayPeriodKind = "MONTHLY"
)

// PayPeriodSpec configures how pay periods are derived.
type PayPeriodSpec struct {
	Kind PayPeriodKind
	// WeekStartDay is 0 (Sunday) through 6 (Saturday); used by weekly and
	// biweekly kinds.
	WeekStartDay int
	// ReferenceAnchor phase-locks which week of a biweekly cycle is first.
	ReferenceAnchor time.Time
}

// PayPeriod is a derived inclusive date range covering one period.
type PayPeriod struct {
	Start time.Time
	End   time.Time
	Label string
	Kind  PayPeriodKind
}

// Settings bundles the timeclock configuration singleton.
type Settings struct {
	Thresholds *OvertimeThresholds
	PeriodSpec PayPeriodSpec
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("timeclock: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("timeclock: invalid input")
	// ErrSessionOpen occurs when clocking in with a session already open.
	ErrSessionOpen = errors.New("timeclock: session already open")
	// ErrNoOpenSession occurs when clocking out without an open session.
	ErrNoOpenSession = errors.New("timeclock: no open session")
)

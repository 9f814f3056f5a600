package timeclock

import (
	"fmt"
	"time"
)

// PeriodFor computes the pay period containing date for the given spec. It is
// total over well-formed specs: an unrecognised kind falls back to a weekly
// period starting Sunday, which callers depend on as a compatibility default
// rather than receiving an error.
func PeriodFor(date time.Time, spec PayPeriodSpec) PayPeriod {
	switch spec.Kind {
	case PayPeriodWeekly:
		start := weekStart(date, spec.WeekStartDay)
		return newPeriod(start, start.AddDate(0, 0, 6), PayPeriodWeekly)
	case PayPeriodBiweekly:
		start := biweeklyStart(date, spec)
		return newPeriod(start, start.AddDate(0, 0, 13), PayPeriodBiweekly)
	case PayPeriodSemimonthly:
		y, m, d := date.Date()
		if d <= 15 {
			return newPeriod(civil(y, m, 1, date.Location()), civil(y, m, 15, date.Location()), PayPeriodSemimonthly)
		}
		return newPeriod(civil(y, m, 16, date.Location()), lastOfMonth(date), PayPeriodSemimonthly)
	case PayPeriodMonthly:
		y, m, _ := date.Date()
		return newPeriod(civil(y, m, 1, date.Location()), lastOfMonth(date), PayPeriodMonthly)
	default:
		start := weekStart(date, 0)
		return newPeriod(start, start.AddDate(0, 0, 6), PayPeriodWeekly)
	}
}

// PreviousPeriod returns the period immediately before p.
func PreviousPeriod(p PayPeriod, spec PayPeriodSpec) PayPeriod {
	return PeriodFor(p.Start.AddDate(0, 0, -1), spec)
}

// NextPeriod returns the period immediately after p.
func NextPeriod(p PayPeriod, spec PayPeriodSpec) PayPeriod {
	return PeriodFor(p.End.AddDate(0, 0, 1), spec)
}

// RecentPeriods returns count periods ending with the one containing ref,
// most recent first.
func RecentPeriods(ref time.Time, spec PayPeriodSpec, count int) []PayPeriod {
	if count <= 0 {
		return nil
	}
	periods := make([]PayPeriod, 0, count)
	current := PeriodFor(ref, spec)
	periods = append(periods, current)
	for len(periods) < count {
		current = PreviousPeriod(current, spec)
		periods = append(periods, current)
	}
	return periods
}

// weekStart rolls date backward to the configured start-of-week day, at
// midnight in the date's own location.
func weekStart(date time.Time, weekStartDay int) time.Time {
	if weekStartDay < 0 || weekStartDay > 6 {
		weekStartDay = 0
	}
	back := (int(date.Weekday()) - weekStartDay + 7) % 7
	y, m, d := date.Date()
	return civil(y, m, d, date.Location()).AddDate(0, 0, -back)
}

// biweeklyStart finds the start of the 14-day cycle containing date. The two
// week starts are normalised to noon before measuring the day distance so a
// daylight-saving shift inside the span cannot skew the whole-day count.
func biweeklyStart(date time.Time, spec PayPeriodSpec) time.Time {
	ws := weekStart(date, spec.WeekStartDay)
	anchor := spec.ReferenceAnchor
	if anchor.IsZero() {
		return ws
	}
	aws := weekStart(anchor, spec.WeekStartDay)
	days := int(noon(ws).Sub(noon(aws)).Round(24*time.Hour).Hours() / 24)
	weeks := days / 7
	phase := ((weeks % 2) + 2) % 2
	if phase == 1 {
		return ws.AddDate(0, 0, -7)
	}
	return ws
}

func newPeriod(start, end time.Time, kind PayPeriodKind) PayPeriod {
	return PayPeriod{Start: start, End: end, Label: periodLabel(start, end), Kind: kind}
}

func periodLabel(start, end time.Time) string {
	if start.Month() == end.Month() && start.Year() == end.Year() {
		return fmt.Sprintf("%s %d - %d, %d", start.Month().String()[:3], start.Day(), end.Day(), end.Year())
	}
	return fmt.Sprintf("%s %d - %s %d, %d", start.Month().String()[:3], start.Day(), end.Month().String()[:3], end.Day(), end.Year())
}

func civil(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func noon(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, t.Location())
}

func lastOfMonth(date time.Time) time.Time {
	y, m, _ := date.Date()
	// Day zero of the next month is the last day of this one.
	return time.Date(y, m+1, 0, 0, 0, 0, 0, date.Location())
}

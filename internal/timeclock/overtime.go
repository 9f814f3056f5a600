package timeclock

import "time"

// Weekly overtime always buckets on Sunday-start weeks, independent of the
// pay period's configured WeekStartDay. Payroll exports produced since the
// feature shipped depend on this, so it is deliberately not configurable.
const overtimeWeekStartDay = 0

// EmployeeOvertime is the per-employee bucketing result. TotalMinutes always
// equals the sum of the three buckets and of the source entry minutes.
type EmployeeOvertime struct {
	EmployeeID            int64 `json:"employeeId"`
	RegularMinutes        int   `json:"regularMinutes"`
	DailyOvertimeMinutes  int   `json:"dailyOvertimeMinutes"`
	WeeklyOvertimeMinutes int   `json:"weeklyOvertimeMinutes"`
	TotalMinutes          int   `json:"totalMinutes"`
}

// OvertimeSummary aggregates bucketing results across employees.
type OvertimeSummary struct {
	PerEmployee map[int64]EmployeeOvertime `json:"perEmployee"`
	Totals      EmployeeOvertime           `json:"totals"`
}

type calendarDay struct {
	year  int
	month time.Month
	day   int
}

func dayOf(t time.Time) calendarDay {
	y, m, d := t.Date()
	return calendarDay{year: y, month: m, day: d}
}

// CalculateOvertime partitions completed entry minutes into regular, daily
// overtime and weekly overtime buckets.
//
// Open entries are excluded entirely: an employee whose only entries are
// still running does not appear in the result. Each entry's seconds are
// floor-divided to minutes individually before summation, matching how the
// recorded durations have always been rounded. Days are keyed by the clock-in
// instant's own calendar date. When thresholds are absent or both caps are
// nil, every worked minute is regular.
func CalculateOvertime(entries []TimeEntry, thresholds *OvertimeThresholds) OvertimeSummary {
	summary := OvertimeSummary{PerEmployee: make(map[int64]EmployeeOvertime)}

	perDay := make(map[int64]map[calendarDay]int)
	for _, entry := range entries {
		if !entry.Completed() {
			continue
		}
		days, ok := perDay[entry.EmployeeID]
		if !ok {
			days = make(map[calendarDay]int)
			perDay[entry.EmployeeID] = days
		}
		days[dayOf(entry.ClockIn)] += entry.Minutes()
	}

	for employeeID, days := range perDay {
		result := EmployeeOvertime{EmployeeID: employeeID}
		weekRegular := make(map[calendarDay]int)
		for day, minutes := range days {
			result.TotalMinutes += minutes
			regular, dailyOT := splitDaily(minutes, thresholds)
			result.RegularMinutes += regular
			result.DailyOvertimeMinutes += dailyOT
			weekRegular[weekOf(day)] += regular
		}
		if thresholds.Enabled() && thresholds.WeeklyMinutes != nil {
			for _, regular := range weekRegular {
				if regular > *thresholds.WeeklyMinutes {
					result.WeeklyOvertimeMinutes += regular - *thresholds.WeeklyMinutes
				}
			}
			result.RegularMinutes -= result.WeeklyOvertimeMinutes
		}
		summary.PerEmployee[employeeID] = result

		summary.Totals.RegularMinutes += result.RegularMinutes
		summary.Totals.DailyOvertimeMinutes += result.DailyOvertimeMinutes
		summary.Totals.WeeklyOvertimeMinutes += result.WeeklyOvertimeMinutes
		summary.Totals.TotalMinutes += result.TotalMinutes
	}

	return summary
}

// splitDaily applies the daily threshold to one day's minutes.
func splitDaily(minutes int, thresholds *OvertimeThresholds) (regular, overtime int) {
	if !thresholds.Enabled() || thresholds.DailyMinutes == nil || minutes <= *thresholds.DailyMinutes {
		return minutes, 0
	}
	return *thresholds.DailyMinutes, minutes - *thresholds.DailyMinutes
}

// weekOf returns the Sunday starting the week containing the given day.
func weekOf(day calendarDay) calendarDay {
	t := time.Date(day.year, day.month, day.day, 0, 0, 0, 0, time.UTC)
	t = t.AddDate(0, 0, -((int(t.Weekday()) - overtimeWeekStartDay + 7) % 7))
	return dayOf(t)
}

package timeclock

import "time"

// ThresholdStatus reports progress against one overtime threshold.
type ThresholdStatus struct {
	CurrentMinutes   int  `json:"currentMinutes"`
	ThresholdMinutes *int `json:"thresholdMinutes"`
	Approaching      bool `json:"approaching"`
	Exceeded         bool `json:"exceeded"`
}

// AlertStatus is the live overtime alert state for one employee.
type AlertStatus struct {
	Daily  ThresholdStatus `json:"daily"`
	Weekly ThresholdStatus `json:"weekly"`
}

// EvaluateAlertStatus computes the approaching/exceeded alert flags for an
// employee given their completed entries, the instant of evaluation, and the
// minutes already accumulated by a currently open session.
//
// Returns nil when the feature is disabled (no thresholds configured). The
// weekly bucket uses the same fixed Sunday week as CalculateOvertime. Pure
// and synchronous; intended to run on every status poll with caller-supplied
// data.
func EvaluateAlertStatus(entries []TimeEntry, thresholds *OvertimeThresholds, now time.Time, activeSessionMinutes int) *AlertStatus {
	if !thresholds.Enabled() {
		return nil
	}

	today := dayOf(now)
	week := weekOf(today)

	var dayMinutes, weekMinutes int
	for _, entry := range entries {
		if !entry.Completed() {
			continue
		}
		day := dayOf(entry.ClockIn)
		if day == today {
			dayMinutes += entry.Minutes()
		}
		if weekOf(day) == week {
			weekMinutes += entry.Minutes()
		}
	}
	dayMinutes += activeSessionMinutes
	weekMinutes += activeSessionMinutes

	return &AlertStatus{
		Daily:  evaluateThreshold(dayMinutes, thresholds.DailyMinutes, thresholds.AlertBeforeDailyMinutes),
		Weekly: evaluateThreshold(weekMinutes, thresholds.WeeklyMinutes, thresholds.AlertBeforeWeeklyMinutes),
	}
}

func evaluateThreshold(current int, threshold *int, leadMinutes int) ThresholdStatus {
	status := ThresholdStatus{CurrentMinutes: current, ThresholdMinutes: threshold}
	if threshold == nil {
		return status
	}
	status.Exceeded = current >= *threshold
	if !status.Exceeded && leadMinutes > 0 {
		status.Approaching = current >= *threshold-leadMinutes
	}
	return status
}

package timeclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvaluateAlertStatusDisabled(t *testing.T) {
	now := date(2025, time.March, 12)
	require.Nil(t, EvaluateAlertStatus(nil, nil, now, 0))
	require.Nil(t, EvaluateAlertStatus(nil, &OvertimeThresholds{}, now, 0))
}

func TestEvaluateAlertStatusExceeded(t *testing.T) {
	now := date(2025, time.March, 12).Add(17 * time.Hour)
	thresholds := &OvertimeThresholds{DailyMinutes: intPtr(480), AlertBeforeDailyMinutes: 60}
	entries := []TimeEntry{workDay(1, date(2025, time.March, 12), 500)}

	status := EvaluateAlertStatus(entries, thresholds, now, 0)
	require.NotNil(t, status)
	require.Equal(t, 500, status.Daily.CurrentMinutes)
	require.True(t, status.Daily.Exceeded)
	require.False(t, status.Daily.Approaching)
	// No weekly threshold configured, so no weekly flags.
	require.False(t, status.Weekly.Exceeded)
	require.Nil(t, status.Weekly.ThresholdMinutes)

	// Exactly at the threshold counts as exceeded.
	entries = []TimeEntry{workDay(1, date(2025, time.March, 12), 480)}
	status = EvaluateAlertStatus(entries, thresholds, now, 0)
	require.True(t, status.Daily.Exceeded)
}

func TestEvaluateAlertStatusApproaching(t *testing.T) {
	now := date(2025, time.March, 12).Add(17 * time.Hour)
	thresholds := &OvertimeThresholds{DailyMinutes: intPtr(480), AlertBeforeDailyMinutes: 60}
	entries := []TimeEntry{workDay(1, date(2025, time.March, 12), 450)}

	status := EvaluateAlertStatus(entries, thresholds, now, 0)
	require.True(t, status.Daily.Approaching)
	require.False(t, status.Daily.Exceeded)

	// Zero lead time disables the approaching flag entirely.
	thresholds.AlertBeforeDailyMinutes = 0
	status = EvaluateAlertStatus(entries, thresholds, now, 0)
	require.False(t, status.Daily.Approaching)
}

func TestEvaluateAlertStatusActiveSessionCountsInBothBuckets(t *testing.T) {
	now := date(2025, time.March, 12).Add(17 * time.Hour)
	thresholds := &OvertimeThresholds{DailyMinutes: intPtr(480), WeeklyMinutes: intPtr(2400)}
	entries := []TimeEntry{
		workDay(1, date(2025, time.March, 10), 480),
		workDay(1, date(2025, time.March, 12), 200),
	}

	status := EvaluateAlertStatus(entries, thresholds, now, 300)
	require.Equal(t, 500, status.Daily.CurrentMinutes)
	require.Equal(t, 1160, status.Weekly.CurrentMinutes)
	require.True(t, status.Daily.Exceeded)
	require.False(t, status.Weekly.Exceeded)
}

func TestEvaluateAlertStatusWeeklyWindow(t *testing.T) {
	// Wednesday; the week started Sunday March 9.
	now := date(2025, time.March, 12).Add(17 * time.Hour)
	thresholds := &OvertimeThresholds{WeeklyMinutes: intPtr(600), AlertBeforeWeeklyMinutes: 120}
	entries := []TimeEntry{
		workDay(1, date(2025, time.March, 8), 500),  // previous week, ignored
		workDay(1, date(2025, time.March, 9), 300),  // Sunday, counts
		workDay(1, date(2025, time.March, 11), 200), // counts
	}

	status := EvaluateAlertStatus(entries, thresholds, now, 0)
	require.Equal(t, 500, status.Weekly.CurrentMinutes)
	require.Zero(t, status.Daily.CurrentMinutes)
	require.True(t, status.Weekly.Approaching)
	require.False(t, status.Weekly.Exceeded)
}

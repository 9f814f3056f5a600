package timeclock

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWritePayrollCSV(t *testing.T) {
	period := PeriodFor(date(2025, time.March, 12), PayPeriodSpec{Kind: PayPeriodWeekly})
	summary := OvertimeSummary{
		PerEmployee: map[int64]EmployeeOvertime{
			9: {EmployeeID: 9, RegularMinutes: 400, TotalMinutes: 400},
			2: {EmployeeID: 2, RegularMinutes: 480, DailyOvertimeMinutes: 120, TotalMinutes: 600},
		},
		Totals: EmployeeOvertime{RegularMinutes: 880, DailyOvertimeMinutes: 120, TotalMinutes: 1000},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePayrollCSV(&buf, period, summary))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, []string{"Period", "Employee", "Regular Minutes", "Daily OT Minutes", "Weekly OT Minutes", "Total Minutes"}, rows[0])

	// Employees sort numerically, totals come last.
	require.Equal(t, []string{"Mar 9 - 15, 2025", "2", "480", "120", "0", "600"}, rows[1])
	require.Equal(t, []string{"Mar 9 - 15, 2025", "9", "400", "0", "0", "400"}, rows[2])
	require.Equal(t, []string{"Mar 9 - 15, 2025", "TOTAL", "880", "120", "0", "1000"}, rows[3])
}

func TestWritePayrollCSVEmpty(t *testing.T) {
	period := PeriodFor(date(2025, time.March, 12), PayPeriodSpec{Kind: PayPeriodWeekly})

	var buf bytes.Buffer
	require.NoError(t, WritePayrollCSV(&buf, period, OvertimeSummary{}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2) // header plus totals
}

package timeclock

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
)

// WritePayrollCSV serialises a pay period's overtime summary to CSV, one row
// per employee plus a trailing totals row.
func WritePayrollCSV(w io.Writer, period PayPeriod, summary OvertimeSummary) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Period", "Employee", "Regular Minutes", "Daily OT Minutes", "Weekly OT Minutes", "Total Minutes"}); err != nil {
		return err
	}

	ids := make([]int64, 0, len(summary.PerEmployee))
	for id := range summary.PerEmployee {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		result := summary.PerEmployee[id]
		if err := writer.Write([]string{
			period.Label,
			strconv.FormatInt(id, 10),
			strconv.Itoa(result.RegularMinutes),
			strconv.Itoa(result.DailyOvertimeMinutes),
			strconv.Itoa(result.WeeklyOvertimeMinutes),
			strconv.Itoa(result.TotalMinutes),
		}); err != nil {
			return err
		}
	}

	if err := writer.Write([]string{
		period.Label,
		"TOTAL",
		strconv.Itoa(summary.Totals.RegularMinutes),
		strconv.Itoa(summary.Totals.DailyOvertimeMinutes),
		strconv.Itoa(summary.Totals.WeeklyOvertimeMinutes),
		strconv.Itoa(summary.Totals.TotalMinutes),
	}); err != nil {
		return err
	}

	writer.Flush()
	return writer.Error()
}

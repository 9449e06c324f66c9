// Package report assembles weekly timesheet reports from aggregated stats.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/example/timetrack/internal/application"
	"github.com/example/timetrack/internal/timeclock"
)

// Row summarizes one day of a weekly report.
type Row struct {
	Date       string  `json:"date"`
	Weekday    string  `json:"weekday"`
	Hours      float64 `json:"hours"`
	FirstIn    string  `json:"firstIn,omitempty"`
	LastOut    string  `json:"lastOut,omitempty"`
	EntryCount int     `json:"entryCount"`
}

// Weekly is a rendered weekly report.
type Weekly struct {
	WeekStart          string  `json:"weekStart"`
	WeekEnd            string  `json:"weekEnd"`
	GeneratedAt        string  `json:"generatedAt"`
	TotalHours         float64 `json:"totalHours"`
	TargetHours        float64 `json:"targetHours"`
	RemainingHours     float64 `json:"remainingHours"`
	ProgressPercentage float64 `json:"progressPercentage"`
	Rows               []Row   `json:"rows"`
}

const clockLayout = "15:04"

// AssembleWeekly flattens weekly stats into report rows. First-in and
// last-out timestamps are rendered in the given location; open entries count
// toward the entry total but contribute no hours.
func AssembleWeekly(stats application.WeeklyStats, generatedAt time.Time, location *time.Location) Weekly {
	if location == nil {
		location = time.Local
	}

	rows := make([]Row, 0, len(stats.DailyStats))
	for _, day := range stats.DailyStats {
		row := Row{
			Date:       day.Date,
			Hours:      day.TotalHours,
			EntryCount: len(day.Entries),
		}
		if date, err := timeclock.ParseDate(day.Date); err == nil {
			row.Weekday = date.Weekday().String()
		}

		for _, entry := range day.Entries {
			in := entry.ClockIn.In(location).Format(clockLayout)
			if row.FirstIn == "" || in < row.FirstIn {
				row.FirstIn = in
			}
			if entry.ClockOut == nil {
				continue
			}
			out := entry.ClockOut.In(location).Format(clockLayout)
			if out > row.LastOut {
				row.LastOut = out
			}
		}

		rows = append(rows, row)
	}

	weekly := Weekly{
		GeneratedAt:        generatedAt.In(location).Format(time.RFC3339),
		TotalHours:         stats.TotalHours,
		TargetHours:        application.WeeklyTargetHours,
		RemainingHours:     stats.RemainingHours,
		ProgressPercentage: stats.ProgressPercentage,
		Rows:               rows,
	}
	if len(rows) > 0 {
		weekly.WeekStart = rows[0].Date
		weekly.WeekEnd = rows[len(rows)-1].Date
	}
	return weekly
}

// WriteCSV renders the report as CSV with a header row and a trailing total.
func WriteCSV(w io.Writer, weekly Weekly) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"Date", "Day", "Hours", "First In", "Last Out", "Entries"}); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}

	for _, row := range weekly.Rows {
		record := []string{
			row.Date,
			row.Weekday,
			formatHours(row.Hours),
			row.FirstIn,
			row.LastOut,
			fmt.Sprintf("%d", row.EntryCount),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}

	total := []string{"Total", "", formatHours(weekly.TotalHours), "", "", ""}
	if err := writer.Write(total); err != nil {
		return fmt.Errorf("failed to write report total: %w", err)
	}

	writer.Flush()
	return writer.Error()
}

func formatHours(hours float64) string {
	return fmt.Sprintf("%.2f", hours)
}

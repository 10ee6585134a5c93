package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MyBusinesspace/MBP-sub007/internal/attendance"
	"github.com/MyBusinesspace/MBP-sub007/internal/ledger"
	"github.com/MyBusinesspace/MBP-sub007/internal/models"
	"github.com/MyBusinesspace/MBP-sub007/internal/parser"
)

var timesheetCmd = &cobra.Command{
	Use:   "timesheet",
	Short: "Show a weekly timesheet per assignment",
	Long: `Show the minutes worked per assignment and weekday for a calendar week,
built from session segments. Open segments count up to now.

Example output:
  Assignment            Mon    Tue    Wed    Thu    Fri    Total
  APP-123              2h 00m 3h 10m    -      -      -   5h 10m
  site/north             -    1h 05m 7h 30m    -      -   8h 35m
  Total                2h 00m 4h 15m 7h 30m    0      0  13h 45m`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		now := time.Now()
		weekStart := parser.WeekStart(now)
		if v, _ := cmd.Flags().GetString("week"); v != "" {
			day, err := parser.ParseDay(v, now)
			if err != nil {
				return err
			}
			weekStart = parser.WeekStart(day)
		}
		actor, _ := cmd.Flags().GetString("actor")

		// Sessions that started the previous evening can still spill into Monday.
		sessions, err := a.svc.ListSessions(cmd.Context(), a.caller, attendance.ListQuery{
			ActorID: actor,
			From:    weekStart.AddDate(0, 0, -1),
			To:      weekStart.AddDate(0, 0, 7).Add(-time.Nanosecond),
			Limit:   attendance.MaxPageSize,
		})
		if err != nil {
			return err
		}

		sheet := buildTimesheet(sessions, weekStart, now)
		if len(sheet.assignments) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No time recorded this week.")
			return nil
		}
		displayTimesheet(cmd.OutOrStdout(), sheet)
		return nil
	}),
}

type timesheet struct {
	weekStart   time.Time
	assignments []string
	// minutes[assignment][day], day 0 is Monday
	minutes map[string]*[7]int
}

// buildTimesheet attributes each segment's minutes to the weekday it
// started on. Segments outside the week are skipped.
func buildTimesheet(sessions []models.Session, weekStart, now time.Time) timesheet {
	sheet := timesheet{weekStart: weekStart, minutes: make(map[string]*[7]int)}
	weekEnd := weekStart.AddDate(0, 0, 7)

	for _, s := range sessions {
		for _, seg := range s.Segments {
			start := seg.StartTime.In(weekStart.Location())
			if start.Before(weekStart) || !start.Before(weekEnd) {
				continue
			}
			minutes := seg.DurationMinutes
			if seg.EndTime == nil {
				minutes = ledger.DurationMinutes(seg.StartTime, now)
			}

			row, ok := sheet.minutes[seg.AssignmentID]
			if !ok {
				row = &[7]int{}
				sheet.minutes[seg.AssignmentID] = row
				sheet.assignments = append(sheet.assignments, seg.AssignmentID)
			}
			row[dayIndex(start, weekStart)] += minutes
		}
	}

	// Ticket-shaped ids first, then the rest, each alphabetically
	sort.Slice(sheet.assignments, func(i, j int) bool {
		a, b := sheet.assignments[i], sheet.assignments[j]
		if parser.IsTicketID(a) != parser.IsTicketID(b) {
			return parser.IsTicketID(a)
		}
		return a < b
	})
	return sheet
}

func dayIndex(t, weekStart time.Time) int {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, weekStart.Location())
	return int(day.Sub(weekStart).Hours()+12) / 24
}

func (t timesheet) dayTotals() [7]int {
	var totals [7]int
	for _, row := range t.minutes {
		for i, m := range row {
			totals[i] += m
		}
	}
	return totals
}

func displayTimesheet(out io.Writer, sheet timesheet) {
	dayNames := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	totals := sheet.dayTotals()

	// Weekdays always, weekends only when worked
	var days []int
	for i := range dayNames {
		if i < 5 || totals[i] > 0 {
			days = append(days, i)
		}
	}

	nameWidth := 20
	for _, id := range sheet.assignments {
		if len(id) > nameWidth {
			nameWidth = len(id)
		}
	}
	if nameWidth > 40 {
		nameWidth = 40
	}
	const colWidth = 8

	fmt.Fprintf(out, "Week of %s\n\n", sheet.weekStart.Format("Mon 02/01/2006"))
	fmt.Fprintf(out, "%-*s", nameWidth, "Assignment")
	for _, d := range days {
		fmt.Fprintf(out, " %*s", colWidth, dayNames[d])
	}
	fmt.Fprintf(out, " %*s\n", colWidth, "Total")

	fmt.Fprint(out, strings.Repeat("-", nameWidth))
	for range days {
		fmt.Fprint(out, " "+strings.Repeat("-", colWidth))
	}
	fmt.Fprintln(out, " "+strings.Repeat("-", colWidth))

	grand := 0
	for _, id := range sheet.assignments {
		row := sheet.minutes[id]
		fmt.Fprintf(out, "%-*s", nameWidth, truncate(id, nameWidth))
		rowTotal := 0
		for _, d := range days {
			if row[d] > 0 {
				fmt.Fprintf(out, " %*s", colWidth, parser.FormatMinutes(row[d]))
			} else {
				fmt.Fprintf(out, " %*s", colWidth, "-")
			}
			rowTotal += row[d]
		}
		grand += rowTotal
		fmt.Fprintf(out, " %*s\n", colWidth, parser.FormatMinutes(rowTotal))
	}

	fmt.Fprintf(out, "%-*s", nameWidth, "Total")
	for _, d := range days {
		fmt.Fprintf(out, " %*s", colWidth, parser.FormatMinutes(totals[d]))
	}
	fmt.Fprintf(out, " %*s\n", colWidth, parser.FormatMinutes(grand))
}

func init() {
	timesheetCmd.Flags().String("week", "", "Any day of the week to show (default this week)")
	timesheetCmd.Flags().String("actor", "", "Actor to report on (privileged actors only)")
}

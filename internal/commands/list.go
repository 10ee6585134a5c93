package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MyBusinesspace/MBP-sub007/internal/attendance"
	"github.com/MyBusinesspace/MBP-sub007/internal/ledger"
	"github.com/MyBusinesspace/MBP-sub007/internal/models"
	"github.com/MyBusinesspace/MBP-sub007/internal/parser"
)

var listCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List sessions",
	Long: `List sessions ordered by clock-in time, with optional filters for actor,
status and date range.

Dates accept today, yesterday, dd/mm/yyyy and "3 days ago". Privileged
actors see everyone's sessions unless --actor is given.

Examples:
  timeclock ls --from "1 week ago"
  timeclock ls --status pending_approval --format yaml`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		flags := cmd.Flags()
		fromArg, _ := flags.GetString("from")
		toArg, _ := flags.GetString("to")
		actor, _ := flags.GetString("actor")
		status, _ := flags.GetString("status")
		limit, _ := flags.GetInt("limit")
		format, _ := flags.GetString("format")

		q := attendance.ListQuery{ActorID: actor, Status: models.Status(status), Limit: limit}
		if fromArg != "" || toArg != "" {
			from, to, err := parser.ParseRange(fromArg, toArg, time.Now())
			if err != nil {
				return err
			}
			q.From, q.To = from, to
		}

		sessions, err := a.svc.ListSessions(cmd.Context(), a.caller, q)
		if err != nil {
			return err
		}
		return writeSessions(cmd.OutOrStdout(), sessions, format)
	}),
}

var showCmd = &cobra.Command{
	Use:   "show <session_id>",
	Short: "Show one session with its segments",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		session, err := a.svc.GetSession(cmd.Context(), a.caller, args[0])
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		if format != "table" {
			return writeSessions(cmd.OutOrStdout(), []models.Session{*session}, format)
		}
		printSession(cmd.OutOrStdout(), session)
		return nil
	}),
}

var pointsCmd = &cobra.Command{
	Use:   "points <session_id>",
	Short: "List the tracking points of a session",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		offset, _ := cmd.Flags().GetInt("offset")
		limit, _ := cmd.Flags().GetInt("limit")

		points, err := a.svc.ListTrackingPoints(cmd.Context(), a.caller, args[0], offset, limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(points) == 0 {
			fmt.Fprintln(out, "No tracking points.")
			return nil
		}
		fmt.Fprintf(out, "%-5s %-19s %11s %12s\n", "SEQ", "TIME", "LAT", "LON")
		fmt.Fprintln(out, strings.Repeat("-", 50))
		for _, p := range points {
			fmt.Fprintf(out, "%-5d %-19s %11.5f %12.5f\n", p.Seq, p.Timestamp.Local().Format("2006-01-02 15:04:05"), p.Lat, p.Lon)
		}
		return nil
	}),
}

// sessionRow is the flattened form used for json and yaml output.
type sessionRow struct {
	ID          string     `json:"id" yaml:"id"`
	Actor       string     `json:"actor" yaml:"actor"`
	Status      string     `json:"status" yaml:"status"`
	ClockIn     time.Time  `json:"clock_in" yaml:"clock_in"`
	ClockOut    *time.Time `json:"clock_out,omitempty" yaml:"clock_out,omitempty"`
	Minutes     int        `json:"minutes" yaml:"minutes"`
	Assignments []string   `json:"assignments" yaml:"assignments"`
	Edited      bool       `json:"edited" yaml:"edited"`
	EditNotes   string     `json:"edit_notes,omitempty" yaml:"edit_notes,omitempty"`
	Approver    string     `json:"approver,omitempty" yaml:"approver,omitempty"`
}

func toRow(s models.Session) sessionRow {
	order, _ := ledger.MinutesByAssignment(&s)
	return sessionRow{
		ID:          s.ID,
		Actor:       s.ActorID,
		Status:      string(s.Status),
		ClockIn:     s.ClockInTime,
		ClockOut:    s.ClockOutTime,
		Minutes:     s.TotalDurationMinutes,
		Assignments: order,
		Edited:      s.WasEdited,
		EditNotes:   s.EditNotes,
		Approver:    s.ApproverID,
	}
}

func writeSessions(out io.Writer, sessions []models.Session, format string) error {
	switch format {
	case "json", "yaml":
		rows := make([]sessionRow, 0, len(sessions))
		for _, s := range sessions {
			rows = append(rows, toRow(s))
		}
		if format == "json" {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
	default:
		return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions found. Use 'timeclock in <assignment>' to start one.")
		return nil
	}

	fmt.Fprintf(out, "%-36s %-12s %-16s %-16s %-8s %s\n", "ID", "ACTOR", "STATUS", "CLOCK IN", "TOTAL", "ASSIGNMENTS")
	fmt.Fprintln(out, strings.Repeat("-", 110))
	for _, s := range sessions {
		order, _ := ledger.MinutesByAssignment(&s)
		total := parser.FormatMinutes(s.TotalDurationMinutes)
		if s.IsOpen {
			total = "open"
		}
		status := string(s.Status)
		if s.WasEdited {
			status += "*"
		}
		fmt.Fprintf(out, "%-36s %-12s %-16s %-16s %-8s %s\n",
			s.ID,
			truncate(s.ActorID, 12),
			status,
			s.ClockInTime.Local().Format("2006-01-02 15:04"),
			total,
			strings.Join(order, ","))
	}
	return nil
}

func printSession(out io.Writer, s *models.Session) {
	fmt.Fprintf(out, "Session %s\n", s.ID)
	fmt.Fprintf(out, "Actor:   %s\n", s.ActorID)
	fmt.Fprintf(out, "Status:  %s\n", s.Status)
	fmt.Fprintf(out, "%s\n", sessionSpan(s))
	if s.WasEdited {
		fmt.Fprintf(out, "Edited:  %s", s.EditNotes)
		if s.OriginalClockInTime != nil {
			fmt.Fprintf(out, " (was %s", s.OriginalClockInTime.Local().Format("15:04"))
			if s.OriginalClockOutTime != nil {
				fmt.Fprintf(out, "–%s", s.OriginalClockOutTime.Local().Format("15:04"))
			}
			fmt.Fprint(out, ")")
		}
		fmt.Fprintln(out)
	}
	if s.ApproverID != "" {
		fmt.Fprintf(out, "Decided: by %s", s.ApproverID)
		if s.ApprovalNotes != "" {
			fmt.Fprintf(out, ": %s", s.ApprovalNotes)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "\nSegments:")
	for _, seg := range s.Segments {
		end := "open"
		if seg.EndTime != nil {
			end = seg.EndTime.Local().Format("15:04")
		}
		fmt.Fprintf(out, "  %s–%-5s %-20s %s\n", seg.StartTime.Local().Format("15:04"), end, seg.AssignmentID, parser.FormatMinutes(seg.DurationMinutes))
	}
	if s.TrackingPointCount > 0 {
		fmt.Fprintf(out, "\nTracking points: %d\n", s.TrackingPointCount)
	}
}

// sessionSpan renders "Mon 02/03 08:00 → 17:30 (9h 30m)".
func sessionSpan(s *models.Session) string {
	in := s.ClockInTime.Local()
	if s.ClockOutTime == nil {
		return fmt.Sprintf("%s → now", in.Format("Mon 02/01 15:04"))
	}
	return fmt.Sprintf("%s → %s (%s)",
		in.Format("Mon 02/01 15:04"),
		s.ClockOutTime.Local().Format("15:04"),
		parser.FormatMinutes(s.TotalDurationMinutes))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	listCmd.Flags().String("from", "", "Only sessions clocked in on or after this day")
	listCmd.Flags().String("to", "", "Only sessions clocked in on or before this day")
	listCmd.Flags().String("actor", "", "Only this actor's sessions")
	listCmd.Flags().StringP("status", "s", "", "Filter by status: active, completed, pending_approval, approved, rejected")
	listCmd.Flags().Int("limit", 0, "Maximum number of sessions")
	listCmd.Flags().StringP("format", "f", "table", "Output format: table, json, yaml")

	showCmd.Flags().StringP("format", "f", "table", "Output format: table, json, yaml")

	pointsCmd.Flags().Int("offset", 0, "Skip this many points")
	pointsCmd.Flags().Int("limit", 0, "Maximum number of points")
}

package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/MyBusinesspace/MBP-sub007/internal/attendance"
	"github.com/MyBusinesspace/MBP-sub007/internal/ledger"
	"github.com/MyBusinesspace/MBP-sub007/internal/models"
	"github.com/MyBusinesspace/MBP-sub007/internal/parser"
	"github.com/MyBusinesspace/MBP-sub007/internal/tui"
)

var clockInCmd = &cobra.Command{
	Use:     "in <assignment>",
	Aliases: []string{"clock-in"},
	Short:   "Clock in on an assignment",
	Long: `Clock in and start the first segment on an assignment. Opens the live
clock by default, use --no-ui for a plain clock-in.

Examples:
  timeclock in APP-123                 # Clock in with the live clock
  timeclock in site/north --no-ui      # Clock in without UI
  timeclock in APP-123 --lat 41.38 --lon 2.17 --address "Main gate"`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		assignmentID, err := parser.NormalizeAssignmentID(args[0])
		if err != nil {
			return err
		}
		capture, err := captureFromFlags(cmd)
		if err != nil {
			return err
		}

		session, err := a.svc.ClockIn(cmd.Context(), a.caller, attendance.ClockInInput{
			AssignmentID: assignmentID,
			Capture:      capture,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		noUI, _ := cmd.Flags().GetBool("no-ui")
		if noUI {
			fmt.Fprintf(out, "⏱️  Clocked in on %s\n", assignmentID)
			fmt.Fprintf(out, "Started at: %s\n", session.ClockInTime.Local().Format("15:04:05"))
			return nil
		}
		return runClock(cmd, a, session)
	}),
}

var clockOutCmd = &cobra.Command{
	Use:     "out",
	Aliases: []string{"clock-out"},
	Short:   "Clock out and close the open session",
	Long: `Clock out and close the open session.

--status pushes a status for the last assignment to the assignment service
configured under [assignments]. A failed push is reported as a warning and
does not undo the clock-out.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		capture, err := captureFromFlags(cmd)
		if err != nil {
			return err
		}
		status, _ := cmd.Flags().GetString("status")
		return clockOut(cmd, a, attendance.ClockOutInput{Capture: capture, AssignmentStatus: status})
	}),
}

var switchCmd = &cobra.Command{
	Use:   "switch <assignment>",
	Short: "Move the open session to another assignment",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		assignmentID, err := parser.NormalizeAssignmentID(args[0])
		if err != nil {
			return err
		}
		capture, err := captureFromFlags(cmd)
		if err != nil {
			return err
		}

		session, err := a.svc.SwitchAssignment(cmd.Context(), a.caller, attendance.SwitchInput{
			AssignmentID: assignmentID,
			Capture:      capture,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		segments := session.Segments
		if len(segments) >= 2 {
			prev := segments[len(segments)-2]
			fmt.Fprintf(out, "⏹️  %s: %s\n", prev.AssignmentID, parser.FormatMinutes(prev.DurationMinutes))
		}
		fmt.Fprintf(out, "🔀 Now working on %s\n", assignmentID)
		return nil
	}),
}

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Record a location sample on the open session",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lon") {
			return fmt.Errorf("both --lat and --lon are required")
		}
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")

		res, err := a.svc.AddTrackingPoint(cmd.Context(), a.caller, attendance.TrackInput{Lat: lat, Lon: lon})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "📍 Point #%d recorded (%.5f, %.5f)\n", res.Point.Seq, res.Point.Lat, res.Point.Lon)
		return nil
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the open session",
	Long:  `Show the open session. Opens the live clock by default, use --no-ui for a summary.`,
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		session, err := a.svc.GetActiveSession(cmd.Context(), a.caller, "")
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if session == nil {
			fmt.Fprintln(out, "Not clocked in")
			return nil
		}

		noUI, _ := cmd.Flags().GetBool("no-ui")
		if noUI {
			printActive(out, session, time.Now())
			return nil
		}
		return runClock(cmd, a, session)
	}),
}

func clockOut(cmd *cobra.Command, a *app, in attendance.ClockOutInput) error {
	res, err := a.svc.ClockOut(cmd.Context(), a.caller, in)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "⏹️  Clocked out after %s\n", parser.FormatMinutes(res.Session.TotalDurationMinutes))
	order, minutes := ledger.MinutesByAssignment(res.Session)
	if len(order) > 1 {
		for _, id := range order {
			fmt.Fprintf(out, "   %-20s %s\n", id, parser.FormatMinutes(minutes[id]))
		}
	}
	if res.Warning != "" {
		fmt.Fprintf(out, "⚠️  %s\n", res.Warning)
	}
	return nil
}

// runClock shows the live clock and clocks out if the user asks to.
func runClock(cmd *cobra.Command, a *app, session *models.Session) error {
	ctx := cmd.Context()
	m, err := tui.RunClockTUI(session, func(id string) (*models.Session, error) {
		assignmentID, err := parser.NormalizeAssignmentID(id)
		if err != nil {
			return nil, err
		}
		return a.svc.SwitchAssignment(ctx, a.caller, attendance.SwitchInput{ActorID: session.ActorID, AssignmentID: assignmentID})
	})
	if err != nil {
		return err
	}

	if m.ClockingOut() {
		return clockOut(cmd, a, attendance.ClockOutInput{ActorID: session.ActorID})
	}
	fmt.Fprintln(cmd.OutOrStdout(), "⏱️  Still on the clock. Run 'timeclock out' when you are done.")
	return nil
}

func printActive(out io.Writer, session *models.Session, now time.Time) {
	fmt.Fprintf(out, "⏱️  On the clock since %s (%s)\n",
		session.ClockInTime.Local().Format("15:04:05"),
		parser.FormatMinutes(ledger.DurationMinutes(session.ClockInTime, now)))
	if seg, ok := ledger.OpenSegment(session.Segments); ok {
		fmt.Fprintf(out, "Current assignment: %s (%s)\n",
			seg.AssignmentID, parser.FormatMinutes(ledger.DurationMinutes(seg.StartTime, now)))
	}
	if n := len(session.Segments); n > 1 {
		fmt.Fprintf(out, "Segments today: %d\n", n)
	}
	if session.TrackingPointCount > 0 {
		fmt.Fprintf(out, "Tracking points: %d\n", session.TrackingPointCount)
	}
}

// captureFromFlags reads the optional location and photo flags.
func captureFromFlags(cmd *cobra.Command) (models.CaptureMeta, error) {
	var c models.CaptureMeta
	flags := cmd.Flags()

	if flags.Changed("lat") != flags.Changed("lon") {
		return c, fmt.Errorf("--lat and --lon must be given together")
	}
	if flags.Changed("lat") {
		lat, _ := flags.GetFloat64("lat")
		lon, _ := flags.GetFloat64("lon")
		c.Lat = &lat
		c.Lon = &lon
	}
	c.Address, _ = flags.GetString("address")
	c.PhotoURL, _ = flags.GetString("photo")
	return c, nil
}

func addCaptureFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("lat", 0, "Latitude")
	cmd.Flags().Float64("lon", 0, "Longitude")
	cmd.Flags().String("address", "", "Address or place name")
	cmd.Flags().String("photo", "", "Photo URL")
}

func init() {
	addCaptureFlags(clockInCmd)
	addCaptureFlags(clockOutCmd)
	addCaptureFlags(switchCmd)

	clockInCmd.Flags().Bool("no-ui", false, "Clock in without the live clock")
	statusCmd.Flags().Bool("no-ui", false, "Print a summary instead of the live clock")
	clockOutCmd.Flags().String("status", "", "Status to report for the last assignment (e.g. done)")
	trackCmd.Flags().Float64("lat", 0, "Latitude")
	trackCmd.Flags().Float64("lon", 0, "Longitude")
}

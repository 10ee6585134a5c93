package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MyBusinesspace/MBP-sub007/internal/attendance"
	"github.com/MyBusinesspace/MBP-sub007/internal/parser"
)

var editCmd = &cobra.Command{
	Use:   "edit <session_id>",
	Short: "Request a correction to a session",
	Long: `Propose new clock-in/clock-out times for a session. The session moves to
pending_approval until a privileged actor approves or rejects it.

Times accept "dd/mm/yyyy HH:MM", "HH:MM" (today) or RFC 3339.

Examples:
  timeclock edit 3f0c... --in 08:00 --notes "forgot to clock in"
  timeclock edit 3f0c... --out "02/03/2026 17:30"`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		in := attendance.EditInput{SessionID: args[0]}
		now := time.Now()

		if v, _ := cmd.Flags().GetString("in"); v != "" {
			t, err := parser.ParseTimestamp(v, now)
			if err != nil {
				return fmt.Errorf("invalid --in: %w", err)
			}
			in.ClockIn = &t
		}
		if v, _ := cmd.Flags().GetString("out"); v != "" {
			t, err := parser.ParseTimestamp(v, now)
			if err != nil {
				return fmt.Errorf("invalid --out: %w", err)
			}
			in.ClockOut = &t
		}
		in.Notes, _ = cmd.Flags().GetString("notes")

		session, err := a.svc.RequestEdit(cmd.Context(), a.caller, in)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✏️  Edit requested for session %s\n", session.ID)
		fmt.Fprintf(out, "%s\n", sessionSpan(session))
		fmt.Fprintf(out, "Status: %s\n", session.Status)
		return nil
	}),
}

func init() {
	editCmd.Flags().String("in", "", "Corrected clock-in time")
	editCmd.Flags().String("out", "", "Corrected clock-out time")
	editCmd.Flags().StringP("notes", "n", "", "Reason for the correction")
}

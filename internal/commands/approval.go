package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MyBusinesspace/MBP-sub007/internal/attendance"
	"github.com/MyBusinesspace/MBP-sub007/internal/auth"
	"github.com/MyBusinesspace/MBP-sub007/internal/models"
)

type decision func(ctx context.Context, caller auth.Actor, in attendance.ApprovalInput) (*models.Session, error)

var approveCmd = &cobra.Command{
	Use:   "approve <session_id>",
	Short: "Approve a session (privileged actors only)",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		return decide(cmd, args[0], a.caller, a.svc.Approve, "✅ Approved")
	}),
}

var rejectCmd = &cobra.Command{
	Use:   "reject <session_id>",
	Short: "Reject a session with a reason (privileged actors only)",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
		return decide(cmd, args[0], a.caller, a.svc.Reject, "❌ Rejected")
	}),
}

func decide(cmd *cobra.Command, sessionID string, caller auth.Actor, fn decision, verb string) error {
	notes, _ := cmd.Flags().GetString("notes")
	session, err := fn(cmd.Context(), caller, attendance.ApprovalInput{SessionID: sessionID, Notes: notes})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s session %s of %s\n", verb, session.ID, session.ActorID)
	fmt.Fprintf(out, "%s\n", sessionSpan(session))
	if session.ApprovalNotes != "" {
		fmt.Fprintf(out, "Notes: %s\n", session.ApprovalNotes)
	}
	return nil
}

func init() {
	approveCmd.Flags().StringP("notes", "n", "", "Approval notes")
	rejectCmd.Flags().StringP("notes", "n", "", "Rejection reason (required)")
}

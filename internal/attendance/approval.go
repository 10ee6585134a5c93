package attendance

import (
	"context"
	"strings"
	"time"

	"github.com/MyBusinesspace/MBP-sub007/internal/apperrors"
	"github.com/MyBusinesspace/MBP-sub007/internal/auth"
	"github.com/MyBusinesspace/MBP-sub007/internal/ledger"
	"github.com/MyBusinesspace/MBP-sub007/internal/models"
)

const (
	opRequestEdit = "RequestEdit"
	opApprove     = "Approve"
	opReject      = "Reject"
)

// EditInput proposes new boundaries for a session. At least one field must
// be set.
type EditInput struct {
	SessionID string     `json:"-"`
	ClockIn   *time.Time `json:"clock_in,omitempty"`
	ClockOut  *time.Time `json:"clock_out,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

func (in EditInput) empty() bool {
	return in.ClockIn == nil && in.ClockOut == nil && strings.TrimSpace(in.Notes) == ""
}

type ApprovalInput struct {
	SessionID string `json:"-"`
	Notes     string `json:"notes,omitempty"`
}

// editable reports whether a session in status st may receive an edit
// request under strict approval. Approved sessions are final.
func editable(st models.Status) bool {
	return st != models.StatusApproved
}

// RequestEdit records a correction proposal and moves the session to
// pending_approval. Segment times are left as recorded; only the top-level
// boundaries change.
func (s *Service) RequestEdit(ctx context.Context, caller auth.Actor, in EditInput) (_ *models.Session, err error) {
	ctx, done := s.begin(ctx, opRequestEdit, caller)
	defer func() { done(err) }()

	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if in.empty() {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "one of clock_in, clock_out or notes is required")
	}

	sess, err := s.load(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.ActorID != caller.ID && !(caller.Privileged && s.policy.AllowPrivilegedEdit) {
		return nil, apperrors.New(apperrors.CodeForbidden, "only the session owner may request an edit")
	}
	if s.policy.StrictApproval && !editable(sess.Status) {
		return nil, apperrors.WithRecord(apperrors.CodeInvalidTransition,
			"cannot request an edit on a "+string(sess.Status)+" session", sess)
	}

	now := s.now()
	next := sess.Clone()

	clockOut := next.ClockOutTime
	if next.IsOpen {
		closeAt := now
		if seg, ok := ledger.OpenSegment(next.Segments); ok {
			closeAt = notBefore(closeAt, seg.StartTime)
		}
		next.Segments = ledger.CloseTrailingSegment(next.Segments, closeAt)
		if clockOut == nil {
			clockOut = &closeAt
		}
	}

	clockIn := next.ClockInTime
	if in.ClockIn != nil {
		clockIn = in.ClockIn.UTC()
	}
	if in.ClockOut != nil {
		v := in.ClockOut.UTC()
		clockOut = &v
	}
	if clockOut == nil {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "clock_out is required")
	}
	// a zero-length session stays valid, but proposed bounds must span time
	proposed := in.ClockIn != nil || in.ClockOut != nil
	if clockOut.Before(clockIn) || (proposed && clockIn.Equal(*clockOut)) {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "clock_in must be before clock_out")
	}

	if !next.WasEdited {
		orig := sess.ClockInTime
		next.OriginalClockInTime = &orig
		if sess.ClockOutTime != nil {
			o := *sess.ClockOutTime
			next.OriginalClockOutTime = &o
		}
	}

	out := *clockOut
	next.ClockInTime = clockIn
	next.ClockOutTime = &out
	next.TotalDurationMinutes = ledger.DurationMinutes(clockIn, out)
	next.WasEdited = true
	next.IsOpen = false
	next.Status = models.StatusPendingApproval
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		next.EditNotes = notes
	}
	next.EditRequestedAt = &now
	// a new request has not been decided yet
	next.ApproverID = ""
	next.ApprovalNotes = ""
	next.ApprovalTime = nil

	if err := s.save(ctx, next); err != nil {
		return nil, err
	}

	s.log.Info().Str("op", opRequestEdit).Str("actor_id", caller.ID).Str("session_id", next.ID).
		Msg("edit requested")
	return next, nil
}

// Approve accepts a session. Privileged callers only.
func (s *Service) Approve(ctx context.Context, caller auth.Actor, in ApprovalInput) (_ *models.Session, err error) {
	ctx, done := s.begin(ctx, opApprove, caller)
	defer func() { done(err) }()

	return s.decide(ctx, opApprove, caller, in, models.StatusApproved)
}

// Reject refuses a session. Notes explaining why are required.
func (s *Service) Reject(ctx context.Context, caller auth.Actor, in ApprovalInput) (_ *models.Session, err error) {
	ctx, done := s.begin(ctx, opReject, caller)
	defer func() { done(err) }()

	return s.decide(ctx, opReject, caller, in, models.StatusRejected)
}

func (s *Service) decide(ctx context.Context, op string, caller auth.Actor, in ApprovalInput, to models.Status) (*models.Session, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.SessionID) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "session id is required")
	}
	if !caller.Privileged {
		return nil, apperrors.New(apperrors.CodeForbidden, "only privileged actors may approve or reject")
	}
	notes := strings.TrimSpace(in.Notes)
	if to == models.StatusRejected && notes == "" {
		return nil, apperrors.New(apperrors.CodeMissingReason, "a reason is required to reject")
	}

	sess, err := s.load(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if s.policy.StrictApproval && sess.Status != models.StatusPendingApproval {
		return nil, apperrors.WithRecord(apperrors.CodeInvalidTransition,
			"session is "+string(sess.Status)+", not pending_approval", sess)
	}

	now := s.now()
	next := sess.Clone()
	next.Status = to
	next.ApproverID = caller.ID
	next.ApprovalTime = &now
	next.ApprovalNotes = notes

	if err := s.save(ctx, next); err != nil {
		return nil, err
	}

	s.log.Info().Str("op", op).Str("actor_id", caller.ID).Str("session_id", next.ID).
		Str("status", string(to)).Msg("session decided")
	return next, nil
}

package attendance

import (
	"context"
	"errors"
	"strings"

	"github.com/MyBusinesspace/MBP-sub007/internal/apperrors"
	"github.com/MyBusinesspace/MBP-sub007/internal/auth"
	"github.com/MyBusinesspace/MBP-sub007/internal/ledger"
	"github.com/MyBusinesspace/MBP-sub007/internal/models"
	"github.com/MyBusinesspace/MBP-sub007/internal/store"
)

const (
	opClockIn          = "ClockIn"
	opClockOut         = "ClockOut"
	opSwitchAssignment = "SwitchAssignment"
	opGetActiveSession = "GetActiveSession"
)

type ClockInInput struct {
	// ActorID defaults to the caller.
	ActorID      string             `json:"actor_id,omitempty"`
	AssignmentID string             `json:"assignment_id"`
	Capture      models.CaptureMeta `json:"capture"`
}

type ClockOutInput struct {
	ActorID string             `json:"actor_id,omitempty"`
	Capture models.CaptureMeta `json:"capture"`
	// AssignmentStatus, when set, is pushed to the assignment tracker for
	// the assignment of the last segment.
	AssignmentStatus string `json:"assignment_status,omitempty"`
}

type SwitchInput struct {
	ActorID      string             `json:"actor_id,omitempty"`
	AssignmentID string             `json:"assignment_id"`
	Capture      models.CaptureMeta `json:"capture"`
}

// ClockOutResult is a closed session plus an optional warning from the
// assignment tracker. A warning never undoes the clock-out.
type ClockOutResult struct {
	Session *models.Session `json:"session"`
	Warning string          `json:"warning,omitempty"`
}

// ClockIn opens a new session with one open segment on the given
// assignment. It fails with ALREADY_CLOCKED_IN, carrying the open session,
// when the actor already has one.
func (s *Service) ClockIn(ctx context.Context, caller auth.Actor, in ClockInInput) (_ *models.Session, err error) {
	ctx, done := s.begin(ctx, opClockIn, caller)
	defer func() { done(err) }()

	assignmentID := strings.TrimSpace(in.AssignmentID)
	if assignmentID == "" {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "assignment_id is required")
	}
	actorID, err := targetActor(caller, in.ActorID)
	if err != nil {
		return nil, err
	}

	existing, err := s.findOpen(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, alreadyClockedIn(existing)
	}

	now := s.now()
	segments, err := ledger.AppendSegment(nil, assignmentID, now, in.Capture)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to open segment", err)
	}
	sess := &models.Session{
		ID:             s.newID(),
		ActorID:        actorID,
		ClockInTime:    now,
		IsOpen:         true,
		Status:         models.StatusActive,
		Segments:       segments,
		ClockInCapture: in.Capture,
	}

	if err := s.store.Insert(ctx, sess); err != nil {
		if errors.Is(err, store.ErrOpenSessionExists) {
			// lost a race with a concurrent clock-in
			winner, ferr := s.findOpen(ctx, actorID)
			if ferr != nil || winner == nil {
				return nil, apperrors.Wrap(apperrors.CodeAlreadyClockedIn, "actor already has an open session", err)
			}
			return nil, alreadyClockedIn(winner)
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to create session", err)
	}

	s.log.Info().Str("op", opClockIn).Str("actor_id", actorID).Str("session_id", sess.ID).
		Str("assignment_id", assignmentID).Msg("clocked in")
	return sess, nil
}

func alreadyClockedIn(open *models.Session) error {
	return apperrors.WithRecord(apperrors.CodeAlreadyClockedIn,
		"actor already has an open session "+open.ID, open)
}

// ClockOut closes the actor's open session at now.
func (s *Service) ClockOut(ctx context.Context, caller auth.Actor, in ClockOutInput) (_ *ClockOutResult, err error) {
	ctx, done := s.begin(ctx, opClockOut, caller)
	defer func() { done(err) }()

	actorID, err := targetActor(caller, in.ActorID)
	if err != nil {
		return nil, err
	}
	open, err := s.requireOpen(ctx, actorID)
	if err != nil {
		return nil, err
	}

	next := open.Clone()
	now := notBefore(s.now(), next.ClockInTime)
	if seg, ok := ledger.OpenSegment(next.Segments); ok {
		now = notBefore(now, seg.StartTime)
	}
	next.Segments = ledger.CloseTrailingSegment(next.Segments, now)
	next.ClockOutTime = &now
	next.IsOpen = false
	next.Status = models.StatusCompleted
	next.ClockOutCapture = in.Capture
	next.TotalDurationMinutes = ledger.TotalDuration(next)

	if err := ledger.Validate(next); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "clock-out would corrupt the segment ledger", err)
	}
	if err := s.save(ctx, next); err != nil {
		return nil, err
	}

	s.metrics.observeDuration(next.TotalDurationMinutes)
	s.log.Info().Str("op", opClockOut).Str("actor_id", actorID).Str("session_id", next.ID).
		Int("total_minutes", next.TotalDurationMinutes).Msg("clocked out")

	res := &ClockOutResult{Session: next}
	if status := strings.TrimSpace(in.AssignmentStatus); status != "" && len(next.Segments) > 0 {
		assignmentID := next.Segments[len(next.Segments)-1].AssignmentID
		if uerr := s.tracker.UpdateStatus(ctx, assignmentID, status); uerr != nil {
			res.Warning = "session closed, but assignment " + assignmentID + " status was not updated: " + uerr.Error()
			s.metrics.downstreamWarning()
			s.log.Warn().Err(uerr).Str("op", opClockOut).Str("session_id", next.ID).
				Str("assignment_id", assignmentID).Msg("assignment status update failed")
		}
	}
	return res, nil
}

// SwitchAssignment closes the current segment and opens one on a new
// assignment at the same instant.
func (s *Service) SwitchAssignment(ctx context.Context, caller auth.Actor, in SwitchInput) (_ *models.Session, err error) {
	ctx, done := s.begin(ctx, opSwitchAssignment, caller)
	defer func() { done(err) }()

	assignmentID := strings.TrimSpace(in.AssignmentID)
	if assignmentID == "" {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "assignment_id is required")
	}
	actorID, err := targetActor(caller, in.ActorID)
	if err != nil {
		return nil, err
	}
	open, err := s.requireOpen(ctx, actorID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if seg, ok := ledger.OpenSegment(open.Segments); ok {
		if seg.AssignmentID == assignmentID {
			return nil, apperrors.Newf(apperrors.CodeInvalidRequest, "already working on assignment %s", assignmentID)
		}
		now = notBefore(now, seg.StartTime)
	}

	next := open.Clone()
	next.Segments = ledger.CloseTrailingSegment(next.Segments, now)
	next.Segments, err = ledger.AppendSegment(next.Segments, assignmentID, now, in.Capture)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to open segment", err)
	}
	if err := ledger.Validate(next); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "switch would corrupt the segment ledger", err)
	}
	if err := s.save(ctx, next); err != nil {
		return nil, err
	}

	s.log.Info().Str("op", opSwitchAssignment).Str("actor_id", actorID).Str("session_id", next.ID).
		Str("assignment_id", assignmentID).Msg("switched assignment")
	return next, nil
}

// GetActiveSession returns the actor's open session, or nil when there is
// none.
func (s *Service) GetActiveSession(ctx context.Context, caller auth.Actor, actorID string) (_ *models.Session, err error) {
	ctx, done := s.begin(ctx, opGetActiveSession, caller)
	defer func() { done(err) }()

	actorID, err = targetActor(caller, actorID)
	if err != nil {
		return nil, err
	}
	return s.findOpen(ctx, actorID)
}

package attendance

import (
	"context"
	"strings"
	"time"

	"github.com/MyBusinesspace/MBP-sub007/internal/apperrors"
	"github.com/MyBusinesspace/MBP-sub007/internal/auth"
	"github.com/MyBusinesspace/MBP-sub007/internal/models"
	"github.com/MyBusinesspace/MBP-sub007/internal/store"
)

const (
	opListSessions = "ListSessions"
	opGetSession   = "GetSession"
)

// ListQuery narrows ListSessions. From and To bound clock_in_time.
type ListQuery struct {
	ActorID string
	From    time.Time
	To      time.Time
	Status  models.Status
	Limit   int
}

// ListSessions returns sessions ordered by clock-in time. Regular actors
// only see their own; privileged actors see everyone's unless ActorID is
// set.
func (s *Service) ListSessions(ctx context.Context, caller auth.Actor, q ListQuery) (_ []models.Session, err error) {
	ctx, done := s.begin(ctx, opListSessions, caller)
	defer func() { done(err) }()

	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, apperrors.Newf(apperrors.CodeInvalidRequest, "unknown status %q", q.Status)
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "to must not be before from")
	}
	if q.Limit < 0 {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "limit must not be negative")
	}

	actorID := strings.TrimSpace(q.ActorID)
	if !caller.Privileged {
		if actorID != "" && actorID != caller.ID {
			return nil, apperrors.New(apperrors.CodeForbidden, "not allowed to list another actor's sessions")
		}
		actorID = caller.ID
	}

	sessions, err := s.store.FindMany(ctx, store.Filter{
		ActorID: actorID,
		Status:  q.Status,
		From:    q.From,
		To:      q.To,
		Limit:   q.Limit,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to list sessions", err)
	}
	return sessions, nil
}

// GetSession loads one session for its owner or a privileged actor.
func (s *Service) GetSession(ctx context.Context, caller auth.Actor, id string) (_ *models.Session, err error) {
	ctx, done := s.begin(ctx, opGetSession, caller)
	defer func() { done(err) }()

	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canRead(caller, sess) {
		return nil, apperrors.New(apperrors.CodeForbidden, "not allowed to read this session")
	}
	return sess, nil
}

// Package attendance implements the work session state machine: clocking
// in and out, switching assignments, recording tracking points and the
// edit-request approval workflow.
//
// Every call is a single unit of work against the store. The service keeps
// no session state between calls.
package attendance

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MyBusinesspace/MBP-sub007/internal/apperrors"
	"github.com/MyBusinesspace/MBP-sub007/internal/assignment"
	"github.com/MyBusinesspace/MBP-sub007/internal/auth"
	"github.com/MyBusinesspace/MBP-sub007/internal/models"
	"github.com/MyBusinesspace/MBP-sub007/internal/store"
	"github.com/MyBusinesspace/MBP-sub007/internal/telemetry"
)

// Clock returns the current time.
type Clock func() time.Time

// Policy holds deployment-dependent rules.
type Policy struct {
	// StrictApproval only allows approve/reject of pending_approval sessions.
	StrictApproval bool
	// AllowPrivilegedEdit lets privileged actors request edits on sessions
	// they do not own.
	AllowPrivilegedEdit bool
	// MaxTrackingPoints caps the samples stored per session.
	MaxTrackingPoints int
}

// DefaultPolicy is strict approval, owner-only edits, 5000 points.
func DefaultPolicy() Policy {
	return Policy{StrictApproval: true, MaxTrackingPoints: 5000}
}

type Service struct {
	store   store.SessionStore
	clock   Clock
	newID   func() string
	log     zerolog.Logger
	metrics *Metrics
	tracker assignment.Tracker
	tracer  trace.Tracer
	policy  Policy
}

type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracker(t assignment.Tracker) Option {
	return func(s *Service) {
		if t != nil {
			s.tracker = t
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// New returns a Service backed by st.
func New(st store.SessionStore, opts ...Option) *Service {
	s := &Service{
		store:   st,
		clock:   time.Now,
		newID:   uuid.NewString,
		log:     zerolog.Nop(),
		tracker: assignment.Noop{},
		policy:  DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = telemetry.Tracer()
	}
	if s.policy.MaxTrackingPoints <= 0 {
		s.policy.MaxTrackingPoints = DefaultPolicy().MaxTrackingPoints
	}
	return s
}

// Policy returns the rules the service enforces.
func (s *Service) Policy() Policy {
	return s.policy
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// begin opens a span for op. The returned func records the outcome and
// must be called with the operation's final error.
func (s *Service) begin(ctx context.Context, op string, caller auth.Actor) (context.Context, func(error)) {
	ctx, span := s.tracer.Start(ctx, "attendance."+op,
		trace.WithAttributes(attribute.String("actor.id", caller.ID)))

	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			code := apperrors.CodeOf(err)
			outcome = strings.ToLower(string(code))
			span.RecordError(err)
			span.SetStatus(codes.Error, string(code))
			if code == apperrors.CodeInternal {
				s.log.Error().Err(err).Str("op", op).Str("actor_id", caller.ID).Msg("operation failed")
			} else {
				s.log.Debug().Err(err).Str("op", op).Str("actor_id", caller.ID).Msg("operation refused")
			}
		}
		s.metrics.transition(op, outcome)
		span.End()
	}
}

// targetActor resolves whose session an operation acts on. Only privileged
// callers may name someone else.
func targetActor(caller auth.Actor, requested string) (string, error) {
	if strings.TrimSpace(caller.ID) == "" {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "caller identity is required")
	}
	requested = strings.TrimSpace(requested)
	if requested == "" || requested == caller.ID {
		return caller.ID, nil
	}
	if !caller.Privileged {
		return "", apperrors.New(apperrors.CodeForbidden, "only privileged actors may act for another actor")
	}
	return requested, nil
}

func requireCaller(caller auth.Actor) error {
	if strings.TrimSpace(caller.ID) == "" {
		return apperrors.New(apperrors.CodeUnauthenticated, "caller identity is required")
	}
	return nil
}

func canRead(caller auth.Actor, sess *models.Session) bool {
	return caller.Privileged || sess.ActorID == caller.ID
}

// findOpen returns the actor's open session or nil.
func (s *Service) findOpen(ctx context.Context, actorID string) (*models.Session, error) {
	open, err := s.store.FindMany(ctx, store.Filter{ActorID: actorID, IsOpen: store.Open(true), Limit: 1})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to load open session", err)
	}
	if len(open) == 0 {
		return nil, nil
	}
	return &open[0], nil
}

func (s *Service) requireOpen(ctx context.Context, actorID string) (*models.Session, error) {
	open, err := s.findOpen(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, apperrors.Newf(apperrors.CodeNoActiveSession, "actor %s has no open session", actorID)
	}
	return open, nil
}

func (s *Service) load(ctx context.Context, id string) (*models.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "session id is required")
	}
	sess, err := s.store.FindOne(ctx, store.Filter{ID: id})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "session %s not found", id)
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to load session", err)
	}
	return sess, nil
}

// save writes next with a version check.
func (s *Service) save(ctx context.Context, next *models.Session) error {
	if err := s.store.Update(ctx, next); err != nil {
		return s.storeError(ctx, next.ID, err)
	}
	return nil
}

// storeError turns store sentinels into domain errors. A version conflict
// carries the freshly loaded record.
func (s *Service) storeError(ctx context.Context, id string, err error) error {
	switch {
	case errors.Is(err, store.ErrVersionConflict):
		conflict := &apperrors.Error{
			Code:    apperrors.CodeConcurrentModification,
			Message: "session was modified by another request, reload and retry",
			Cause:   err,
		}
		if fresh, ferr := s.store.FindOne(ctx, store.Filter{ID: id}); ferr == nil {
			conflict.Record = fresh
		}
		return conflict
	case errors.Is(err, store.ErrNotFound):
		return apperrors.Newf(apperrors.CodeNotFound, "session %s not found", id)
	default:
		return apperrors.Wrap(apperrors.CodeInternal, "failed to save session", err)
	}
}

// notBefore returns t, or floor when t is earlier.
func notBefore(t, floor time.Time) time.Time {
	if t.Before(floor) {
		return floor
	}
	return t
}

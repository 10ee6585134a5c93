package attendance

import (
	"context"
	"math"

	"github.com/MyBusinesspace/MBP-sub007/internal/apperrors"
	"github.com/MyBusinesspace/MBP-sub007/internal/auth"
	"github.com/MyBusinesspace/MBP-sub007/internal/models"
)

const (
	opAddTrackingPoint   = "AddTrackingPoint"
	opListTrackingPoints = "ListTrackingPoints"

	DefaultPageSize = 100
	MaxPageSize     = 1000
)

type TrackInput struct {
	ActorID string  `json:"actor_id,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type TrackResult struct {
	Session *models.Session       `json:"session"`
	Point   *models.TrackingPoint `json:"point"`
}

func validCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// AddTrackingPoint appends a location sample to the actor's open session.
func (s *Service) AddTrackingPoint(ctx context.Context, caller auth.Actor, in TrackInput) (_ *TrackResult, err error) {
	ctx, done := s.begin(ctx, opAddTrackingPoint, caller)
	defer func() { done(err) }()

	if !validCoordinates(in.Lat, in.Lon) {
		return nil, apperrors.Newf(apperrors.CodeInvalidRequest, "coordinates out of range: lat=%v lon=%v", in.Lat, in.Lon)
	}
	actorID, err := targetActor(caller, in.ActorID)
	if err != nil {
		return nil, err
	}
	open, err := s.requireOpen(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if open.TrackingPointCount >= s.policy.MaxTrackingPoints {
		return nil, apperrors.WithRecord(apperrors.CodeTrackingLimitReached,
			"session already holds the maximum number of tracking points", open)
	}

	next := open.Clone()
	point := &models.TrackingPoint{
		Timestamp: s.now(),
		Lat:       in.Lat,
		Lon:       in.Lon,
	}
	if err := s.store.AppendTrackingPoint(ctx, next, point); err != nil {
		return nil, s.storeError(ctx, next.ID, err)
	}

	s.log.Debug().Str("op", opAddTrackingPoint).Str("actor_id", actorID).Str("session_id", next.ID).
		Int("seq", point.Seq).Msg("tracking point recorded")
	return &TrackResult{Session: next, Point: point}, nil
}

// ListTrackingPoints pages through a session's samples in order. A zero
// limit means DefaultPageSize.
func (s *Service) ListTrackingPoints(ctx context.Context, caller auth.Actor, sessionID string, offset, limit int) (_ []models.TrackingPoint, err error) {
	ctx, done := s.begin(ctx, opListTrackingPoints, caller)
	defer func() { done(err) }()

	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if offset < 0 || limit < 0 {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "offset and limit must not be negative")
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canRead(caller, sess) {
		return nil, apperrors.New(apperrors.CodeForbidden, "not allowed to read this session")
	}

	points, err := s.store.ListTrackingPoints(ctx, sess.ID, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to list tracking points", err)
	}
	return points, nil
}

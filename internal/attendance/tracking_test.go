package attendance

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyBusinesspace/MBP-sub007/internal/apperrors"
	"github.com/MyBusinesspace/MBP-sub007/internal/models"
)

func TestAddTrackingPoint(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sess, err := h.svc.ClockIn(ctx, ana, ClockInInput{AssignmentID: "X"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		h.clock.Advance(time.Minute)
		res, err := h.svc.AddTrackingPoint(ctx, ana, TrackInput{Lat: 41.0 + float64(i), Lon: 2.0})
		require.NoError(t, err)
		assert.Equal(t, i+1, res.Point.Seq)
		assert.Equal(t, i+1, res.Session.TrackingPointCount)
		assert.True(t, res.Point.Timestamp.Equal(t0.Add(time.Duration(i+1)*time.Minute)))
	}

	got := h.reload(t, sess.ID)
	assert.Equal(t, 3, got.TrackingPointCount)
	require.NotNil(t, got.LastTrackedAt)
	assert.True(t, got.LastTrackedAt.Equal(t0.Add(3*time.Minute)))

	page, err := h.svc.ListTrackingPoints(ctx, ana, sess.ID, 1, 5)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 2, page[0].Seq)
	assert.Equal(t, 42.0, page[0].Lat)
	assert.Equal(t, 3, page[1].Seq)

	all, err := h.svc.ListTrackingPoints(ctx, dana, sess.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	requireInvariants(t, h.store)
}

func TestAddTrackingPointValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.AddTrackingPoint(ctx, ana, TrackInput{Lat: 1, Lon: 1})
	requireCode(t, err, apperrors.CodeNoActiveSession)

	_, err = h.svc.ClockIn(ctx, ana, ClockInInput{AssignmentID: "X"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		lat, lon float64
	}{
		{name: "lat too high", lat: 90.01, lon: 0},
		{name: "lat too low", lat: -91, lon: 0},
		{name: "lon too high", lat: 0, lon: 180.5},
		{name: "lon too low", lat: 0, lon: -181},
		{name: "nan", lat: math.NaN(), lon: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.AddTrackingPoint(ctx, ana, TrackInput{Lat: tt.lat, Lon: tt.lon})
			requireCode(t, err, apperrors.CodeInvalidRequest)
		})
	}

	_, err = h.svc.AddTrackingPoint(ctx, ana, TrackInput{Lat: 90, Lon: -180})
	assert.NoError(t, err)
}

func TestTrackingPointLimit(t *testing.T) {
	h := newHarness(t, WithPolicy(Policy{StrictApproval: true, MaxTrackingPoints: 2}))
	ctx := context.Background()

	_, err := h.svc.ClockIn(ctx, ana, ClockInInput{AssignmentID: "X"})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := h.svc.AddTrackingPoint(ctx, ana, TrackInput{Lat: 1, Lon: 1})
		require.NoError(t, err)
	}

	_, err = h.svc.AddTrackingPoint(ctx, ana, TrackInput{Lat: 1, Lon: 1})
	requireCode(t, err, apperrors.CodeTrackingLimitReached)
	rec, ok := apperrors.RecordOf(err).(*models.Session)
	require.True(t, ok)
	assert.Equal(t, 2, rec.TrackingPointCount)
}

func TestTrackingPointsDoNotBreakLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.ClockIn(ctx, ana, ClockInInput{AssignmentID: "X"})
	require.NoError(t, err)
	_, err = h.svc.AddTrackingPoint(ctx, ana, TrackInput{Lat: 1, Lon: 1})
	require.NoError(t, err)

	// the version bumped by the point must not make clock-out stale
	h.clock.Advance(15 * time.Minute)
	res, err := h.svc.ClockOut(ctx, ana, ClockOutInput{})
	require.NoError(t, err)
	assert.Equal(t, 15, res.Session.TotalDurationMinutes)
	assert.Equal(t, 1, res.Session.TrackingPointCount)
}

func TestListTrackingPointsAccess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sess, err := h.svc.ClockIn(ctx, ana, ClockInInput{AssignmentID: "X"})
	require.NoError(t, err)

	_, err = h.svc.ListTrackingPoints(ctx, ben, sess.ID, 0, 10)
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = h.svc.ListTrackingPoints(ctx, ana, "missing", 0, 10)
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = h.svc.ListTrackingPoints(ctx, ana, sess.ID, -1, 10)
	requireCode(t, err, apperrors.CodeInvalidRequest)
}

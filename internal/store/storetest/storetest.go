// Package storetest is a conformance suite for store.SessionStore
// implementations.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyBusinesspace/MBP-sub007/internal/models"
	"github.com/MyBusinesspace/MBP-sub007/internal/store"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// Opener returns a fresh, empty store for one subtest.
type Opener func(t *testing.T) store.SessionStore

// Run exercises the store contract against stores returned by open.
func Run(t *testing.T, open Opener) {
	t.Run("insert and find", func(t *testing.T) { testInsertFind(t, open(t)) })
	t.Run("one open session per actor", func(t *testing.T) { testOneOpen(t, open(t)) })
	t.Run("concurrent inserts", func(t *testing.T) { testConcurrentInsert(t, open(t)) })
	t.Run("versioned update", func(t *testing.T) { testVersionedUpdate(t, open(t)) })
	t.Run("closing frees the open slot", func(t *testing.T) { testCloseFreesSlot(t, open(t)) })
	t.Run("tracking points", func(t *testing.T) { testTrackingPoints(t, open(t)) })
}

// NewOpenSession builds an open session with one open segment.
func NewOpenSession(actor string, at time.Time) *models.Session {
	return &models.Session{
		ID:          uuid.NewString(),
		ActorID:     actor,
		ClockInTime: at,
		IsOpen:      true,
		Status:      models.StatusActive,
		Segments:    []models.Segment{{AssignmentID: "X", StartTime: at}},
	}
}

func testInsertFind(t *testing.T, s store.SessionStore) {
	ctx := context.Background()

	sess := NewOpenSession("ana", t0)
	require.NoError(t, s.Insert(ctx, sess))
	assert.Equal(t, 1, sess.Version)

	got, err := s.FindOne(ctx, store.Filter{ActorID: "ana", IsOpen: store.Open(true)})
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	require.Len(t, got.Segments, 1)
	assert.True(t, got.Segments[0].StartTime.Equal(t0))

	got, err = s.FindOne(ctx, store.Filter{ID: sess.ID})
	require.NoError(t, err)
	assert.Equal(t, "ana", got.ActorID)

	_, err = s.FindOne(ctx, store.Filter{ActorID: "bo"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	many, err := s.FindMany(ctx, store.Filter{ActorID: "bo"})
	require.NoError(t, err)
	assert.Empty(t, many)
}

func testOneOpen(t *testing.T, s store.SessionStore) {
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, NewOpenSession("ana", t0)))
	assert.ErrorIs(t, s.Insert(ctx, NewOpenSession("ana", t0.Add(time.Minute))), store.ErrOpenSessionExists)
	require.NoError(t, s.Insert(ctx, NewOpenSession("bo", t0)))
}

func testConcurrentInsert(t *testing.T, s store.SessionStore) {
	ctx := context.Background()

	const n = 6
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Insert(ctx, NewOpenSession("ana", t0))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, store.ErrOpenSessionExists)
		}
	}
	assert.Equal(t, 1, succeeded)

	open, err := s.FindMany(ctx, store.Filter{ActorID: "ana", IsOpen: store.Open(true)})
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func testVersionedUpdate(t *testing.T, s store.SessionStore) {
	ctx := context.Background()

	sess := NewOpenSession("ana", t0)
	require.NoError(t, s.Insert(ctx, sess))
	stale, err := s.FindOne(ctx, store.Filter{ID: sess.ID})
	require.NoError(t, err)

	end := t0.Add(20 * time.Minute)
	sess.IsOpen = false
	sess.Status = models.StatusCompleted
	sess.ClockOutTime = &end
	sess.Segments[0].EndTime = &end
	sess.Segments[0].DurationMinutes = 20
	require.NoError(t, s.Update(ctx, sess))
	assert.Equal(t, 2, sess.Version)

	stale.Status = models.StatusPendingApproval
	assert.ErrorIs(t, s.Update(ctx, stale), store.ErrVersionConflict)

	got, err := s.FindOne(ctx, store.Filter{ID: sess.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, 2, got.Version)

	ghost := NewOpenSession("zed", t0)
	ghost.Version = 1
	assert.ErrorIs(t, s.Update(ctx, ghost), store.ErrNotFound)
}

func testCloseFreesSlot(t *testing.T, s store.SessionStore) {
	ctx := context.Background()

	sess := NewOpenSession("ana", t0)
	require.NoError(t, s.Insert(ctx, sess))
	sess.IsOpen = false
	sess.Status = models.StatusCompleted
	require.NoError(t, s.Update(ctx, sess))

	require.NoError(t, s.Insert(ctx, NewOpenSession("ana", t0.Add(time.Hour))))

	all, err := s.FindMany(ctx, store.Filter{ActorID: "ana"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, sess.ID, all[0].ID)
}

func testTrackingPoints(t *testing.T, s store.SessionStore) {
	ctx := context.Background()

	sess := NewOpenSession("ana", t0)
	require.NoError(t, s.Insert(ctx, sess))

	for i := 0; i < 4; i++ {
		p := &models.TrackingPoint{Timestamp: t0.Add(time.Duration(i) * time.Minute), Lat: 10, Lon: float64(i)}
		require.NoError(t, s.AppendTrackingPoint(ctx, sess, p))
		assert.Equal(t, i+1, p.Seq)
	}
	assert.Equal(t, 4, sess.TrackingPointCount)
	assert.Equal(t, 5, sess.Version)

	page, err := s.ListTrackingPoints(ctx, sess.ID, 2, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 3, page[0].Seq)
	assert.Equal(t, float64(3), page[1].Lon)

	none, err := s.ListTrackingPoints(ctx, "nope", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

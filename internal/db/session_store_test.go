package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyBusinesspace/MBP-sub007/internal/models"
	"github.com/MyBusinesspace/MBP-sub007/internal/store"
	"github.com/MyBusinesspace/MBP-sub007/internal/store/storetest"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "timeclock.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var newOpenSession = storetest.NewOpenSession

func TestInsertAndFindOne(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sess := newOpenSession("ana", t0)
	sess.ClockInCapture = models.CaptureMeta{Address: "gate 2", Extra: map[string]string{"device": "kiosk"}}
	require.NoError(t, s.Insert(ctx, sess))
	assert.Equal(t, 1, sess.Version)

	got, err := s.FindOne(ctx, store.Filter{ActorID: "ana", IsOpen: store.Open(true)})
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.True(t, got.ClockInTime.Equal(t0))
	require.Len(t, got.Segments, 1)
	assert.Equal(t, "X", got.Segments[0].AssignmentID)
	assert.True(t, got.Segments[0].StartTime.Equal(t0))
	assert.Nil(t, got.Segments[0].EndTime)
	assert.Equal(t, "kiosk", got.ClockInCapture.Extra["device"])

	_, err = s.FindOne(ctx, store.Filter{ActorID: "bo"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestInsertRejectsSecondOpenSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, newOpenSession("ana", t0)))
	err := s.Insert(ctx, newOpenSession("ana", t0.Add(time.Minute)))
	assert.ErrorIs(t, err, store.ErrOpenSessionExists)

	// other actors and closed sessions are unaffected
	require.NoError(t, s.Insert(ctx, newOpenSession("bo", t0)))
	closed := newOpenSession("ana", t0.Add(-time.Hour))
	closed.IsOpen = false
	closed.Status = models.StatusCompleted
	require.NoError(t, s.Insert(ctx, closed))
}

func TestUpdateChecksVersion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sess := newOpenSession("ana", t0)
	require.NoError(t, s.Insert(ctx, sess))

	stale, err := s.FindOne(ctx, store.Filter{ID: sess.ID})
	require.NoError(t, err)

	end := t0.Add(45 * time.Minute)
	sess.IsOpen = false
	sess.Status = models.StatusCompleted
	sess.ClockOutTime = &end
	sess.Segments[0].EndTime = &end
	sess.Segments[0].DurationMinutes = 45
	sess.TotalDurationMinutes = 45
	require.NoError(t, s.Update(ctx, sess))
	assert.Equal(t, 2, sess.Version)

	stale.Status = models.StatusPendingApproval
	assert.ErrorIs(t, s.Update(ctx, stale), store.ErrVersionConflict)

	got, err := s.FindOne(ctx, store.Filter{ID: sess.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.False(t, got.IsOpen)
	assert.Equal(t, 45, got.TotalDurationMinutes)
	require.NotNil(t, got.Segments[0].EndTime)
	assert.True(t, got.Segments[0].EndTime.Equal(end))

	missing := newOpenSession("zed", t0)
	missing.Version = 1
	assert.ErrorIs(t, s.Update(ctx, missing), store.ErrNotFound)
}

func TestFindManyFiltersAndOrders(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, actor := range []string{"ana", "bo", "ana"} {
		sess := newOpenSession(actor, t0.Add(time.Duration(2-i)*time.Hour))
		sess.IsOpen = false
		sess.Status = models.StatusCompleted
		require.NoError(t, s.Insert(ctx, sess))
	}

	got, err := s.FindMany(ctx, store.Filter{ActorID: "ana"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].ClockInTime.Before(got[1].ClockInTime))

	got, err = s.FindMany(ctx, store.Filter{From: t0.Add(30 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.FindMany(ctx, store.Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].ClockInTime.Equal(t0))
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.SessionStore { return openTestStore(t) })
}

package boltstore

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

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "timeclock.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.SessionStore { return openTestStore(t) })
}

func TestReopenKeepsOpenIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeclock.bolt")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	sess := storetest.NewOpenSession("ana", time.Now().UTC())
	require.NoError(t, s.Insert(ctx, sess))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.ErrorIs(t, s.Insert(ctx, storetest.NewOpenSession("ana", time.Now().UTC())), store.ErrOpenSessionExists)
	got, err := s.FindOne(ctx, store.Filter{ActorID: "ana", IsOpen: store.Open(true)})
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
}

func TestCanceledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Insert(ctx, &models.Session{ID: "x"}), context.Canceled)
	_, err := s.FindMany(ctx, store.Filter{})
	assert.ErrorIs(t, err, context.Canceled)
}

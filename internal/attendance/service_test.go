package attendance

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyBusinesspace/MBP-sub007/internal/apperrors"
	"github.com/MyBusinesspace/MBP-sub007/internal/auth"
	"github.com/MyBusinesspace/MBP-sub007/internal/boltstore"
	"github.com/MyBusinesspace/MBP-sub007/internal/ledger"
	"github.com/MyBusinesspace/MBP-sub007/internal/models"
	"github.com/MyBusinesspace/MBP-sub007/internal/store"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

var (
	ana  = auth.Actor{ID: "ana"}
	ben  = auth.Actor{ID: "ben"}
	dana = auth.Actor{ID: "dana", Privileged: true}
)

// fakeClock is a settable clock shared by a test and its service.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	svc     *Service
	store   store.SessionStore
	clock   *fakeClock
	metrics *Metrics
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	st, err := boltstore.Open(filepath.Join(t.TempDir(), "timeclock.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return newHarnessWithStore(t, st, opts...)
}

func newHarnessWithStore(t *testing.T, st store.SessionStore, opts ...Option) *harness {
	t.Helper()
	h := &harness{store: st, clock: &fakeClock{now: t0}, metrics: NewMetrics()}
	opts = append([]Option{WithClock(h.clock.Now), WithMetrics(h.metrics)}, opts...)
	h.svc = New(st, opts...)
	return h
}

func (h *harness) reload(t *testing.T, id string) *models.Session {
	t.Helper()
	sess, err := h.store.FindOne(context.Background(), store.Filter{ID: id})
	require.NoError(t, err)
	return sess
}

// requireInvariants checks the rules every stored session must satisfy.
func requireInvariants(t *testing.T, st store.SessionStore) {
	t.Helper()
	all, err := st.FindMany(context.Background(), store.Filter{})
	require.NoError(t, err)

	openByActor := map[string]int{}
	for i := range all {
		s := &all[i]
		if s.IsOpen {
			openByActor[s.ActorID]++
		}
		require.NotEmpty(t, s.Segments, "session %s has no segments", s.ID)
		if !s.WasEdited {
			require.NoError(t, ledger.Validate(s), "session %s", s.ID)
		}
		for _, seg := range s.Segments {
			if seg.EndTime != nil {
				assert.GreaterOrEqual(t, seg.DurationMinutes, 0)
				assert.False(t, seg.EndTime.Before(seg.StartTime))
			}
			if !s.IsOpen {
				assert.NotNil(t, seg.EndTime, "closed session %s has an open segment", s.ID)
			}
		}
		if s.Status == models.StatusPendingApproval {
			assert.False(t, s.IsOpen)
			assert.True(t, s.WasEdited)
		}
		if s.Status == models.StatusApproved || s.Status == models.StatusRejected {
			assert.NotEmpty(t, s.ApproverID)
			assert.NotNil(t, s.ApprovalTime)
		}
	}
	for actor, n := range openByActor {
		assert.LessOrEqual(t, n, 1, "actor %s has %d open sessions", actor, n)
	}
}

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue next
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

type recordingTracker struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingTracker) UpdateStatus(_ context.Context, assignmentID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, assignmentID+"="+status)
	return r.err
}

// staleStore fails every Update as if another writer got there first.
type staleStore struct {
	store.SessionStore
}

func (staleStore) Update(context.Context, *models.Session) error {
	return store.ErrVersionConflict
}

// vanishingStore loses every Update and the record with it, so the
// conflict cannot be reloaded.
type vanishingStore struct {
	store.SessionStore
	gone bool
}

func (v *vanishingStore) Update(context.Context, *models.Session) error {
	v.gone = true
	return store.ErrVersionConflict
}

func (v *vanishingStore) FindOne(ctx context.Context, f store.Filter) (*models.Session, error) {
	if v.gone {
		return nil, store.ErrNotFound
	}
	return v.SessionStore.FindOne(ctx, f)
}

// brokenStore fails reads.
type brokenStore struct {
	store.SessionStore
}

func (brokenStore) FindMany(context.Context, store.Filter) ([]models.Session, error) {
	return nil, errors.New("disk on fire")
}

func requireCode(t *testing.T, err error, code apperrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, apperrors.CodeOf(err), "error: %v", err)
}

// Package boltstore is a store.SessionStore kept in a single bbolt file.
//
// Sessions are JSON values in the "sessions" bucket. The "open_by_actor"
// bucket maps an actor to its open session id and is written in the same
// transaction as the session, which is what makes Insert atomic. Tracking
// points live in one nested bucket per session keyed by big-endian sequence.
package boltstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/MyBusinesspace/MBP-sub007/internal/models"
	"github.com/MyBusinesspace/MBP-sub007/internal/store"
)

var (
	sessionsBucket = []byte("sessions")
	openBucket     = []byte("open_by_actor")
	pointsBucket   = []byte("tracking_points")
)

var _ store.SessionStore = (*Store)(nil)

// Store implements store.SessionStore using bbolt
type Store struct {
	db *bolt.DB
}

// Open opens or creates the bolt file at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{sessionsBucket, openBucket, pointsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the bolt database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// FindOne implements store.SessionStore
func (s *Store) FindOne(ctx context.Context, f store.Filter) (*models.Session, error) {
	f.Limit = 1
	found, err := s.FindMany(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, store.ErrNotFound
	}
	return &found[0], nil
}

// FindMany implements store.SessionStore
func (s *Store) FindMany(ctx context.Context, f store.Filter) ([]models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []models.Session
	err := s.db.View(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(sessionsBucket)

		// direct lookups avoid a full scan
		if f.ID != "" {
			return appendIfMatch(&out, sessions.Get([]byte(f.ID)), f)
		}
		if f.ActorID != "" && f.IsOpen != nil && *f.IsOpen {
			id := tx.Bucket(openBucket).Get([]byte(f.ActorID))
			if id == nil {
				return nil
			}
			return appendIfMatch(&out, sessions.Get(id), f)
		}

		return sessions.ForEach(func(_, v []byte) error {
			return appendIfMatch(&out, v, f)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("find sessions: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ClockInTime.Before(out[j].ClockInTime)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Insert implements store.SessionStore
func (s *Store) Insert(ctx context.Context, session *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now().UTC()
	session.Version = 1
	session.CreatedAt = now
	session.UpdatedAt = now

	return s.db.Update(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(sessionsBucket)
		if sessions.Get([]byte(session.ID)) != nil {
			return fmt.Errorf("session %s already exists", session.ID)
		}

		if session.IsOpen {
			open := tx.Bucket(openBucket)
			if open.Get([]byte(session.ActorID)) != nil {
				return store.ErrOpenSessionExists
			}
			if err := open.Put([]byte(session.ActorID), []byte(session.ID)); err != nil {
				return err
			}
		}

		return putSession(sessions, session)
	})
}

// Update implements store.SessionStore
func (s *Store) Update(ctx context.Context, session *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	next := session.Clone()
	err := s.db.Update(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(sessionsBucket)
		current, err := getSession(sessions, session.ID)
		if err != nil {
			return err
		}
		if current.Version != session.Version {
			return store.ErrVersionConflict
		}

		if err := syncOpenIndex(tx.Bucket(openBucket), current, next); err != nil {
			return err
		}

		next.Version = current.Version + 1
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = time.Now().UTC()
		return putSession(sessions, next)
	})
	if err != nil {
		return err
	}

	session.Version = next.Version
	session.UpdatedAt = next.UpdatedAt
	return nil
}

// AppendTrackingPoint implements store.SessionStore
func (s *Store) AppendTrackingPoint(ctx context.Context, session *models.Session, point *models.TrackingPoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var stored *models.Session
	err := s.db.Update(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(sessionsBucket)
		current, err := getSession(sessions, session.ID)
		if err != nil {
			return err
		}
		if current.Version != session.Version {
			return store.ErrVersionConflict
		}

		points, err := tx.Bucket(pointsBucket).CreateBucketIfNotExists([]byte(session.ID))
		if err != nil {
			return err
		}

		point.SessionID = session.ID
		point.Seq = current.TrackingPointCount + 1
		data, err := json.Marshal(point)
		if err != nil {
			return err
		}
		if err := points.Put(seqKey(point.Seq), data); err != nil {
			return err
		}

		ts := point.Timestamp
		current.TrackingPointCount = point.Seq
		current.LastTrackedAt = &ts
		current.Version++
		current.UpdatedAt = time.Now().UTC()
		stored = current
		return putSession(sessions, current)
	})
	if err != nil {
		return err
	}

	session.TrackingPointCount = stored.TrackingPointCount
	session.LastTrackedAt = stored.LastTrackedAt
	session.Version = stored.Version
	session.UpdatedAt = stored.UpdatedAt
	return nil
}

// ListTrackingPoints implements store.SessionStore
func (s *Store) ListTrackingPoints(ctx context.Context, sessionID string, offset, limit int) ([]models.TrackingPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []models.TrackingPoint
	err := s.db.View(func(tx *bolt.Tx) error {
		points := tx.Bucket(pointsBucket).Bucket([]byte(sessionID))
		if points == nil {
			return nil
		}
		c := points.Cursor()
		// keys are dense sequence numbers starting at 1
		for k, v := c.Seek(seqKey(offset + 1)); k != nil; k, v = c.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var p models.TrackingPoint
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tracking points: %w", err)
	}
	return out, nil
}

// syncOpenIndex keeps open_by_actor in line with a session's is_open flag
func syncOpenIndex(open *bolt.Bucket, current, next *models.Session) error {
	key := []byte(current.ActorID)
	switch {
	case current.IsOpen && !next.IsOpen:
		if bytes.Equal(open.Get(key), []byte(current.ID)) {
			return open.Delete(key)
		}
	case !current.IsOpen && next.IsOpen:
		if open.Get(key) != nil {
			return store.ErrOpenSessionExists
		}
		return open.Put(key, []byte(current.ID))
	}
	return nil
}

func appendIfMatch(out *[]models.Session, data []byte, f store.Filter) error {
	if data == nil {
		return nil
	}
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return err
	}
	if f.Matches(&session) {
		*out = append(*out, session)
	}
	return nil
}

func getSession(b *bolt.Bucket, id string) (*models.Session, error) {
	data := b.Get([]byte(id))
	if data == nil {
		return nil, store.ErrNotFound
	}
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &session, nil
}

func putSession(b *bolt.Bucket, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}
	return b.Put([]byte(session.ID), data)
}

func seqKey(seq int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(seq))
	return k
}

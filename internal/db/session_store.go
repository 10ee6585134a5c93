package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/MyBusinesspace/MBP-sub007/internal/models"
	"github.com/MyBusinesspace/MBP-sub007/internal/store"
)

var _ store.SessionStore = (*Store)(nil)

// FindOne returns the first session matching the filter
func (s *Store) FindOne(ctx context.Context, f store.Filter) (*models.Session, error) {
	var session models.Session

	err := applyFilter(s.db.WithContext(ctx), f).Order("clock_in_time ASC").First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}

	return &session, nil
}

// FindMany returns all matching sessions, oldest clock-in first
func (s *Store) FindMany(ctx context.Context, f store.Filter) ([]models.Session, error) {
	var sessions []models.Session

	q := applyFilter(s.db.WithContext(ctx), f).Order("clock_in_time ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("find sessions: %w", err)
	}

	return sessions, nil
}

// Insert creates a new session record
func (s *Store) Insert(ctx context.Context, session *models.Session) error {
	session.Version = 1

	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		if isOpenSessionViolation(err) {
			return store.ErrOpenSessionExists
		}
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// Update saves the full session if nobody else wrote it since it was loaded
func (s *Store) Update(ctx context.Context, session *models.Session) error {
	prev := session.Version
	next := session.Clone()
	next.Version = prev + 1

	res := s.db.WithContext(ctx).
		Model(next).
		Where("version = ?", prev).
		Select("*").
		Omit("created_at").
		Updates(next)
	if res.Error != nil {
		return fmt.Errorf("update session %s: %w", session.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return s.missingOrStale(ctx, session.ID)
	}

	session.Version = next.Version
	session.UpdatedAt = next.UpdatedAt
	return nil
}

// AppendTrackingPoint stores the next location sample of a session
func (s *Store) AppendTrackingPoint(ctx context.Context, session *models.Session, point *models.TrackingPoint) error {
	prev := session.Version
	seq := session.TrackingPointCount + 1
	now := time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Session{}).
			Where("id = ? AND version = ?", session.ID, prev).
			Updates(map[string]any{
				"tracking_point_count": seq,
				"last_tracked_at":      point.Timestamp,
				"version":              prev + 1,
				"updated_at":           now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return s.missingOrStale(ctx, session.ID)
		}

		point.SessionID = session.ID
		point.Seq = seq
		return tx.Create(point).Error
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("append tracking point: %w", err)
	}

	ts := point.Timestamp
	session.TrackingPointCount = seq
	session.LastTrackedAt = &ts
	session.Version = prev + 1
	session.UpdatedAt = now
	return nil
}

// ListTrackingPoints returns a page of a session's points
func (s *Store) ListTrackingPoints(ctx context.Context, sessionID string, offset, limit int) ([]models.TrackingPoint, error) {
	var points []models.TrackingPoint

	q := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("seq ASC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&points).Error; err != nil {
		return nil, fmt.Errorf("list tracking points: %w", err)
	}

	return points, nil
}

// missingOrStale tells a vanished row apart from a version mismatch
func (s *Store) missingOrStale(ctx context.Context, id string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Session{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check session %s: %w", id, err)
	}
	if count == 0 {
		return store.ErrNotFound
	}
	return store.ErrVersionConflict
}

func applyFilter(q *gorm.DB, f store.Filter) *gorm.DB {
	if f.ID != "" {
		q = q.Where("id = ?", f.ID)
	}
	if f.ActorID != "" {
		q = q.Where("actor_id = ?", f.ActorID)
	}
	if f.IsOpen != nil {
		q = q.Where("is_open = ?", *f.IsOpen)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.From.IsZero() {
		q = q.Where("clock_in_time >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("clock_in_time <= ?", f.To.UTC())
	}
	return q
}

// isOpenSessionViolation matches the partial unique index on open sessions
func isOpenSessionViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, "sessions.actor_id")
}

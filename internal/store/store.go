// Package store defines the persistence contract for work sessions.
//
// Implementations live in internal/db (gorm + sqlite) and internal/boltstore
// (bbolt). Both enforce the single open session per actor atomically on
// Insert and reject stale writes on Update.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/MyBusinesspace/MBP-sub007/internal/models"
)

var (
	// ErrNotFound indicates a requested session is missing.
	ErrNotFound = errors.New("session not found")

	// ErrOpenSessionExists indicates an insert would give an actor a second
	// open session.
	ErrOpenSessionExists = errors.New("actor already has an open session")

	// ErrVersionConflict indicates the record changed since it was loaded.
	ErrVersionConflict = errors.New("session was modified concurrently")
)

// Filter selects sessions. Zero fields are ignored.
type Filter struct {
	ID      string
	ActorID string
	IsOpen  *bool
	Status  models.Status
	// From and To bound clock_in_time, inclusive
	From  time.Time
	To    time.Time
	Limit int
}

// Open is a convenience for Filter.IsOpen.
func Open(open bool) *bool {
	return &open
}

// Matches reports whether s satisfies the filter, ignoring Limit.
func (f Filter) Matches(s *models.Session) bool {
	if f.ID != "" && s.ID != f.ID {
		return false
	}
	if f.ActorID != "" && s.ActorID != f.ActorID {
		return false
	}
	if f.IsOpen != nil && s.IsOpen != *f.IsOpen {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && s.ClockInTime.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && s.ClockInTime.After(f.To) {
		return false
	}
	return true
}

// SessionStore is the storage collaborator of the attendance service.
type SessionStore interface {
	// FindOne returns the first session matching f or ErrNotFound.
	FindOne(ctx context.Context, f Filter) (*models.Session, error)
	// FindMany returns matching sessions ordered by clock_in_time ascending.
	FindMany(ctx context.Context, f Filter) ([]models.Session, error)
	// Insert stores a new session with Version 1. An open session for an
	// actor that already has one fails with ErrOpenSessionExists.
	Insert(ctx context.Context, s *models.Session) error
	// Update writes the full record if its stored version still equals
	// s.Version, then increments s.Version. Otherwise ErrVersionConflict.
	Update(ctx context.Context, s *models.Session) error
	// AppendTrackingPoint stores p as the next point of s and bumps the
	// session's count and version in the same write.
	AppendTrackingPoint(ctx context.Context, s *models.Session, p *models.TrackingPoint) error
	// ListTrackingPoints pages through a session's points in sequence order.
	ListTrackingPoints(ctx context.Context, sessionID string, offset, limit int) ([]models.TrackingPoint, error)
	Close() error
}

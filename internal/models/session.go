package models

import (
	"time"
)

// Status is the approval state of a work session
type Status string

const (
	StatusActive          Status = "active"
	StatusCompleted       Status = "completed"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusPendingApproval, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Session represents one clock-in to clock-out attendance record
type Session struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `gorm:"not null;default:1" json:"version"`

	ActorID              string     `gorm:"not null;index" json:"actor_id"`
	ClockInTime          time.Time  `gorm:"not null;index" json:"clock_in_time"`
	ClockOutTime         *time.Time `json:"clock_out_time,omitempty"`
	IsOpen               bool       `gorm:"not null;default:false" json:"is_open"`
	Status               Status     `gorm:"not null;size:32;index" json:"status"`
	TotalDurationMinutes int        `json:"total_duration_minutes"`

	Segments []Segment `gorm:"type:text;serializer:json" json:"segments"`

	// Tracking points are stored outside the record, see TrackingPoint
	TrackingPointCount int        `gorm:"not null;default:0" json:"tracking_point_count"`
	LastTrackedAt      *time.Time `json:"last_tracked_at,omitempty"`

	// Edit request
	WasEdited            bool       `gorm:"not null;default:false" json:"was_edited"`
	EditNotes            string     `json:"edit_notes,omitempty"`
	EditRequestedAt      *time.Time `json:"edit_requested_at,omitempty"`
	OriginalClockInTime  *time.Time `json:"original_clock_in_time,omitempty"`
	OriginalClockOutTime *time.Time `json:"original_clock_out_time,omitempty"`

	// Approval
	ApproverID    string     `json:"approver_id,omitempty"`
	ApprovalNotes string     `json:"approval_notes,omitempty"`
	ApprovalTime  *time.Time `json:"approval_time,omitempty"`

	ClockInCapture  CaptureMeta `gorm:"type:text;serializer:json" json:"clock_in_capture"`
	ClockOutCapture CaptureMeta `gorm:"type:text;serializer:json" json:"clock_out_capture"`
}

// Segment is a contiguous part of a session spent on one assignment
type Segment struct {
	AssignmentID    string      `json:"assignment_id"`
	StartTime       time.Time   `json:"start_time"`
	EndTime         *time.Time  `json:"end_time,omitempty"`
	DurationMinutes int         `json:"duration_minutes"`
	Capture         CaptureMeta `json:"capture"`
}

// IsOpen reports whether the segment has not been closed yet
func (s Segment) IsOpen() bool {
	return s.EndTime == nil
}

// CaptureMeta is opaque location/photo data recorded with a clock event.
// It is stored as-is and never interpreted.
type CaptureMeta struct {
	Lat      *float64          `json:"lat,omitempty"`
	Lon      *float64          `json:"lon,omitempty"`
	Address  string            `json:"address,omitempty"`
	PhotoURL string            `json:"photo_url,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// TrackingPoint is one location sample taken while a session is open
type TrackingPoint struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	SessionID string    `gorm:"not null;size:36;uniqueIndex:idx_tracking_session_seq" json:"session_id"`
	Seq       int       `gorm:"not null;uniqueIndex:idx_tracking_session_seq" json:"seq"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
}

// Clone returns a deep copy so callers can mutate a session without
// touching the one they loaded.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Segments = make([]Segment, len(s.Segments))
	for i, seg := range s.Segments {
		seg.EndTime = cloneTime(seg.EndTime)
		seg.Capture = seg.Capture.clone()
		c.Segments[i] = seg
	}
	c.ClockOutTime = cloneTime(s.ClockOutTime)
	c.LastTrackedAt = cloneTime(s.LastTrackedAt)
	c.EditRequestedAt = cloneTime(s.EditRequestedAt)
	c.OriginalClockInTime = cloneTime(s.OriginalClockInTime)
	c.OriginalClockOutTime = cloneTime(s.OriginalClockOutTime)
	c.ApprovalTime = cloneTime(s.ApprovalTime)
	c.ClockInCapture = s.ClockInCapture.clone()
	c.ClockOutCapture = s.ClockOutCapture.clone()
	return &c
}

func (c CaptureMeta) clone() CaptureMeta {
	if c.Lat != nil {
		v := *c.Lat
		c.Lat = &v
	}
	if c.Lon != nil {
		v := *c.Lon
		c.Lon = &v
	}
	if c.Extra != nil {
		extra := make(map[string]string, len(c.Extra))
		for k, v := range c.Extra {
			extra[k] = v
		}
		c.Extra = extra
	}
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

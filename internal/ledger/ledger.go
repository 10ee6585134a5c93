// Package ledger holds the pure segment bookkeeping for a work session:
// closing the trailing segment, appending a new one and summing durations.
// Nothing here touches storage or reads the wall clock.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/MyBusinesspace/MBP-sub007/internal/models"
)

// ErrTrailingSegmentOpen is returned when a segment is appended while the
// previous one is still open.
var ErrTrailingSegmentOpen = errors.New("trailing segment is still open")

// DurationMinutes returns the span between start and end rounded to the
// nearest minute. Negative spans count as zero.
func DurationMinutes(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Minutes()))
}

// CloseTrailingSegment ends the last segment at the given time. It does
// nothing when there are no segments or the last one is already closed.
func CloseTrailingSegment(segments []models.Segment, at time.Time) []models.Segment {
	if len(segments) == 0 {
		return segments
	}
	last := len(segments) - 1
	if !segments[last].IsOpen() {
		return segments
	}
	// never end before the start, duration would go negative
	if at.Before(segments[last].StartTime) {
		at = segments[last].StartTime
	}
	end := at
	segments[last].EndTime = &end
	segments[last].DurationMinutes = DurationMinutes(segments[last].StartTime, end)
	return segments
}

// AppendSegment adds a new open segment for assignmentID starting at the
// given time. The previous trailing segment must already be closed.
func AppendSegment(segments []models.Segment, assignmentID string, at time.Time, capture models.CaptureMeta) ([]models.Segment, error) {
	if seg, ok := OpenSegment(segments); ok {
		return segments, fmt.Errorf("append %s: %w (assignment %s)", assignmentID, ErrTrailingSegmentOpen, seg.AssignmentID)
	}
	return append(segments, models.Segment{
		AssignmentID: assignmentID,
		StartTime:    at,
		Capture:      capture,
	}), nil
}

// OpenSegment returns the trailing segment if it is still open
func OpenSegment(segments []models.Segment) (models.Segment, bool) {
	if len(segments) == 0 {
		return models.Segment{}, false
	}
	last := segments[len(segments)-1]
	return last, last.IsOpen()
}

// TotalDuration sums the closed segments of a session in minutes.
// The exact spans are summed before rounding, so for a gap-free ledger the
// result matches the rounded clock-in to clock-out span.
func TotalDuration(session *models.Session) int {
	if session == nil {
		return 0
	}
	var total time.Duration
	for _, seg := range session.Segments {
		if seg.EndTime == nil {
			continue
		}
		if d := seg.EndTime.Sub(seg.StartTime); d > 0 {
			total += d
		}
	}
	return int(math.Round(total.Minutes()))
}

// MinutesByAssignment returns the closed minutes per assignment, in the
// order assignments first appear.
func MinutesByAssignment(session *models.Session) ([]string, map[string]int) {
	var order []string
	minutes := make(map[string]int)
	for _, seg := range session.Segments {
		if seg.EndTime == nil {
			continue
		}
		if _, seen := minutes[seg.AssignmentID]; !seen {
			order = append(order, seg.AssignmentID)
		}
		minutes[seg.AssignmentID] += seg.DurationMinutes
	}
	return order, minutes
}

// Validate checks the structural rules of a session's ledger: the first
// segment starts at clock-in, segments are contiguous and ordered, closed
// durations are consistent and a closed session has no open segment.
func Validate(session *models.Session) error {
	segs := session.Segments
	if len(segs) == 0 {
		return errors.New("session has no segments")
	}
	if !segs[0].StartTime.Equal(session.ClockInTime) {
		return fmt.Errorf("first segment starts at %s, clock-in is %s",
			segs[0].StartTime.Format(time.RFC3339), session.ClockInTime.Format(time.RFC3339))
	}
	for i, seg := range segs {
		if seg.EndTime == nil {
			if i != len(segs)-1 {
				return fmt.Errorf("segment %d is open but not trailing", i)
			}
			if !session.IsOpen {
				return fmt.Errorf("segment %d is open on a closed session", i)
			}
			continue
		}
		if seg.EndTime.Before(seg.StartTime) {
			return fmt.Errorf("segment %d ends before it starts", i)
		}
		if want := DurationMinutes(seg.StartTime, *seg.EndTime); seg.DurationMinutes != want {
			return fmt.Errorf("segment %d duration is %d, want %d", i, seg.DurationMinutes, want)
		}
		if i+1 < len(segs) && !segs[i+1].StartTime.Equal(*seg.EndTime) {
			return fmt.Errorf("gap between segment %d and %d", i, i+1)
		}
	}
	return nil
}

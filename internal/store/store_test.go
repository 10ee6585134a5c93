package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MyBusinesspace/MBP-sub007/internal/models"
)

func TestFilterMatches(t *testing.T) {
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	s := &models.Session{ID: "a", ActorID: "ana", IsOpen: true, Status: models.StatusActive, ClockInTime: t0}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty", Filter{}, true},
		{"actor", Filter{ActorID: "ana"}, true},
		{"other actor", Filter{ActorID: "bo"}, false},
		{"open", Filter{IsOpen: Open(true)}, true},
		{"closed", Filter{IsOpen: Open(false)}, false},
		{"status", Filter{Status: models.StatusCompleted}, false},
		{"range inclusive", Filter{From: t0, To: t0}, true},
		{"before range", Filter{From: t0.Add(time.Second)}, false},
		{"after range", Filter{To: t0.Add(-time.Second)}, false},
		{"id", Filter{ID: "b"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(s))
		})
	}
}

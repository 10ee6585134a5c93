package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyBusinesspace/MBP-sub007/internal/models"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func openSession() *models.Session {
	return &models.Session{
		ID:          "s1",
		ActorID:     "ana",
		ClockInTime: t0,
		IsOpen:      true,
		Status:      models.StatusActive,
		Segments:    []models.Segment{{AssignmentID: "X", StartTime: t0}},
	}
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func step(t *testing.T, m ClockModel, msg tea.Msg) (ClockModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	cm, ok := next.(ClockModel)
	require.True(t, ok)
	return cm, cmd
}

func TestClockModelElapsed(t *testing.T) {
	now := t0.Add(90*time.Minute + 5*time.Second)
	m := NewClockModel(openSession(), nil, func() time.Time { return now })

	assert.Equal(t, 90*time.Minute+5*time.Second, m.elapsed)
	m, _ = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Contains(t, m.View(), "ON THE CLOCK")
	assert.Contains(t, m.View(), "X")
}

func TestClockModelClockOut(t *testing.T) {
	m := NewClockModel(openSession(), nil, func() time.Time { return t0 })

	m, cmd := step(t, m, keyRunes("o"))
	assert.True(t, m.ClockingOut())
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestClockModelQuitKeepsRunning(t *testing.T) {
	m := NewClockModel(openSession(), nil, func() time.Time { return t0 })

	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.ClockingOut())
	assert.True(t, m.exiting)
}

func TestClockModelSwitch(t *testing.T) {
	now := t0.Add(30 * time.Minute)
	var got string
	switchFn := func(id string) (*models.Session, error) {
		got = id
		sess := openSession()
		end := now
		sess.Segments[0].EndTime = &end
		sess.Segments[0].DurationMinutes = 30
		sess.Segments = append(sess.Segments, models.Segment{AssignmentID: id, StartTime: now})
		return sess, nil
	}
	m := NewClockModel(openSession(), switchFn, func() time.Time { return now })

	m, _ = step(t, m, keyRunes("s"))
	require.True(t, m.prompting)
	m, _ = step(t, m, keyRunes("Y"))
	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.prompting)
	require.NotNil(t, cmd)

	m, _ = step(t, m, cmd())
	assert.Equal(t, "Y", got)
	assert.Len(t, m.Session().Segments, 2)
	assert.Equal(t, "switched to Y", m.status)
	assert.Equal(t, time.Duration(0), m.segmentElapsed)
}

func TestClockModelSwitchError(t *testing.T) {
	m := NewClockModel(openSession(), func(string) (*models.Session, error) {
		return nil, errors.New("already working on assignment X")
	}, func() time.Time { return t0 })

	m, _ = step(t, m, keyRunes("s"))
	m, _ = step(t, m, keyRunes("X"))
	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = step(t, m, cmd())

	require.Error(t, m.err)
	assert.Len(t, m.Session().Segments, 1)
}

func TestClockModelPromptCancel(t *testing.T) {
	m := NewClockModel(openSession(), func(string) (*models.Session, error) { return nil, nil }, func() time.Time { return t0 })

	m, _ = step(t, m, keyRunes("s"))
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.prompting)
	assert.False(t, m.exiting)
}

func TestRenderBigClock(t *testing.T) {
	out := renderBigClock(time.Hour + 2*time.Minute + 3*time.Second)
	assert.Len(t, splitLines(out), 5)
	assert.Equal(t, "1h 02m", formatElapsed(62*time.Minute))
	assert.Equal(t, "45s", formatElapsed(45*time.Second))
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := range s {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MyBusinesspace/MBP-sub007/internal/ledger"
	"github.com/MyBusinesspace/MBP-sub007/internal/models"
)

// SwitchFunc moves the open session to another assignment.
type SwitchFunc func(assignmentID string) (*models.Session, error)

// ClockModel shows the open session with a running clock.
type ClockModel struct {
	width  int
	height int

	session  *models.Session
	now      func() time.Time
	switchFn SwitchFunc

	// Timer state
	elapsed        time.Duration
	segmentElapsed time.Duration
	frame          int

	keys      keyMap
	help      help.Model
	prompt    textinput.Model
	prompting bool
	status    string
	err       error

	clockingOut bool
	exiting     bool
}

type tickMsg time.Time

type animationTickMsg struct{}

type switchedMsg struct {
	session *models.Session
	err     error
}

// NewClockModel builds the model. now may be nil for time.Now.
func NewClockModel(session *models.Session, switchFn SwitchFunc, now func() time.Time) ClockModel {
	if now == nil {
		now = time.Now
	}
	prompt := textinput.New()
	prompt.Placeholder = "assignment id"
	prompt.CharLimit = 64
	prompt.Prompt = "→ "

	m := ClockModel{
		session:  session,
		now:      now,
		switchFn: switchFn,
		keys:     defaultKeyMap(),
		help:     help.New(),
		prompt:   prompt,
	}
	m.refresh()
	return m
}

// ClockingOut reports whether the user asked to clock out.
func (m ClockModel) ClockingOut() bool { return m.clockingOut }

// Session is the latest known state of the session.
func (m ClockModel) Session() *models.Session { return m.session }

func (m *ClockModel) refresh() {
	now := m.now()
	m.elapsed = now.Sub(m.session.ClockInTime)
	if seg, ok := ledger.OpenSegment(m.session.Segments); ok {
		m.segmentElapsed = now.Sub(seg.StartTime)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func animate() tea.Cmd {
	return tea.Tick(400*time.Millisecond, func(time.Time) tea.Msg { return animationTickMsg{} })
}

func (m ClockModel) Init() tea.Cmd {
	return tea.Batch(tick(), animate())
}

func (m ClockModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.refresh()
		if m.done() {
			return m, nil
		}
		return m, tick()

	case animationTickMsg:
		m.frame = (m.frame + 1) % 4
		if m.done() {
			return m, nil
		}
		return m, animate()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case switchedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
			return m, nil
		}
		m.session = msg.session
		m.err = nil
		if seg, ok := ledger.OpenSegment(m.session.Segments); ok {
			m.status = "switched to " + seg.AssignmentID
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}
		switch {
		case key.Matches(msg, m.keys.ClockOut):
			m.clockingOut = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Switch):
			if m.switchFn == nil {
				return m, nil
			}
			m.prompting = true
			m.err = nil
			m.prompt.Reset()
			return m, m.prompt.Focus()
		case key.Matches(msg, m.keys.Quit):
			m.exiting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ClockModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		m.exiting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel):
		m.prompting = false
		m.prompt.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		id := strings.TrimSpace(m.prompt.Value())
		m.prompting = false
		m.prompt.Blur()
		if id == "" {
			return m, nil
		}
		m.status = "switching to " + id + "..."
		fn := m.switchFn
		return m, func() tea.Msg {
			sess, err := fn(id)
			return switchedMsg{session: sess, err: err}
		}
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m ClockModel) done() bool {
	return m.clockingOut || m.exiting
}

func (m ClockModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	helpBar := m.renderHelpBar()
	contentHeight := m.height - lipgloss.Height(helpBar) - 1

	if m.width < 90 {
		return lipgloss.JoinVertical(lipgloss.Left, m.renderClockPanel(m.width, contentHeight), helpBar)
	}

	leftWidth := m.width / 2
	rightWidth := m.width - leftWidth - 2
	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderClockPanel(leftWidth, contentHeight),
		"  ",
		m.renderSegmentsPanel(rightWidth, contentHeight),
	)
	return lipgloss.JoinVertical(lipgloss.Left, content, helpBar)
}

func centered(width int) lipgloss.Style {
	return lipgloss.NewStyle().Align(lipgloss.Center).Width(width)
}

func (m ClockModel) renderClockPanel(width, height int) string {
	var parts []string

	anim := []string{"●", "◐", "○", "◑"}[m.frame]
	parts = append(parts, centered(width).
		Foreground(lipgloss.Color(ColorAccentBright)).Bold(true).
		Render(fmt.Sprintf("%s  ON THE CLOCK  %s", anim, anim)))

	if seg, ok := ledger.OpenSegment(m.session.Segments); ok {
		parts = append(parts, centered(width).
			Foreground(lipgloss.Color(ColorAccentMain)).Bold(true).
			Render(seg.AssignmentID))
		parts = append(parts, centered(width).
			Foreground(lipgloss.Color(ColorSecondaryText)).
			Render("on this assignment for "+formatElapsed(m.segmentElapsed)))
	}

	var clock strings.Builder
	for i, line := range strings.Split(renderBigClock(m.elapsed), "\n") {
		if i > 0 {
			clock.WriteString("\n")
		}
		clock.WriteString(centered(width).Render(line))
	}
	parts = append(parts, clock.String())

	parts = append(parts, centered(width).
		Foreground(lipgloss.Color(ColorSecondaryText)).Italic(true).
		Render("Clocked in at "+m.session.ClockInTime.Local().Format("15:04:05")))

	if m.prompting {
		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorAccentMain)).
			Padding(0, 1).
			Width(min(width-8, 40))
		parts = append(parts, centered(width).Render(box.Render(m.prompt.View())))
	}
	if m.err != nil {
		parts = append(parts, centered(width).Foreground(lipgloss.Color(ColorError)).Render("✗ "+m.err.Error()))
	} else if m.status != "" {
		parts = append(parts, centered(width).Foreground(lipgloss.Color(ColorSuccess)).Render(m.status))
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(strings.Join(parts, "\n\n"))
}

func (m ClockModel) renderSegmentsPanel(width, height int) string {
	var b strings.Builder

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(ColorPrimaryText)).
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorAccentMain)).
		Width(width-12).
		Padding(0, 1)
	b.WriteString(title.Render("Today's segments"))
	b.WriteString("\n\n")

	now := m.now()
	for _, seg := range m.session.Segments {
		end := "now"
		minutes := ledger.DurationMinutes(seg.StartTime, now)
		color := ColorAccentBright
		if seg.EndTime != nil {
			end = seg.EndTime.Local().Format("15:04")
			minutes = seg.DurationMinutes
			color = ColorSecondaryText
		}
		line := fmt.Sprintf("%s–%-5s  %-18s %4dm",
			seg.StartTime.Local().Format("15:04"), end, truncate(seg.AssignmentID, 18), minutes)
		b.WriteString(centered(width - 8).Foreground(lipgloss.Color(color)).Render(line))
		b.WriteString("\n")
	}

	if m.session.TrackingPointCount > 0 {
		b.WriteString("\n")
		b.WriteString(centered(width - 8).Foreground(lipgloss.Color(ColorDisabledText)).
			Render(fmt.Sprintf("📍 %d tracking points", m.session.TrackingPointCount)))
	}

	return lipgloss.NewStyle().
		Width(width-2).
		Height(height-2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		Render(b.String())
}

func (m ClockModel) renderHelpBar() string {
	var view string
	if m.prompting {
		view = m.help.View(promptKeys(m.keys))
	} else {
		view = m.help.View(clockKeys(m.keys))
	}
	return centered(m.width).Foreground(lipgloss.Color(ColorHelpText)).Render(view)
}

var bigDigits = map[rune][5]string{
	'0': {" ███ ", "█   █", "█   █", "█   █", " ███ "},
	'1': {"  █  ", " ██  ", "  █  ", "  █  ", "█████"},
	'2': {" ███ ", "█   █", "   █ ", "  █  ", "█████"},
	'3': {" ███ ", "█   █", "  ██ ", "█   █", " ███ "},
	'4': {"█   █", "█   █", "█████", "    █", "    █"},
	'5': {"█████", "█    ", "████ ", "    █", "████ "},
	'6': {" ███ ", "█    ", "████ ", "█   █", " ███ "},
	'7': {"█████", "    █", "   █ ", "  █  ", " █   "},
	'8': {" ███ ", "█   █", " ███ ", "█   █", " ███ "},
	'9': {" ███ ", "█   █", " ████", "    █", " ███ "},
	':': {"     ", "  █  ", "     ", "  █  ", "     "},
}

// renderBigClock draws d as HH:MM:SS in block digits.
func renderBigClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	text := fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)

	var lines [5]strings.Builder
	for _, r := range text {
		art, ok := bigDigits[r]
		if !ok {
			continue
		}
		for i := range lines {
			lines[i].WriteString(art[i])
			lines[i].WriteString(" ")
		}
	}

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright)).Bold(true)
	rendered := make([]string, len(lines))
	for i := range lines {
		rendered[i] = style.Render(lines[i].String())
	}
	return strings.Join(rendered, "\n")
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d >= time.Hour {
		return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
	}
	if d >= time.Minute {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

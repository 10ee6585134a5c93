package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MyBusinesspace/MBP-sub007/internal/models"
)

// RunClockTUI shows the live clock for an open session. The returned
// model says whether the user asked to clock out and holds the session as
// last seen, including any switches made from the screen.
func RunClockTUI(session *models.Session, switchFn SwitchFunc) (ClockModel, error) {
	p := tea.NewProgram(NewClockModel(session, switchFn, nil), tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return ClockModel{}, err
	}

	m, ok := finalModel.(ClockModel)
	if !ok {
		return ClockModel{}, fmt.Errorf("unexpected model %T", finalModel)
	}
	return m, nil
}

package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	ClockOut key.Binding
	Switch   key.Binding
	Quit     key.Binding
	Confirm  key.Binding
	Cancel   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		ClockOut: key.NewBinding(key.WithKeys("o", "O"), key.WithHelp("o", "clock out")),
		Switch:   key.NewBinding(key.WithKeys("s", "S"), key.WithHelp("s", "switch assignment")),
		Quit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q/esc", "exit (keep running)")),
		Confirm:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "switch")),
		Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// clockKeys is shown while the clock is running.
type clockKeys keyMap

func (k clockKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.ClockOut, k.Switch, k.Quit}
}

func (k clockKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// promptKeys is shown while typing a new assignment.
type promptKeys keyMap

func (k promptKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

func (k promptKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

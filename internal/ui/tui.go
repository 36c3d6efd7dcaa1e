// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for the sink status view
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// QuitMsg asks the playback loop to stop
type QuitMsg struct{}

// Control carries requests from the TUI back to the playback loop
type Control struct {
	Quit chan QuitMsg
}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{
		Quit: make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(device, backend string, ctrl *Control) Model {
	return Model{
		device:  device,
		backend: backend,
		state:   StateIdle,
		control: ctrl,
	}
}

// Run creates the TUI program; the caller starts it with p.Run
func Run(device, backend string, ctrl *Control) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(device, backend, ctrl), tea.WithAltScreen())
	return p, nil
}

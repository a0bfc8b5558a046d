// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the studio UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/audition/internal/studio"
)

// NewModel creates a new TUI model. quit receives a value when the user quits.
func NewModel(controls Controls, quit chan<- struct{}) Model {
	return Model{
		controls: controls,
		quit:     quit,
		status:   studio.Status{State: "idle"},
	}
}

// Run creates the TUI program. The caller starts it and feeds it StatusMsg
// and TracksMsg through Program.Send.
func Run(controls Controls, quit chan<- struct{}) *tea.Program {
	return tea.NewProgram(NewModel(controls, quit), tea.WithAltScreen())
}

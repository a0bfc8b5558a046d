// ABOUTME: Bubbletea model for the studio TUI
// ABOUTME: Defines track list state, key handling and rendering
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/audition/internal/studio"
)

const seekStep = 5.0

// Controls is what the TUI drives
type Controls interface {
	Play(id string, offsetSeconds float64) error
	Pause()
	Resume() error
	Seek(seconds float64) error
	Stop()
	Remove(id string) error
	SaveExport(id, filename string) (string, error)
}

// StatusMsg updates playback state
type StatusMsg studio.Status

// TracksMsg replaces the track list
type TracksMsg []studio.Track

// ErrorMsg shows an error on the status line
type ErrorMsg struct {
	Err error
}

// actionMsg reports the result of a key action
type actionMsg struct {
	text string
	err  error
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("220"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	controls Controls
	quit     chan<- struct{}

	// Tracks
	tracks   []studio.Track
	selected int

	// Playback
	status studio.Status

	// Status line
	message string
	isError bool

	quitting bool

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.status = studio.Status(msg)
	case TracksMsg:
		m.applyTracks(msg)
	case ErrorMsg:
		m.setMessage(msg.Err.Error(), true)
	case actionMsg:
		if msg.err != nil {
			m.setMessage(msg.err.Error(), true)
		} else if msg.text != "" {
			m.setMessage(msg.text, false)
		}
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Shutting down studio...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Audition"))
	b.WriteString("\n\n")

	b.WriteString(m.renderNowPlaying())
	b.WriteString("\n")
	b.WriteString(m.renderTracks())
	b.WriteString("\n")

	if m.message != "" {
		if m.isError {
			b.WriteString(errorStyle.Render(m.message))
		} else {
			b.WriteString(valueStyle.Render(m.message))
		}
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("↑/↓ select  enter play  space pause/resume  ←/→ seek  s stop  e export  x remove  q quit"))
	b.WriteString("\n")

	return b.String()
}

// renderNowPlaying renders state, position and the progress bar
func (m Model) renderNowPlaying() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("State: "))
	b.WriteString(valueStyle.Render(m.status.State))
	b.WriteString("\n")

	if m.status.TrackID == "" {
		b.WriteString(valueStyle.Render("Nothing loaded"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(headerStyle.Render("Track: "))
	b.WriteString(valueStyle.Render(truncate(m.trackText(m.status.TrackID), 60)))
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("[%s] %s / %s\n",
		renderBar(m.status.Position, m.status.Duration, 30),
		formatSeconds(m.status.Position),
		formatSeconds(m.status.Duration)))

	return b.String()
}

// renderTracks renders the history list
func (m Model) renderTracks() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Takes (%d)", len(m.tracks))))
	b.WriteString("\n")

	if len(m.tracks) == 0 {
		b.WriteString(valueStyle.Render("  No takes yet"))
		b.WriteString("\n")
		return b.String()
	}

	for i, track := range m.tracks {
		marker := " "
		if track.ID == m.status.TrackID {
			marker = "♪"
		}
		line := fmt.Sprintf("%s %-50s %s", marker, truncate(track.Text, 50), formatSeconds(track.Duration))
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + valueStyle.Render(line))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.quit != nil {
			select {
			case m.quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.tracks)-1 {
			m.selected++
		}
	case "enter":
		if track, ok := m.selectedTrack(); ok {
			return m, m.run(func() (string, error) {
				return "", m.controls.Play(track.ID, 0)
			})
		}
	case " ":
		return m, m.togglePause()
	case "left":
		return m, m.seekBy(-seekStep)
	case "right":
		return m, m.seekBy(seekStep)
	case "s":
		return m, m.run(func() (string, error) {
			m.controls.Stop()
			return "", nil
		})
	case "e":
		if track, ok := m.selectedTrack(); ok {
			return m, m.run(func() (string, error) {
				path, err := m.controls.SaveExport(track.ID, "")
				if err != nil {
					return "", err
				}
				return "Exported " + path, nil
			})
		}
	case "x":
		if track, ok := m.selectedTrack(); ok {
			return m, m.run(func() (string, error) {
				return "Removed take", m.controls.Remove(track.ID)
			})
		}
	}

	return m, nil
}

func (m Model) togglePause() tea.Cmd {
	switch m.status.State {
	case "playing":
		return m.run(func() (string, error) {
			m.controls.Pause()
			return "", nil
		})
	case "paused", "ended":
		return m.run(func() (string, error) {
			return "", m.controls.Resume()
		})
	}

	if track, ok := m.selectedTrack(); ok {
		return m.run(func() (string, error) {
			return "", m.controls.Play(track.ID, 0)
		})
	}
	return nil
}

func (m Model) seekBy(delta float64) tea.Cmd {
	if m.status.TrackID == "" {
		return nil
	}
	target := m.status.Position + delta
	return m.run(func() (string, error) {
		return "", m.controls.Seek(target)
	})
}

// run executes a control action off the update loop
func (m Model) run(action func() (string, error)) tea.Cmd {
	if m.controls == nil {
		return nil
	}
	return func() tea.Msg {
		text, err := action()
		return actionMsg{text: text, err: err}
	}
}

// applyTracks replaces the list, keeping the selection on the same take
func (m *Model) applyTracks(tracks []studio.Track) {
	var selectedID string
	if track, ok := m.selectedTrack(); ok {
		selectedID = track.ID
	}

	m.tracks = tracks
	m.selected = 0
	for i, track := range tracks {
		if track.ID == selectedID {
			m.selected = i
			break
		}
	}
}

func (m Model) selectedTrack() (studio.Track, bool) {
	if m.selected < 0 || m.selected >= len(m.tracks) {
		return studio.Track{}, false
	}
	return m.tracks[m.selected], true
}

func (m Model) trackText(id string) string {
	for _, track := range m.tracks {
		if track.ID == id {
			return track.Text
		}
	}
	return id
}

func (m *Model) setMessage(text string, isError bool) {
	m.message = text
	m.isError = isError
}

// Utility functions
func renderBar(value, max float64, width int) string {
	filled := 0
	if max > 0 {
		filled = int(value / max * float64(width))
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}

func formatSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d.%d", total/60, total%60, int((seconds-float64(total))*10))
}

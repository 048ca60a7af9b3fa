// Package atoms provides low-level TUI building blocks.
package atoms

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Spinner wraps bubbles/spinner with a configurable style. It is shared by
// pointer so blocks render the frame the panel last advanced to.
type Spinner struct {
	Model spinner.Model
}

// NewSpinner creates a spinner with the dots pattern.
func NewSpinner(color lipgloss.AdaptiveColor) *Spinner {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(color)
	return &Spinner{Model: s}
}

// Init returns the spinner tick command.
func (s *Spinner) Init() tea.Cmd {
	return s.Model.Tick
}

// Update advances the spinner on its own tick messages.
func (s *Spinner) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	s.Model, cmd = s.Model.Update(msg)
	return cmd
}

// View renders the spinner frame.
func (s *Spinner) View() string {
	return s.Model.View()
}

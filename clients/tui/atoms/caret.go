package atoms

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const caretBlinkInterval = 500 * time.Millisecond

// CaretBlinkMsg toggles the caret visibility.
type CaretBlinkMsg struct{}

// Caret is a blinking block cursor trailing live thinking output.
type Caret struct {
	Visible bool
	style   lipgloss.Style
}

// NewCaret creates a blinking caret.
func NewCaret(color lipgloss.AdaptiveColor) *Caret {
	return &Caret{
		Visible: true,
		style:   lipgloss.NewStyle().Foreground(color),
	}
}

// BlinkCmd returns a command that sends a blink message after a delay.
func BlinkCmd() tea.Cmd {
	return tea.Tick(caretBlinkInterval, func(time.Time) tea.Msg {
		return CaretBlinkMsg{}
	})
}

// Update toggles visibility on blink messages and schedules the next blink.
func (c *Caret) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(CaretBlinkMsg); ok {
		c.Visible = !c.Visible
		return BlinkCmd()
	}
	return nil
}

// View renders the caret.
func (c *Caret) View() string {
	if c.Visible {
		return c.style.Render("█")
	}
	return " "
}

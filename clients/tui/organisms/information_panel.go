package organisms

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// InformationPanel displays the status bar: connection, status line, mode,
// and voice state.
type InformationPanel struct {
	connected bool
	status    string
	mode      Mode
	listening bool
	muted     bool
	theme     string
	hint      string
	width     int
	style     lipgloss.Style
}

// NewInformationPanel creates a new status bar panel.
func NewInformationPanel(style lipgloss.Style) InformationPanel {
	return InformationPanel{style: style}
}

// SetConnected updates the connection state.
func (p *InformationPanel) SetConnected(connected bool) { p.connected = connected }

// SetStatus replaces the status line.
func (p *InformationPanel) SetStatus(status string) { p.status = status }

// SetMode updates the displayed interaction mode.
func (p *InformationPanel) SetMode(mode Mode) { p.mode = mode }

// SetVoice updates the voice indicators.
func (p *InformationPanel) SetVoice(listening, muted bool) {
	p.listening = listening
	p.muted = muted
}

// SetTheme updates the displayed theme name.
func (p *InformationPanel) SetTheme(theme string) { p.theme = theme }

// SetHint shows a transient hint, such as a voice error.
func (p *InformationPanel) SetHint(hint string) { p.hint = hint }

// SetWidth updates the rendering width.
func (p *InformationPanel) SetWidth(w int) { p.width = w }

// Status returns the status line.
func (p *InformationPanel) Status() string { return p.status }

// Connected returns whether the agent server is reachable.
func (p *InformationPanel) Connected() bool { return p.connected }

// View renders the status bar.
func (p InformationPanel) View() string {
	parts := []string{"disconnected"}
	if p.connected {
		parts[0] = "connected"
	}
	if p.status != "" {
		parts = append(parts, p.status)
	}
	if m := p.mode.String(); m != "" {
		parts = append(parts, m)
	}
	if p.listening {
		parts = append(parts, "listening")
	}
	if p.hint != "" {
		parts = append(parts, p.hint)
	}
	if p.muted {
		parts = append(parts, "muted")
	}
	if p.theme != "" {
		parts = append(parts, p.theme)
	}

	bar := " " + strings.Join(parts, " | ") + " "
	return p.style.Width(p.width).Render(bar)
}

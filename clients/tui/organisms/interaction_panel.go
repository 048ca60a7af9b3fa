package organisms

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/sirius/clients/tui/molecules"
)

// Controls describes which actions are offered below the input.
type Controls struct {
	Send        bool
	Stop        bool
	Voice       bool
	Listening   bool
	Remediation bool
}

// InteractionPanel manages the user input and the control hints.
type InteractionPanel struct {
	input    molecules.CommandInput
	controls Controls
	style    lipgloss.Style
}

// NewInteractionPanel creates a new interaction panel.
func NewInteractionPanel(placeholder string, controlStyle lipgloss.Style) InteractionPanel {
	return InteractionPanel{
		input: molecules.NewCommandInput(placeholder),
		style: controlStyle,
	}
}

// SetWidth sets the input width.
func (p *InteractionPanel) SetWidth(w int) {
	p.input.SetWidth(w)
}

// SetEnabled enables or disables typing.
func (p *InteractionPanel) SetEnabled(enabled bool) {
	if p.input.Enabled() != enabled {
		p.input.SetEnabled(enabled)
	}
}

// Enabled reports whether typing is accepted.
func (p *InteractionPanel) Enabled() bool { return p.input.Enabled() }

// SetPlaceholder sets the input placeholder.
func (p *InteractionPanel) SetPlaceholder(placeholder string) {
	p.input.SetPlaceholder(placeholder)
}

// Placeholder returns the input placeholder.
func (p *InteractionPanel) Placeholder() string { return p.input.Placeholder() }

// SetControls updates the offered actions.
func (p *InteractionPanel) SetControls(c Controls) { p.controls = c }

// Controls returns the offered actions.
func (p *InteractionPanel) Controls() Controls { return p.controls }

// Value returns the input text.
func (p *InteractionPanel) Value() string { return p.input.Value() }

// SetValue replaces the input text.
func (p *InteractionPanel) SetValue(v string) { p.input.SetValue(v) }

// Reset clears the input.
func (p *InteractionPanel) Reset() { p.input.Reset() }

// Update routes a message to the command input.
func (p InteractionPanel) Update(msg tea.Msg) (InteractionPanel, tea.Cmd) {
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

// View renders the input and the control hints.
func (p InteractionPanel) View() string {
	var hints []string
	if p.controls.Send {
		hints = append(hints, "enter send")
	}
	if p.controls.Stop {
		hints = append(hints, "ctrl+x stop")
	}
	if p.controls.Voice {
		if p.controls.Listening {
			hints = append(hints, "ctrl+v stop listening")
		} else {
			hints = append(hints, "ctrl+v speak")
		}
	}
	if p.controls.Remediation {
		hints = append(hints, "ctrl+p microphone settings")
	}
	hints = append(hints, "ctrl+o thinking", "ctrl+l clear", "ctrl+c quit")

	return p.input.View() + "\n" + p.style.Render(strings.Join(hints, " · "))
}

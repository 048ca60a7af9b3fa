// Package organisms provides high-level TUI components.
package organisms

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/sirius/clients/tui/atoms"
)

// TextBlock renders one finished transcript message with its role label.
type TextBlock struct {
	role     string
	style    lipgloss.Style
	content  string
	markdown bool
	theme    string // glamour standard style: dark or light
	width    int
	cached   string
}

// NewTextBlock creates a text block. Markdown blocks are rendered with glamour.
func NewTextBlock(role string, style lipgloss.Style, content string, markdown bool, theme string, width int) *TextBlock {
	return &TextBlock{
		role:     role,
		style:    style,
		content:  content,
		markdown: markdown,
		theme:    theme,
		width:    width,
	}
}

// Content returns the block text.
func (tb *TextBlock) Content() string {
	return tb.content
}

// Role returns the block's role label.
func (tb *TextBlock) Role() string {
	return tb.role
}

// View renders the text block with role label.
func (tb *TextBlock) View() string {
	if tb.cached != "" {
		return tb.cached
	}

	text := tb.content
	if tb.markdown {
		text = renderMarkdown(text, tb.theme, tb.width)
	}
	tb.cached = atoms.StyledLabel(tb.role, tb.style) + " " + text
	return tb.cached
}

func renderMarkdown(text, theme string, width int) string {
	w := width - 6 // account for label + padding
	if w < 20 {
		w = 20
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme),
		glamour.WithWordWrap(w),
	)
	if err != nil {
		return text
	}

	out, err := r.Render(text)
	if err != nil {
		return text
	}

	return strings.TrimSpace(out)
}

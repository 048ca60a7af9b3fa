package organisms

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/sirius/clients/tui/atoms"
	"github.com/dohr-michael/sirius/clients/tui/molecules"
)

const maxExpandedThinking = 2000

// ThinkingBlock is a collapsible region showing a task's streamed output.
type ThinkingBlock struct {
	content   string
	collapsed bool
	live      bool
	spinner   *atoms.Spinner
	caret     *atoms.Caret
	style     lipgloss.Style

	cached string // rendered view cache, only for settled regions
}

// NewThinkingBlock creates a thinking region sharing the panel's spinner and caret.
func NewThinkingBlock(spinner *atoms.Spinner, caret *atoms.Caret, style lipgloss.Style) *ThinkingBlock {
	return &ThinkingBlock{
		spinner: spinner,
		caret:   caret,
		style:   style,
	}
}

// Set updates the region from its transcript entry.
func (tb *ThinkingBlock) Set(content string, collapsed, live bool) {
	if tb.content != content || tb.collapsed != collapsed || tb.live != live {
		tb.cached = ""
	}
	tb.content = content
	tb.collapsed = collapsed
	tb.live = live
}

// Collapsed reports whether only the header is shown.
func (tb *ThinkingBlock) Collapsed() bool {
	return tb.collapsed
}

// View renders the thinking region.
func (tb *ThinkingBlock) View() string {
	if tb.cached != "" {
		return tb.cached
	}

	header := molecules.ThinkingHeader(tb.live, tb.collapsed, tb.spinner.View(), tb.content)
	if tb.collapsed {
		out := tb.style.Render(header)
		if !tb.live {
			tb.cached = out
		}
		return out
	}

	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n")

	content := strings.TrimRight(tb.content, "\n")
	if r := []rune(content); len(r) > maxExpandedThinking {
		content = "..." + string(r[len(r)-maxExpandedThinking:])
	}
	sb.WriteString(content)
	if tb.live {
		sb.WriteString(tb.caret.View())
		return tb.style.Render(sb.String())
	}

	tb.cached = tb.style.Render(sb.String())
	return tb.cached
}

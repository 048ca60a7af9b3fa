package molecules

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"})
)

// ThinkingHeader renders the header line of a thinking region:
//
//	"⠋ Thinking" | "▾ Thinking" | "▸ Thinking (12 lines) → last line"
func ThinkingHeader(live, collapsed bool, spinnerView, content string) string {
	switch {
	case live && !collapsed:
		return fmt.Sprintf("%s %s", spinnerView, headerStyle.Render("Thinking"))
	case !collapsed:
		return fmt.Sprintf("▾ %s", headerStyle.Render("Thinking"))
	}

	header := fmt.Sprintf("▸ %s", headerStyle.Render("Thinking"))
	if n := lineCount(content); n > 1 {
		header += fmt.Sprintf(" (%d lines)", n)
	}
	if preview := lastLine(content, 60); preview != "" {
		header += previewStyle.Render(" → " + preview)
	}
	return header
}

func lineCount(s string) int {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

func lastLine(s string, max int) string {
	s = strings.TrimRight(s, "\n")
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > max {
		s = string(r[:max-3]) + "..."
	}
	return s
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StatusBar renders workspace, model, running tasks and the preview URL.
type StatusBar struct {
	workspace string
	model     string
	theme     string
	running   int
	preview   string
}

func (s StatusBar) View(width int, style lipgloss.Style) string {
	left := fmt.Sprintf("%s | model: %s | theme: %s", truncate(s.workspace, 24), s.model, s.theme)
	right := fmt.Sprintf("tasks: %d | %s", s.running, s.preview)
	padding := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	return style.Render(left + strings.Repeat(" ", padding) + right)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:1]
	}
	return "…" + s[len(s)-n+1:]
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View composes the feed, terminal pane, prompt bar and status bar.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	feed := m.feed.View()
	term := m.styles.TermBox.Width(m.width).Render(m.terminal.View())
	prompt := m.renderPromptBar()
	status := m.statusBar.View(m.width, m.styles.Status)
	return lipgloss.JoinVertical(lipgloss.Left, feed, term, prompt, status)
}

func (m Model) renderMessages() string {
	if len(m.messages) == 0 {
		return m.styles.Welcome.Width(m.width).Render("Describe a page or script to generate. /help lists commands.")
	}
	rendered := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		rendered = append(rendered, m.renderMessage(msg))
	}
	return strings.Join(rendered, "\n")
}

func (m Model) renderMessage(msg Message) string {
	label := "You"
	body := m.styles.Text
	switch msg.Role {
	case RoleModel:
		label = msg.Model
		if label == "" {
			label = "Model"
		}
	case RoleSystem:
		label = "System"
		body = m.styles.Dim
	case RoleError:
		label = "Error"
		body = m.styles.Error
	}
	header := m.styles.Header.Render(fmt.Sprintf("[%s] %s", msg.Timestamp.Format("15:04:05"), label))
	return m.styles.MessageBox.Width(max(0, m.width-2)).Render(header + "\n" + body.Render(msg.Text))
}

func (m Model) renderTerminal() string {
	if len(m.lines) == 0 {
		return m.styles.Dim.Render("terminal output appears here")
	}
	return m.styles.Terminal.Render(strings.Join(m.lines, "\n"))
}

func (m Model) renderPromptBar() string {
	prefix := "> "
	hint := m.styles.Dim.Render("/ for commands | ctrl+p history | ctrl+c quit")
	switch m.mode {
	case ModeCommand:
		prefix = "/ "
		hint = m.styles.Dim.Render("Enter to run | Esc to cancel")
	case ModeModify:
		prefix = "~ "
		hint = m.styles.Dim.Render("Enter to apply | Esc to cancel")
	}
	if m.Busy() {
		prefix = m.spinner.View() + " "
		hint = m.styles.Dim.Render("Processing...")
	}
	return m.styles.PromptBar.Width(m.width).Render(prefix + m.input.View() + " " + hint)
}

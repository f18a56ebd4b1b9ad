package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lexcodex/promptforge/framework"
	"github.com/lexcodex/promptforge/framework/dispatch"
)

// notificationMsg carries one dispatcher notification into Update.
type notificationMsg struct{ note dispatch.Notification }

// drainMsg fires every drainInterval.
type drainMsg time.Time

// revealMsg advances the typewriter animation.
type revealMsg struct{}

// Init starts the notification listener, the queue poller and the cursor.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		listenNotifications(m.runtime.Dispatcher.Notifications()),
		drainTick(),
	)
}

// Update applies incoming Bubble Tea messages to mutate the Model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit
		case "ctrl+l":
			m.messages = nil
			return m.refreshFeed(), nil
		}
		switch m.mode {
		case ModeCommand:
			return m.handleCommandMode(msg)
		case ModeModify:
			return m.handleModifyMode(msg)
		default:
			return m.handleNormalMode(msg)
		}
	case notificationMsg:
		next, cmd := m.handleNotification(msg.note)
		return next, tea.Batch(cmd, listenNotifications(m.runtime.Dispatcher.Notifications()))
	case drainMsg:
		if lines := m.runtime.Queue.Drain(); len(lines) > 0 {
			m = m.appendTerminal(lines)
		}
		return m, drainTick()
	case revealMsg:
		return m.stepReveal()
	case spinner.TickMsg:
		if !m.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	statusBarHeight := 1
	promptBarHeight := 1
	termHeight := terminalHeight + 1
	feedHeight := max(1, msg.Height-statusBarHeight-promptBarHeight-termHeight)

	m.feed.Width = msg.Width
	m.feed.Height = feedHeight
	m.terminal.Width = msg.Width
	m.terminal.Height = terminalHeight
	m.ready = true
	m.input.Width = max(10, msg.Width-24)
	m.terminal.SetContent(m.renderTerminal())
	m.terminal.GotoBottom()
	return m.refreshFeed(), nil
}

func (m Model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyRunes && msg.String() == "/" && strings.TrimSpace(m.input.Value()) == "" {
		m.mode = ModeCommand
		m.input.SetValue("/")
		m.input.CursorEnd()
		return m, nil
	}
	switch msg.String() {
	case "enter":
		return m.submitPrompt()
	case "ctrl+p":
		return m.recallHistory(-1), nil
	case "ctrl+n":
		return m.recallHistory(1), nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		*m.feed, cmd = m.feed.Update(msg)
		return m, cmd
	}
	if m.Busy() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleCommandMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		raw := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		m.mode = ModeNormal
		if !strings.HasPrefix(raw, "/") {
			raw = "/" + raw
		}
		name, args := parseCommand(raw)
		if name == "" {
			return m, nil
		}
		return handleCommand(m, name, args)
	case "esc":
		m.mode = ModeNormal
		m.input.SetValue("")
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

// handleModifyMode collects instructions for a code modification task.
func (m Model) handleModifyMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		instructions := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		m.mode = ModeNormal
		m.input.Placeholder = "Describe what to build, or /help for commands"
		if instructions == "" {
			return m, nil
		}
		return m.submitModify(instructions)
	case "esc":
		m.mode = ModeNormal
		m.input.SetValue("")
		m.input.Placeholder = "Describe what to build, or /help for commands"
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

// submitPrompt validates the input and schedules a generate task.
func (m Model) submitPrompt() (Model, tea.Cmd) {
	if m.Busy() {
		return m, nil
	}
	value := m.input.Value()
	if strings.TrimSpace(value) == "" {
		return m, nil
	}
	if _, err := m.runtime.SubmitPrompt(context.Background(), value); err != nil {
		return m.addErrorMessage(describeError(err)), nil
	}
	trimmed := strings.TrimSpace(value)
	if len(m.history) == 0 || m.history[len(m.history)-1] != trimmed {
		m.history = append(m.history, trimmed)
	}
	m.historyIndex = len(m.history)
	m.input.SetValue("")
	m.input.Blur()
	m.running++
	m.statusBar.running = m.running
	m = m.addMessage(RoleUser, trimmed)
	return m, m.spinner.Tick
}

func (m Model) submitModify(instructions string) (Model, tea.Cmd) {
	if _, err := m.runtime.SubmitModify(instructions); err != nil {
		return m.addErrorMessage(describeError(err)), nil
	}
	m.running++
	m.statusBar.running = m.running
	m.input.Blur()
	m = m.addMessage(RoleUser, "Apply changes: "+instructions)
	return m, m.spinner.Tick
}

// handleNotification is the consumer side of the dispatcher. Only one
// notification is processed at a time.
func (m Model) handleNotification(n dispatch.Notification) (Model, tea.Cmd) {
	switch n.Kind {
	case dispatch.NotifyStateChange:
		return m, nil
	case dispatch.NotifyUIEnabled:
		if m.running > 0 {
			m.running--
		}
		m.statusBar.running = m.running
		if m.running == 0 {
			m.input.Focus()
		}
		return m, nil
	case dispatch.NotifyError:
		if _, err := m.runtime.HandleNotification(context.Background(), n); err != nil {
			m.runtime.Logger.Printf("handle error notification: %v", err)
		}
		return m.addErrorMessage(n.Message), nil
	case dispatch.NotifyResult:
		out, err := m.runtime.HandleNotification(context.Background(), n)
		var cmd tea.Cmd
		if n.TaskKind == dispatch.KindModifyCode {
			m = m.addSystemMessage("Code editor updated with modifications.")
		} else {
			if n.Retried {
				m = m.addSystemMessage(fmt.Sprintf("Selected model failed; answered by %s.", n.Model))
			}
			m, cmd = m.startReveal(n.Payload, n.Model)
			if out.HasDocument {
				m = m.addSystemMessage(fmt.Sprintf("Preview updated: %s", m.runtime.PreviewURL()))
			}
			for _, f := range out.Files {
				m.runtime.Logger.Printf("wrote %s", f.Path)
			}
		}
		if err != nil {
			m = m.addErrorMessage(describeError(err))
		}
		return m, cmd
	}
	return m, nil
}

func (m Model) recallHistory(step int) Model {
	if len(m.history) == 0 || m.Busy() {
		return m
	}
	idx := m.historyIndex + step
	if idx < 0 {
		idx = 0
	}
	if idx >= len(m.history) {
		m.historyIndex = len(m.history)
		m.input.SetValue("")
		return m
	}
	m.historyIndex = idx
	m.input.SetValue(m.history[idx])
	m.input.CursorEnd()
	return m
}

func describeError(err error) string {
	var vErr *framework.ValidationError
	var sErr *framework.SecurityError
	switch {
	case errors.As(err, &vErr):
		return "Input error: " + vErr.Error()
	case errors.As(err, &sErr):
		return "Blocked: " + sErr.Error()
	default:
		return err.Error()
	}
}

// listenNotifications adapts the notification channel to a Bubble Tea
// command. It is re-armed after every delivered notification.
func listenNotifications(ch <-chan dispatch.Notification) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return notificationMsg{note: n}
	}
}

func drainTick() tea.Cmd {
	return tea.Tick(drainInterval, func(t time.Time) tea.Msg { return drainMsg(t) })
}

func revealTick() tea.Cmd {
	return tea.Tick(revealInterval, func(time.Time) tea.Msg { return revealMsg{} })
}

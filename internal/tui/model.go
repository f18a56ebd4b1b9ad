package tui

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lexcodex/promptforge/framework"
	"github.com/lexcodex/promptforge/internal/app"
)

const (
	// drainInterval is how often the output queue is polled.
	drainInterval = 50 * time.Millisecond
	// revealInterval paces the typewriter animation.
	revealInterval = 15 * time.Millisecond
	terminalHeight = 8
	terminalLimit  = 500
)

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, rt *app.Runtime) error {
	if rt == nil {
		return fmt.Errorf("runtime is required")
	}
	program := tea.NewProgram(
		NewModel(rt),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}

// InputMode tracks what the prompt bar submits.
type InputMode int

const (
	ModeNormal InputMode = iota
	ModeCommand
	ModeModify
)

// MessageRole identifies who produced a feed entry.
type MessageRole string

const (
	RoleUser   MessageRole = "user"
	RoleModel  MessageRole = "model"
	RoleSystem MessageRole = "system"
	RoleError  MessageRole = "error"
)

// Message is one feed entry.
type Message struct {
	ID        string
	Timestamp time.Time
	Role      MessageRole
	Text      string
	Model     string
}

// reveal animates a message by pulling successive prefixes.
type reveal struct {
	id   string
	next func() (string, bool)
	stop func()
}

// Model is the single consumer of task notifications and queue lines.
type Model struct {
	runtime *app.Runtime

	feed     *viewport.Model
	terminal *viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	statusBar StatusBar
	theme     Theme
	styles    Styles

	messages []Message
	lines    []string
	reveal   *reveal

	// running counts tasks between submission and their UIEnabled
	// notification; the prompt is read-only while it is non-zero.
	running int

	history      []string
	historyIndex int

	width  int
	height int
	ready  bool
	mode   InputMode
	seq    int
}

// NewModel builds the model from the runtime configuration.
func NewModel(rt *app.Runtime) Model {
	cfg := rt.Config
	input := textinput.New()
	input.Placeholder = "Describe what to build, or /help for commands"
	input.CharLimit = framework.MaxPromptLength
	input.Focus()

	feed := viewport.New(0, 0)
	term := viewport.New(0, terminalHeight)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	theme, ok := LookupTheme(cfg.Theme)
	if !ok {
		theme = themes["light"]
	}
	sp.Style = newStyles(theme).Header

	history, _ := rt.History.Prompts(context.Background(), 100)

	return Model{
		runtime:  rt,
		feed:     &feed,
		terminal: &term,
		input:    input,
		spinner:  sp,
		statusBar: StatusBar{
			workspace: cfg.Workspace,
			model:     rt.SelectedModel(),
			theme:     theme.Name,
			preview:   rt.PreviewURL(),
		},
		theme:        theme,
		styles:       newStyles(theme),
		history:      history,
		historyIndex: len(history),
		mode:         ModeNormal,
	}
}

// Busy reports whether input is disabled.
func (m Model) Busy() bool {
	return m.running > 0
}

func (m *Model) nextID() string {
	m.seq++
	return fmt.Sprintf("msg-%d", m.seq)
}

func (m Model) addMessage(role MessageRole, text string) Model {
	m.messages = append(m.messages, Message{
		ID:        m.nextID(),
		Timestamp: time.Now(),
		Role:      role,
		Text:      text,
	})
	return m.refreshFeed()
}

func (m Model) addSystemMessage(text string) Model {
	return m.addMessage(RoleSystem, text)
}

func (m Model) addErrorMessage(text string) Model {
	return m.addMessage(RoleError, text)
}

// startReveal appends an empty model message and animates text into it.
func (m Model) startReveal(text, model string) (Model, tea.Cmd) {
	m = m.stopReveal()
	id := m.nextID()
	m.messages = append(m.messages, Message{ID: id, Timestamp: time.Now(), Role: RoleModel, Model: model})
	next, stop := iter.Pull(framework.RevealLines(text))
	m.reveal = &reveal{id: id, next: next, stop: stop}
	return m.refreshFeed(), revealTick()
}

// stepReveal advances the animation by one frame.
func (m Model) stepReveal() (Model, tea.Cmd) {
	if m.reveal == nil {
		return m, nil
	}
	frame, ok := m.reveal.next()
	if !ok {
		return m.stopReveal(), nil
	}
	m = m.setMessageText(m.reveal.id, frame)
	return m.refreshFeed(), revealTick()
}

// stopReveal ends any running animation, leaving the last frame shown.
func (m Model) stopReveal() Model {
	if m.reveal == nil {
		return m
	}
	// Flush the remaining frames so the final text is always shown.
	last := ""
	for {
		frame, ok := m.reveal.next()
		if !ok {
			break
		}
		last = frame
	}
	if last != "" {
		m = m.setMessageText(m.reveal.id, last)
	}
	m.reveal.stop()
	m.reveal = nil
	return m.refreshFeed()
}

func (m Model) setMessageText(id, text string) Model {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].ID == id {
			msgs := append([]Message(nil), m.messages...)
			msgs[i].Text = text
			m.messages = msgs
			break
		}
	}
	return m
}

func (m Model) appendTerminal(lines []string) Model {
	m.lines = append(m.lines, lines...)
	if over := len(m.lines) - terminalLimit; over > 0 {
		m.lines = append([]string(nil), m.lines[over:]...)
	}
	if m.ready {
		m.terminal.SetContent(m.renderTerminal())
		m.terminal.GotoBottom()
	}
	return m
}

func (m Model) refreshFeed() Model {
	if !m.ready {
		return m
	}
	m.feed.SetContent(m.renderMessages())
	m.feed.GotoBottom()
	return m
}

func (m Model) applyTheme(t Theme) Model {
	m.theme = t
	m.styles = newStyles(t)
	m.spinner.Style = m.styles.Header
	m.statusBar.theme = t.Name
	if m.ready {
		m.terminal.SetContent(m.renderTerminal())
	}
	return m.refreshFeed()
}

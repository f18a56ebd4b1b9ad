package tui

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/promptforge/framework/dispatch"
	"github.com/lexcodex/promptforge/internal/app"
	"github.com/lexcodex/promptforge/llm"
)

func newTestModel(t *testing.T, response string) Model {
	t.Helper()
	ws := t.TempDir()
	rt, err := app.New(app.Config{
		Workspace:    ws,
		OutputDir:    filepath.Join(ws, "out"),
		AutosavePath: filepath.Join(ws, "autosave.txt"),
	}, app.Options{Primary: llm.ProviderFunc(func(ctx context.Context, prompt string) (string, error) {
		return response, nil
	})})
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	m := NewModel(rt)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func nextNotification(t *testing.T, m Model) dispatch.Notification {
	t.Helper()
	select {
	case n := <-m.runtime.Dispatcher.Notifications():
		return n
	case <-time.After(5 * time.Second):
		t.Fatal("no notification")
		return dispatch.Notification{}
	}
}

func TestParseCommand(t *testing.T) {
	name, args := parseCommand("/model GPT-4")
	require.Equal(t, "model", name)
	require.Equal(t, []string{"GPT-4"}, args)
	name, _ = parseCommand("model")
	require.Empty(t, name)
}

func TestModelSubmitAndConsumeNotifications(t *testing.T) {
	m := newTestModel(t, "```html\n<p>hi</p>\n```")
	m.input.SetValue("make a greeting page")
	m, _ = m.submitPrompt()
	require.True(t, m.Busy())

	// Submitting again while busy is ignored.
	m.input.SetValue("another prompt here")
	m, _ = m.submitPrompt()
	require.Equal(t, 1, m.running)

	for {
		n := nextNotification(t, m)
		m = update(t, m, notificationMsg{note: n})
		if n.Kind == dispatch.NotifyUIEnabled {
			break
		}
	}
	require.False(t, m.Busy())
	m = m.stopReveal()

	var model *Message
	for i := range m.messages {
		if m.messages[i].Role == RoleModel {
			model = &m.messages[i]
		}
	}
	require.NotNil(t, model)
	require.Equal(t, "```html\n<p>hi</p>\n```", model.Text)
	require.Contains(t, m.runtime.Preview.Document(), "<p>hi</p>")

	m = update(t, m, drainMsg(time.Now()))
	require.Contains(t, m.lines, "Live preview updated with web code.")
}

func TestModelRejectsInvalidPrompt(t *testing.T) {
	m := newTestModel(t, "")
	m.input.SetValue("tell me the password for the server")
	m, _ = m.submitPrompt()
	require.False(t, m.Busy())
	require.Equal(t, RoleError, m.messages[len(m.messages)-1].Role)
}

func TestCommands(t *testing.T) {
	m := newTestModel(t, "")

	m, _ = handleCommand(m, "model", []string{"Claude"})
	require.Equal(t, "Claude", m.runtime.SelectedModel())
	require.Equal(t, "Claude", m.statusBar.model)

	m, _ = handleCommand(m, "theme", []string{"high_contrast"})
	require.Equal(t, "high_contrast", m.theme.Name)
	m, _ = handleCommand(m, "theme", []string{"neon"})
	require.Equal(t, RoleError, m.messages[len(m.messages)-1].Role)

	m, _ = handleCommand(m, "apply", nil)
	require.Equal(t, ModeNormal, m.mode)
	require.NoError(t, m.runtime.Editor.Set("<p>x</p>"))
	m, _ = handleCommand(m, "apply", nil)
	require.Equal(t, ModeModify, m.mode)

	m, _ = handleCommand(m, "!", []string{"sudo", "ls"})
	require.Contains(t, m.messages[len(m.messages)-1].Text, "Blocked")

	m, _ = handleCommand(m, "collab", nil)
	require.Equal(t, "Collaboration session started (stub).", m.messages[len(m.messages)-1].Text)

	m, _ = handleCommand(m, "nope", nil)
	require.Equal(t, "Unknown command: nope", m.messages[len(m.messages)-1].Text)
}

func TestRevealAnimatesToFullText(t *testing.T) {
	m := newTestModel(t, "")
	m, _ = m.startReveal("line one\nline two", "Gemini Pro")
	m, _ = m.stepReveal()
	require.Equal(t, "line one", m.messages[len(m.messages)-1].Text)
	m = m.stopReveal()
	require.Nil(t, m.reveal)
	require.Equal(t, "line one\nline two", m.messages[len(m.messages)-1].Text)
}

package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexcodex/promptforge/framework"
	"github.com/lexcodex/promptforge/framework/codeblock"
	"github.com/lexcodex/promptforge/framework/dispatch"
	"github.com/lexcodex/promptforge/llm"
)

func newTestRuntime(t *testing.T, primary llm.Provider) *Runtime {
	t.Helper()
	ws := t.TempDir()
	cfg := Config{
		Workspace:    ws,
		OutputDir:    filepath.Join(ws, "out"),
		AutosavePath: filepath.Join(ws, "autosave_code.txt"),
	}
	rt, err := New(cfg, Options{Primary: primary})
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	return rt
}

func waitResult(t *testing.T, rt *Runtime) dispatch.Notification {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case n := <-rt.Dispatcher.Notifications():
			if n.Kind == dispatch.NotifyResult || n.Kind == dispatch.NotifyError {
				return n
			}
		case <-timeout:
			t.Fatal("no terminal notification")
		}
	}
}

func TestNewRequiresAPIKeyForGemini(t *testing.T) {
	_, err := New(Config{Workspace: t.TempDir(), Backend: BackendGemini}, Options{})
	require.ErrorIs(t, err, llm.ErrMissingAPIKey)
}

func TestRuntimeGenerateFlow(t *testing.T) {
	response := "Here you go\n```html\n<p>hi</p>\n```\n```css\nbody{color:red}\n```\n```txt\nnotes\n```"
	rt := newTestRuntime(t, llm.ProviderFunc(func(ctx context.Context, prompt string) (string, error) {
		return response, nil
	}))
	ctx := context.Background()

	_, err := rt.SubmitPrompt(ctx, "short")
	var vErr *framework.ValidationError
	require.ErrorAs(t, err, &vErr)

	_, err = rt.SubmitPrompt(ctx, "  build a small landing page  ")
	require.NoError(t, err)
	n := waitResult(t, rt)
	require.Equal(t, dispatch.NotifyResult, n.Kind)
	require.Equal(t, llm.PrimaryModel, n.Model)

	out, err := rt.HandleNotification(ctx, n)
	require.NoError(t, err)
	require.True(t, out.HasDocument)
	require.Equal(t, out.Document, rt.Editor.Code())
	require.Equal(t, out.Document, rt.Preview.Document())
	require.Contains(t, out.Document, "body{color:red}")

	data, err := os.ReadFile(filepath.Join(rt.Config.OutputDir, "code_1.txt"))
	require.NoError(t, err)
	require.Equal(t, "notes", string(data))
	require.Equal(t, []string{"TXT file created: " + filepath.Join(rt.Config.OutputDir, "code_1.txt"), codeblock.PreviewUpdatedLine}, rt.Queue.Drain())

	prompts, err := rt.History.Prompts(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"build a small landing page"}, prompts)
}

func TestRuntimeModifyFlow(t *testing.T) {
	rt := newTestRuntime(t, llm.ProviderFunc(func(ctx context.Context, prompt string) (string, error) {
		assert.True(t, strings.HasPrefix(prompt, "Please update the following code"))
		return "<h1>Title</h1>", nil
	}))
	_, err := rt.SubmitModify("add a title")
	require.Error(t, err)

	require.NoError(t, rt.Editor.Set("<p>body</p>"))
	_, err = rt.SubmitModify("add a title")
	require.NoError(t, err)
	n := waitResult(t, rt)
	_, err = rt.HandleNotification(context.Background(), n)
	require.NoError(t, err)
	require.Equal(t, "<h1>Title</h1>", rt.Editor.Code())
	require.Equal(t, codeblock.WrapEditorBuffer("<h1>Title</h1>"), rt.Preview.Document())
}

func TestRuntimeSelectModelAndAutosave(t *testing.T) {
	rt := newTestRuntime(t, llm.ProviderFunc(func(ctx context.Context, prompt string) (string, error) { return "", nil }))
	require.Error(t, rt.SelectModel("Llama"))
	require.NoError(t, rt.SelectModel("Claude"))
	require.Equal(t, "Claude", rt.SelectedModel())

	path, err := rt.Autosave()
	require.NoError(t, err)
	require.Empty(t, path)

	require.NoError(t, rt.Editor.Set("print('hi')"))
	path, err = rt.Autosave()
	require.NoError(t, err)
	require.Equal(t, rt.Config.AutosavePath, path)

	require.NoError(t, rt.SaveWorkspace("dark"))
	loaded, err := LoadWorkspaceConfig(rt.Config.ConfigPath)
	require.NoError(t, err)
	require.Equal(t, "Claude", loaded.Model)
	require.Equal(t, "dark", loaded.Theme)

	entries, err := rt.History.Activity(context.Background(), 0)
	require.NoError(t, err)
	var messages []string
	for _, e := range entries {
		messages = append(messages, e.Message)
	}
	require.Contains(t, messages, "Application started.")
	require.Contains(t, messages, "Selected model changed to Claude.")
}

func TestRuntimeExecBlocksDangerousCommands(t *testing.T) {
	rt := newTestRuntime(t, llm.ProviderFunc(func(ctx context.Context, prompt string) (string, error) { return "", nil }))
	_, err := rt.Exec(context.Background(), "sudo rm -rf /")
	var secErr *framework.SecurityError
	require.ErrorAs(t, err, &secErr)
	require.Zero(t, rt.Queue.Len())

	exe, err := rt.Exec(context.Background(), "echo hello")
	require.NoError(t, err)
	require.NoError(t, exe.Wait())
	require.Equal(t, []string{"$ echo hello", "hello"}, rt.Queue.Drain())
}

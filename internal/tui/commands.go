package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// CommandHandler mutates model state for /commands in the prompt bar.
type CommandHandler func(Model, []string) (Model, tea.Cmd)

// Command describes a slash command entry.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Handler     CommandHandler
}

var commandRegistry = map[string]Command{}

func init() {
	registerCommand(Command{
		Name:        "help",
		Aliases:     []string{"h", "?"},
		Description: "Show available commands",
		Usage:       "/help [command]",
		Handler:     handleHelp,
	})
	registerCommand(Command{
		Name:        "model",
		Aliases:     []string{"m"},
		Description: "Show or select the generation model",
		Usage:       "/model [name]",
		Handler:     handleModel,
	})
	registerCommand(Command{
		Name:        "apply",
		Aliases:     []string{"modify"},
		Description: "Ask the model to change the code in the editor",
		Usage:       "/apply [instructions]",
		Handler:     handleApply,
	})
	registerCommand(Command{
		Name:        "exec",
		Aliases:     []string{"!"},
		Description: "Run a shell command in the terminal pane",
		Usage:       "/exec <command>",
		Handler:     handleExec,
	})
	registerCommand(Command{
		Name:        "run",
		Description: "Run the editor code in an external terminal",
		Usage:       "/run",
		Handler:     handleRun,
	})
	registerCommand(Command{
		Name:        "editor",
		Aliases:     []string{"code"},
		Description: "Show the code editor buffer",
		Usage:       "/editor",
		Handler:     handleEditor,
	})
	registerCommand(Command{
		Name:        "reload",
		Description: "Reload the live preview from the editor",
		Usage:       "/reload",
		Handler:     handleReload,
	})
	registerCommand(Command{
		Name:        "autosave",
		Description: "Save the editor buffer now",
		Usage:       "/autosave",
		Handler:     handleAutosave,
	})
	registerCommand(Command{
		Name:        "theme",
		Description: "Switch colour theme",
		Usage:       "/theme <light|dark|high_contrast>",
		Handler:     handleTheme,
	})
	registerCommand(Command{
		Name:        "history",
		Description: "Show recent prompts",
		Usage:       "/history",
		Handler:     handleHistory,
	})
	registerCommand(Command{
		Name:        "export",
		Description: "Export the activity log to a text file",
		Usage:       "/export <path>",
		Handler:     handleExport,
	})
	registerCommand(Command{
		Name:        "clear",
		Aliases:     []string{"cls"},
		Description: "Clear the feed and terminal",
		Usage:       "/clear",
		Handler:     handleClear,
	})
	registerCommand(Command{
		Name:        "collab",
		Description: "Start a collaboration session",
		Usage:       "/collab",
		Handler:     stubCommand("Collaboration session started (stub)."),
	})
	registerCommand(Command{
		Name:        "plugin",
		Description: "Load a plugin",
		Usage:       "/plugin <path>",
		Handler:     stubCommand("Plugin loading is not implemented (stub)."),
	})
	registerCommand(Command{
		Name:        "search",
		Description: "Search the workspace",
		Usage:       "/search <query>",
		Handler:     handleSearch,
	})
}

func registerCommand(cmd Command) {
	commandRegistry[cmd.Name] = cmd
}

// parseCommand splits the slash-prefixed input into command + args.
func parseCommand(input string) (string, []string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return "", nil
	}
	if !strings.HasPrefix(parts[0], "/") {
		return "", nil
	}
	name := strings.TrimPrefix(parts[0], "/")
	return name, parts[1:]
}

// handleCommand finds the registered command (with alias fallback).
func handleCommand(m Model, name string, args []string) (Model, tea.Cmd) {
	if name == "" {
		return m, nil
	}
	cmd, ok := commandRegistry[name]
	if !ok {
		for _, registered := range commandRegistry {
			for _, alias := range registered.Aliases {
				if alias == name {
					cmd = registered
					ok = true
					break
				}
			}
			if ok {
				break
			}
		}
	}
	if !ok {
		return m.addSystemMessage(fmt.Sprintf("Unknown command: %s", name)), nil
	}
	return cmd.Handler(m, args)
}

func handleHelp(m Model, args []string) (Model, tea.Cmd) {
	if len(args) > 0 {
		if cmd, ok := commandRegistry[args[0]]; ok {
			return m.addSystemMessage(fmt.Sprintf("%s - %s\nUsage: %s", cmd.Name, cmd.Description, cmd.Usage)), nil
		}
	}
	names := make([]string, 0, len(commandRegistry))
	for name := range commandRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("Available commands:\n\n")
	for _, name := range names {
		cmd := commandRegistry[name]
		b.WriteString(fmt.Sprintf("  %s - %s\n", cmd.Usage, cmd.Description))
	}
	return m.addSystemMessage(b.String()), nil
}

func handleModel(m Model, args []string) (Model, tea.Cmd) {
	if len(args) == 0 {
		return m.addSystemMessage(fmt.Sprintf("Model: %s\nAvailable: %s", m.runtime.SelectedModel(), strings.Join(m.runtime.Catalog.Names(), ", "))), nil
	}
	name := strings.Join(args, " ")
	if err := m.runtime.SelectModel(name); err != nil {
		return m.addErrorMessage(describeError(err)), nil
	}
	m.statusBar.model = name
	if err := m.runtime.SaveWorkspace(""); err != nil {
		m.runtime.Logger.Printf("save workspace: %v", err)
	}
	return m.addSystemMessage(fmt.Sprintf("Selected model changed to %s.", name)), nil
}

func handleApply(m Model, args []string) (Model, tea.Cmd) {
	if m.runtime.Editor.Code() == "" {
		return m.addErrorMessage("Code editor is empty; generate something first."), nil
	}
	if len(args) > 0 {
		return m.submitModify(strings.Join(args, " "))
	}
	m.mode = ModeModify
	m.input.SetValue("")
	m.input.Placeholder = "Modification instructions"
	return m, nil
}

func handleExec(m Model, args []string) (Model, tea.Cmd) {
	if len(args) == 0 {
		return m.addSystemMessage("Usage: /exec <command>"), nil
	}
	command := strings.Join(args, " ")
	if _, err := m.runtime.Exec(context.Background(), command); err != nil {
		return m.addErrorMessage(describeError(err)), nil
	}
	return m, nil
}

func handleRun(m Model, args []string) (Model, tea.Cmd) {
	path, err := m.runtime.RunExternally()
	if err != nil {
		return m.addErrorMessage(describeError(err)), nil
	}
	return m.addSystemMessage(fmt.Sprintf("Running %s in an external terminal.", path)), nil
}

func handleEditor(m Model, args []string) (Model, tea.Cmd) {
	code := m.runtime.Editor.Code()
	if code == "" {
		return m.addSystemMessage("Code editor is empty."), nil
	}
	return m.addSystemMessage(fmt.Sprintf("%s\n\n%s", m.runtime.Config.EditorPath, code)), nil
}

func handleReload(m Model, args []string) (Model, tea.Cmd) {
	if err := m.runtime.ReloadPreview(); err != nil {
		return m.addErrorMessage(describeError(err)), nil
	}
	return m.addSystemMessage("Live preview updated with edited code."), nil
}

func handleAutosave(m Model, args []string) (Model, tea.Cmd) {
	path, err := m.runtime.Autosave()
	if err != nil {
		return m.addErrorMessage(err.Error()), nil
	}
	if path == "" {
		return m.addSystemMessage("Nothing to save."), nil
	}
	return m.addSystemMessage(fmt.Sprintf("Code auto-saved to %s.", path)), nil
}

func handleTheme(m Model, args []string) (Model, tea.Cmd) {
	if len(args) == 0 {
		return m.addSystemMessage(fmt.Sprintf("Theme: %s\nAvailable: %s", m.theme.Name, strings.Join(ThemeNames(), ", "))), nil
	}
	t, ok := LookupTheme(args[0])
	if !ok {
		return m.addErrorMessage(fmt.Sprintf("Unknown theme: %s", args[0])), nil
	}
	m = m.applyTheme(t)
	if err := m.runtime.SaveWorkspace(t.Name); err != nil {
		m.runtime.Logger.Printf("save workspace: %v", err)
	}
	return m.addSystemMessage(fmt.Sprintf("Theme set to %s.", t.Name)), nil
}

func handleHistory(m Model, args []string) (Model, tea.Cmd) {
	if len(m.history) == 0 {
		return m.addSystemMessage("No prompts yet."), nil
	}
	start := max(0, len(m.history)-10)
	var b strings.Builder
	b.WriteString("Recent prompts (ctrl+p / ctrl+n to recall):\n")
	for i, p := range m.history[start:] {
		b.WriteString(fmt.Sprintf("  %d. %s\n", start+i+1, truncate(p, 80)))
	}
	return m.addSystemMessage(b.String()), nil
}

func handleExport(m Model, args []string) (Model, tea.Cmd) {
	path := filepath.Join(m.runtime.Config.StateDir, "activity.txt")
	if len(args) > 0 {
		path = args[0]
	}
	if err := m.runtime.ExportActivity(context.Background(), path); err != nil {
		return m.addErrorMessage(err.Error()), nil
	}
	return m.addSystemMessage(fmt.Sprintf("Logs exported to %s.", path)), nil
}

func handleClear(m Model, args []string) (Model, tea.Cmd) {
	m = m.stopReveal()
	m.messages = nil
	m.lines = nil
	return m.appendTerminal(nil).refreshFeed(), nil
}

func handleSearch(m Model, args []string) (Model, tea.Cmd) {
	query := strings.TrimSpace(strings.Join(args, " "))
	m.runtime.Logger.Printf("search requested: %q", query)
	return m.addSystemMessage(fmt.Sprintf("Search for '%s' not yet implemented (stub).", query)), nil
}

func stubCommand(text string) CommandHandler {
	return func(m Model, args []string) (Model, tea.Cmd) {
		return m.addSystemMessage(text), nil
	}
}

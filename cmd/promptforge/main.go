package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexcodex/promptforge/internal/app"
)

var cfg = app.DefaultConfig()

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg = app.DefaultConfig()
	root := &cobra.Command{
		Use:           "promptforge",
		Short:         "Generate, preview and run code from natural language prompts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return resolveConfig(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&cfg.Workspace, "workspace", cfg.Workspace, "Workspace directory")
	flags.StringVar(&cfg.ConfigPath, "config", "", "Path to the workspace config file")
	flags.StringVar(&cfg.Backend, "backend", cfg.Backend, "Primary backend (gemini, ollama)")
	flags.StringVar(&cfg.SelectedModel, "model", cfg.SelectedModel, "Model used for generation")
	flags.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory for generated code files")
	flags.StringVar(&cfg.OllamaEndpoint, "ollama-endpoint", cfg.OllamaEndpoint, "Ollama endpoint URL")
	flags.StringVar(&cfg.OllamaModel, "ollama-model", cfg.OllamaModel, "Ollama model name")
	flags.StringVar(&cfg.PreviewAddr, "preview-addr", cfg.PreviewAddr, "Live preview listen address")
	flags.StringVar(&cfg.Theme, "theme", cfg.Theme, "TUI theme (light, dark, high_contrast)")
	flags.BoolVar(&cfg.Debug, "debug", false, "Log provider requests and responses")

	root.AddCommand(newChatCmd(), newGenerateCmd(), newExecCmd(), newServeCmd(), newConfigCmd())
	return root
}

// flagOverrides restores values given on the command line after the
// workspace file was applied.
var flagOverrides = map[string]func(dst *app.Config, src app.Config){
	"backend":         func(d *app.Config, s app.Config) { d.Backend = s.Backend },
	"model":           func(d *app.Config, s app.Config) { d.SelectedModel = s.SelectedModel },
	"output-dir":      func(d *app.Config, s app.Config) { d.OutputDir = s.OutputDir },
	"ollama-endpoint": func(d *app.Config, s app.Config) { d.OllamaEndpoint = s.OllamaEndpoint },
	"ollama-model":    func(d *app.Config, s app.Config) { d.OllamaModel = s.OllamaModel },
	"preview-addr":    func(d *app.Config, s app.Config) { d.PreviewAddr = s.PreviewAddr },
	"theme":           func(d *app.Config, s app.Config) { d.Theme = s.Theme },
}

// resolveConfig layers defaults, the workspace file and explicit flags.
func resolveConfig(cmd *cobra.Command) error {
	if err := cfg.Normalize(); err != nil {
		return err
	}
	ws, err := app.LoadWorkspaceConfig(cfg.ConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", cfg.ConfigPath, err)
	}
	merged := cfg
	ws.Apply(&merged)
	for name, restore := range flagOverrides {
		if cmd.Flags().Changed(name) {
			restore(&merged, cfg)
		}
	}
	if err := merged.Normalize(); err != nil {
		return err
	}
	cfg = merged
	return nil
}

func runWithRuntime(cmd *cobra.Command, opts app.Options, fn func(context.Context, *app.Runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := app.New(cfg, opts)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexcodex/promptforge/internal/app"
	"github.com/lexcodex/promptforge/llm"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the live preview and reload it when the editor file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := app.Options{Primary: llm.StubProvider{Model: llm.PrimaryModel}, LogOutput: os.Stderr}
			return runWithRuntime(cmd, opts, func(ctx context.Context, rt *app.Runtime) error {
				if rt.Editor.Code() != "" {
					if err := rt.ReloadPreview(); err != nil {
						return err
					}
				}
				rt.StartWatcher(ctx)
				rt.StartAutosave(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "preview listening on %s (editing %s)\n", rt.PreviewURL(), rt.Config.EditorPath)
				err := rt.Preview.ServeContext(ctx, rt.Config.PreviewAddr)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
}

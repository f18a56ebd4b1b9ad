package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lexcodex/promptforge/internal/app"
	"github.com/lexcodex/promptforge/internal/tui"
)

func newChatCmd() *cobra.Command {
	var noPreview bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithRuntime(cmd, app.Options{}, func(ctx context.Context, rt *app.Runtime) error {
				ctx, cancel := context.WithCancel(ctx)
				defer cancel()
				if !noPreview {
					rt.StartPreview(ctx)
				}
				rt.StartWatcher(ctx)
				rt.StartAutosave(ctx)
				return tui.Run(ctx, rt)
			})
		},
	}
	cmd.Flags().BoolVar(&noPreview, "no-preview", false, "Do not start the live preview server")
	return cmd
}

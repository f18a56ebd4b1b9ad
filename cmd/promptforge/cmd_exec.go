package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexcodex/promptforge/internal/app"
	"github.com/lexcodex/promptforge/llm"
)

func newExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec -- <command>",
		Short: "Run a shell command through the command gate",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command := strings.Join(args, " ")
			// No model is contacted, so skip credential checks.
			opts := app.Options{Primary: llm.StubProvider{Model: llm.PrimaryModel}, LogOutput: io.Discard}
			return runWithRuntime(cmd, opts, func(ctx context.Context, rt *app.Runtime) error {
				exe, err := rt.Exec(ctx, command)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				streamUntilDone(ctx, rt.Queue, exe, out)
				if code := exe.ExitCode(); code != 0 {
					return fmt.Errorf("command exited with code %d", code)
				}
				return nil
			})
		},
	}
}

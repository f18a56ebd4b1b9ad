package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexcodex/promptforge/framework"
	"github.com/lexcodex/promptforge/framework/dispatch"
	"github.com/lexcodex/promptforge/internal/app"
)

func newGenerateCmd() *cobra.Command {
	var instructions string
	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Run one prompt without the TUI and process the response",
		Long: "Sends the prompt to the selected model, writes the extracted code\n" +
			"blocks, runs python and bash blocks, and updates the preview file.\n" +
			"With --modify the editor buffer is rewritten according to the\n" +
			"instructions instead.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			if prompt == "" && instructions == "" {
				return fmt.Errorf("prompt required")
			}
			return runWithRuntime(cmd, app.Options{LogOutput: io.Discard}, func(ctx context.Context, rt *app.Runtime) error {
				var err error
				if instructions != "" {
					_, err = rt.SubmitModify(instructions)
				} else {
					_, err = rt.SubmitPrompt(ctx, prompt)
				}
				if err != nil {
					return err
				}
				return consumeTask(ctx, rt, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVar(&instructions, "modify", "", "Modify the editor code with these instructions")
	return cmd
}

// consumeTask handles the notifications of a single task and streams queue
// output until every started process exited.
func consumeTask(ctx context.Context, rt *app.Runtime, out io.Writer) error {
	var taskErr error
	var executions []*framework.Execution
	for done := false; !done; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-rt.Dispatcher.Notifications():
			switch n.Kind {
			case dispatch.NotifyResult:
				fmt.Fprintln(out, n.Payload)
				outcome, err := rt.HandleNotification(ctx, n)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
				executions = append(executions, outcome.Executions...)
				for _, f := range outcome.Files {
					fmt.Fprintf(out, "wrote %s\n", f.Path)
				}
				if outcome.HasDocument {
					fmt.Fprintf(out, "preview written to %s\n", rt.Config.PreviewPath)
				}
			case dispatch.NotifyError:
				_, _ = rt.HandleNotification(ctx, n)
				taskErr = fmt.Errorf("%s", n.Message)
			case dispatch.NotifyUIEnabled:
				done = true
			}
		}
	}
	for _, exe := range executions {
		streamUntilDone(ctx, rt.Queue, exe, out)
	}
	printLines(out, rt.Queue.Drain())
	return taskErr
}

func streamUntilDone(ctx context.Context, queue *framework.OutputQueue, exe *framework.Execution, out io.Writer) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-queue.Ready():
			printLines(out, queue.Drain())
		case <-exe.Done():
			printLines(out, queue.Drain())
			return
		}
	}
}

func printLines(out io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}

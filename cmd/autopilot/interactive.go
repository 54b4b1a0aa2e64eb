package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/entrhq/autopilot/pkg/types"
)

func newInteractiveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Short:   "Run tasks one at a time from an interactive prompt",
		Example: `  autopilot interactive`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, flags)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := signalContext()
			defer cancel()

			submit := func(ctx context.Context, goal string) (*types.TaskResult, error) {
				return rt.sched.Submit(ctx, goal).Wait()
			}
			return runInteractive(ctx, os.Stdin, os.Stdout, submit)
		},
	}
}

// runInteractive reads one goal per line and runs each to completion
// before prompting again. "exit", "quit", or end of input ends the
// session. A failed or unplannable goal is reported and the prompt
// continues; only infrastructure errors from the reader end the loop.
func runInteractive(ctx context.Context, in io.Reader, out io.Writer, submit func(context.Context, string) (*types.TaskResult, error)) error {
	fmt.Fprintln(out, `Enter one task per line ("exit" to quit).`)

	scanner := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return nil
		}

		fmt.Fprint(out, "autopilot> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		goal := strings.TrimSpace(scanner.Text())
		switch goal {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		result, err := submit(ctx, goal)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}

		fprintOutcomes(out, result)
		if !result.Success {
			fmt.Fprintln(out, "Task failed")
			continue
		}

		fmt.Fprintln(out, "Task completed successfully")
		for stepID, value := range result.Data {
			fmt.Fprintf(out, "\n[%s]\n%v\n", stepID, value)
		}
	}
}

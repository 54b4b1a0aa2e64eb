package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/entrhq/autopilot/pkg/chain"
)

func newChainCmd(flags *rootFlags) *cobra.Command {
	var (
		chainID    string
		checkpoint string
	)

	cmd := &cobra.Command{
		Use:   "chain \"goal 1\" \"goal 2\" ...",
		Short: "Execute goals in sequence with checkpointed resumability",
		Long: `Execute multiple goals in order. Each goal's output is offered to the
next goal's planner. Progress is checkpointed after every goal, so an
interrupted chain resumes with --chain-id instead of starting over.`,
		Example: `  autopilot chain "Log in to the dashboard" "Download the latest report"
  autopilot chain --chain-id weekly-report "Log in" "Download report"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, flags)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := signalContext()
			defer cancel()

			if chainID == "" {
				chainID = uuid.New().String()[:8]
			}
			if checkpoint == "" {
				checkpoint, err = chain.DefaultSQLitePath()
				if err != nil {
					return err
				}
			}

			store, err := chain.OpenSQLiteStore(checkpoint)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Printf("Chain %s: %d goals\n", chainID, len(args))
			for i, goal := range args {
				fmt.Printf("  %d. %s\n", i+1, goal)
			}

			result, err := rt.sched.SubmitChain(ctx, chainID, args, store).Wait()
			rt.sched.Wait()
			if err != nil {
				return err
			}

			completed := result.Completed()
			if result.FullyCompleted {
				fmt.Printf("All %d goals completed\n", completed)
				return nil
			}

			fmt.Printf("%d of %d goals completed; resume with --chain-id %s\n",
				completed, len(args), chainID)
			return fmt.Errorf("chain halted before completion")
		},
	}

	cmd.Flags().StringVar(&chainID, "chain-id", "", "chain identifier for checkpointing (default: random)")
	cmd.Flags().StringVar(&checkpoint, "checkpoint", "", "checkpoint database path (default ~/.autopilot/chains.db)")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	var startURL string

	cmd := &cobra.Command{
		Use:   "run \"task description\"",
		Short: "Execute a web task described in natural language",
		Example: `  autopilot run "Search for AI news on Google"
  autopilot run --url https://example.com "Click the login button"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, flags)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := signalContext()
			defer cancel()

			goal := args[0]
			if startURL != "" {
				goal = fmt.Sprintf("%s (start at %s)", goal, startURL)
			}

			fmt.Printf("Task: %s\n", goal)
			result, err := rt.sched.Submit(ctx, goal).Wait()
			rt.sched.Wait()
			if err != nil {
				return err
			}

			printOutcomes(result)
			if !result.Success {
				return fmt.Errorf("task failed after %d recorded step outcomes", len(result.Outcomes))
			}

			fmt.Println("Task completed successfully")
			for stepID, value := range result.Data {
				fmt.Printf("\n[%s]\n%v\n", stepID, value)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&startURL, "url", "u", "", "starting URL")
	return cmd
}

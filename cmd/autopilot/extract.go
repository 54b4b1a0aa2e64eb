package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExtractCmd(flags *rootFlags) *cobra.Command {
	var (
		startURL string
		output   string
	)

	cmd := &cobra.Command{
		Use:     "extract \"what to extract\" --url URL",
		Short:   "Extract structured data from a webpage",
		Example: `  autopilot extract "product names and prices" --url https://example.com/shop`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd, flags)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := signalContext()
			defer cancel()

			goal := fmt.Sprintf("Extract %s from %s", args[0], startURL)
			result, err := rt.sched.Submit(ctx, goal).Wait()
			rt.sched.Wait()
			if err != nil {
				return err
			}

			if !result.Success {
				printOutcomes(result)
				return fmt.Errorf("extraction failed")
			}

			encoded, err := json.MarshalIndent(result.Data, "", "  ")
			if err != nil {
				return fmt.Errorf("encode extracted data: %w", err)
			}

			if output != "" {
				if err := os.WriteFile(output, encoded, 0644); err != nil {
					return fmt.Errorf("write output file: %w", err)
				}
				fmt.Printf("Saved to %s\n", output)
				return nil
			}

			fmt.Println(string(encoded))
			return nil
		},
	}

	cmd.Flags().StringVarP(&startURL, "url", "u", "", "URL to extract from (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (JSON)")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

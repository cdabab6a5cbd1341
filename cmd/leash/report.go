// ABOUTME: Progress report command
// ABOUTME: Prints a markdown summary of profile, walks, and trigger frequency

package main

import (
	"fmt"
	"os"

	"github.com/harper/leash/internal/storage"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a training progress report",
	Long: `Print a markdown training progress report: the active profile, recent
walks with ratings, and trigger frequency by type.

Examples:
  leash report
  leash report --output progress.md`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, err := owner()
		if err != nil {
			return err
		}

		data, err := storage.ProgressReport(store, ownerID)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}

		output, _ := cmd.Flags().GetString("output")
		if output != "" {
			if err := os.WriteFile(output, data, 0644); err != nil { //nolint:gosec // 0644 is intentional for report files
				return fmt.Errorf("failed to write file: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Wrote report to %s\n", output)
			return nil
		}

		fmt.Print(string(data))
		return nil
	},
}

func init() {
	reportCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(reportCmd)
}

// ABOUTME: Wipe command for resetting all local data
// ABOUTME: Deletes every row while keeping the device identity

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/harper/leash/internal/storage"
	"github.com/spf13/cobra"
)

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete all local data",
	Long: `Delete all local data: profiles, trigger logs, walks, and routes. The
device identity is kept and onboarding is reset. Consider exporting a
snapshot first.

Examples:
  leash export --output backup.json && leash wipe`,
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			fmt.Print("Delete ALL local data? This cannot be undone. [y/N] ")
			reader := bufio.NewReader(os.Stdin)
			response, _ := reader.ReadString('\n')
			response = strings.TrimSpace(strings.ToLower(response))
			if response != "y" && response != "yes" {
				fmt.Println("Canceled.")
				return nil
			}
		}

		if err := storage.ClearAll(store); err != nil {
			return fmt.Errorf("failed to wipe: %w", err)
		}

		color.Green("All data deleted")
		return nil
	},
}

func init() {
	wipeCmd.Flags().Bool("confirm", false, "skip confirmation prompt")

	rootCmd.AddCommand(wipeCmd)
}

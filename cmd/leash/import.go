// ABOUTME: Import command for restoring from a snapshot
// ABOUTME: Replaces all local data after validating the whole document

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

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a snapshot, replacing all local data",
	Long: `Import a snapshot created with 'leash export'. JSON and YAML are both
accepted, and older snapshot versions still import.

WARNING: This replaces everything. All current profiles, triggers,
walks, and routes are deleted first, in the same transaction; a failed
import leaves the database untouched. Imported data is re-owned by
this device.

Examples:
  leash import backup.json
  leash import backup.yaml --confirm`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]

		data, err := os.ReadFile(filename) //#nosec G304 -- user-provided snapshot file
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		snap, err := storage.DecodeSnapshot(data)
		if err != nil {
			return fmt.Errorf("failed to parse snapshot: %w", err)
		}

		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			fmt.Printf("Replace ALL local data with '%s' (%d profiles, %d triggers, %d walks, %d points)? [y/N] ",
				filename, len(snap.DogProfiles), len(snap.TriggerLogs), len(snap.Walks), len(snap.WalkPoints))
			reader := bufio.NewReader(os.Stdin)
			response, _ := reader.ReadString('\n')
			response = strings.TrimSpace(strings.ToLower(response))
			if response != "y" && response != "yes" {
				fmt.Println("Canceled.")
				return nil
			}
		}

		if err := storage.Import(store, snap); err != nil {
			return fmt.Errorf("failed to import: %w", err)
		}

		color.Green("Import complete")
		fmt.Printf("  %d profiles, %d triggers, %d walks, %d points\n",
			len(snap.DogProfiles), len(snap.TriggerLogs), len(snap.Walks), len(snap.WalkPoints))
		return nil
	},
}

func init() {
	importCmd.Flags().Bool("confirm", false, "skip confirmation prompt")

	rootCmd.AddCommand(importCmd)
}

// ABOUTME: Export command for whole-database snapshots
// ABOUTME: Writes a versioned JSON or YAML snapshot of every table

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/harper/leash/internal/storage"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	Aliases: []string{"e"},
	Short:   "Export a snapshot of all local data",
	Long: `Export a versioned snapshot of all local data: settings, profiles,
trigger logs, walks, and route points. JSON is the canonical format;
YAML is available for human inspection. Both import back.

Examples:
  leash export
  leash export --output backup.json
  leash export --format yaml --output backup.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format != "json" && format != "yaml" {
			return fmt.Errorf("unsupported format: %s (use 'json' or 'yaml')", format)
		}

		snap, err := storage.Export(store)
		if err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}

		var data []byte
		if format == "yaml" {
			data, err = snap.EncodeYAML()
		} else {
			data, err = snap.EncodeJSON()
		}
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = fmt.Sprintf("leash-%s.%s", time.Now().Format("20060102-150405"), format)
		}
		if output == "-" {
			fmt.Print(string(data))
			return nil
		}

		if err := os.WriteFile(output, data, 0644); err != nil { //nolint:gosec // 0644 is intentional for data export files
			return fmt.Errorf("failed to write file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %d profiles, %d triggers, %d walks, %d points to %s\n",
			len(snap.DogProfiles), len(snap.TriggerLogs), len(snap.Walks), len(snap.WalkPoints), output)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("format", "f", "json", "snapshot format (json, yaml)")
	exportCmd.Flags().StringP("output", "o", "", "output file (default: leash-<timestamp>.<format>, use - for stdout)")

	rootCmd.AddCommand(exportCmd)
}

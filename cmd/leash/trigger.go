// ABOUTME: Trigger log commands
// ABOUTME: Log trigger events and list them with time filters

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/harper/leash/internal/storage"
	"github.com/harper/leash/internal/ui"
	"github.com/spf13/cobra"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Log and review trigger events",
}

var triggerAddCmd = &cobra.Command{
	Use:     "add",
	Aliases: []string{"a"},
	Short:   "Log a trigger event",
	Long: `Log a trigger event for the active dog. Severity runs 1 (mild) to
5 (over threshold).

Examples:
  leash trigger add --type dogs --severity 4
  leash trigger add --type bikes --severity 2 --distance 30 --notes "recovered fast"
  leash trigger add --type strangers --severity 3 --lat 41.8781 --lng -87.6298`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, err := owner()
		if err != nil {
			return err
		}

		p, err := profiles.ActiveProfile(ownerID)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no profile yet, create one first: leash profile create --name <name>")
		}
		if err != nil {
			return fmt.Errorf("failed to get profile: %w", err)
		}

		triggerType, _ := cmd.Flags().GetString("type")
		severity, _ := cmd.Flags().GetInt("severity")

		in := storage.TriggerInput{
			DogID:       p.ID,
			TriggerType: triggerType,
			Severity:    severity,
		}
		if cmd.Flags().Changed("distance") {
			distance, _ := cmd.Flags().GetFloat64("distance")
			in.DistanceMeters = &distance
		}
		if cmd.Flags().Changed("lat") {
			lat, _ := cmd.Flags().GetFloat64("lat")
			in.Latitude = &lat
		}
		if cmd.Flags().Changed("lng") {
			lng, _ := cmd.Flags().GetFloat64("lng")
			in.Longitude = &lng
		}
		if notes, _ := cmd.Flags().GetString("notes"); notes != "" {
			in.Notes = &notes
		}
		if atStr, _ := cmd.Flags().GetString("at"); atStr != "" {
			at, err := time.Parse(time.RFC3339, atStr)
			if err != nil {
				return fmt.Errorf("invalid timestamp format (use RFC3339, e.g., 2026-08-28T15:00:00Z): %w", err)
			}
			in.LoggedAt = &at
		}

		t, err := triggers.Create(ownerID, in)
		if err != nil {
			return fmt.Errorf("failed to log trigger: %w", err)
		}

		color.Green("✓ Logged %s trigger for %s", t.TriggerType, p.Name)
		fmt.Println(" ", ui.FormatTrigger(t))
		return nil
	},
}

var triggerListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List trigger events, newest first",
	Long: `List trigger events, newest first.

Examples:
  leash trigger list
  leash trigger list --since 2026-08-01T00:00:00Z --limit 20
  leash trigger list --asc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, err := owner()
		if err != nil {
			return err
		}

		opts := storage.ListOptions{Sort: storage.SortDesc}
		if asc, _ := cmd.Flags().GetBool("asc"); asc {
			opts.Sort = storage.SortAsc
		}
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		opts.Offset, _ = cmd.Flags().GetInt("offset")
		if sinceStr, _ := cmd.Flags().GetString("since"); sinceStr != "" {
			since, err := time.Parse(time.RFC3339, sinceStr)
			if err != nil {
				return fmt.Errorf("invalid since timestamp (use RFC3339): %w", err)
			}
			opts.Since = &since
		}

		logs, err := triggers.ListByOwner(ownerID, opts)
		if err != nil {
			return fmt.Errorf("failed to list triggers: %w", err)
		}
		if len(logs) == 0 {
			fmt.Println("No trigger events yet.")
			return nil
		}

		for _, t := range logs {
			fmt.Println(ui.FormatTrigger(t))
		}
		fmt.Println(color.New(color.Faint).Sprintf("%d events", len(logs)))
		return nil
	},
}

func init() {
	triggerAddCmd.Flags().String("type", "", "trigger type, e.g. dogs, bikes, strangers (required)")
	triggerAddCmd.Flags().Int("severity", 0, "severity 1-5 (required)")
	triggerAddCmd.Flags().Float64("distance", 0, "distance to the trigger in meters")
	triggerAddCmd.Flags().Float64("lat", 0, "latitude of the event (requires --lng)")
	triggerAddCmd.Flags().Float64("lng", 0, "longitude of the event (requires --lat)")
	triggerAddCmd.Flags().String("notes", "", "free-form notes")
	triggerAddCmd.Flags().String("at", "", "event time (RFC3339), defaults to now")
	_ = triggerAddCmd.MarkFlagRequired("type")
	_ = triggerAddCmd.MarkFlagRequired("severity")

	triggerListCmd.Flags().String("since", "", "only events at or after this time (RFC3339)")
	triggerListCmd.Flags().Int("limit", 0, "maximum number of events")
	triggerListCmd.Flags().Int("offset", 0, "skip this many events (needs --limit)")
	triggerListCmd.Flags().Bool("asc", false, "oldest first")

	triggerCmd.AddCommand(triggerAddCmd)
	triggerCmd.AddCommand(triggerListCmd)
	rootCmd.AddCommand(triggerCmd)
}

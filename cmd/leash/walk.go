// ABOUTME: Training walk commands
// ABOUTME: Start, end, list walks and print recorded routes

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/harper/leash/internal/geojson"
	"github.com/harper/leash/internal/storage"
	"github.com/harper/leash/internal/ui"
	"github.com/spf13/cobra"
)

var walkCmd = &cobra.Command{
	Use:   "walk",
	Short: "Track training walks",
}

var walkStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a training walk",
	Long: `Start a training walk for the active dog. Only one walk may be in
progress at a time. The threshold is the GPS downsampling distance in
meters used while recording the route.

Examples:
  leash walk start --threshold 15
  leash walk start --threshold 10 --technique bat`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, err := owner()
		if err != nil {
			return err
		}

		dogID, _ := cmd.Flags().GetString("dog")
		if dogID == "" {
			p, err := profiles.ActiveProfile(ownerID)
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("no profile yet, create one first: leash profile create --name <name>")
			}
			if err != nil {
				return fmt.Errorf("failed to get profile: %w", err)
			}
			dogID = p.ID
		}

		threshold, _ := cmd.Flags().GetFloat64("threshold")
		in := storage.WalkInput{
			DogID:                   dogID,
			DistanceThresholdMeters: threshold,
		}
		if technique, _ := cmd.Flags().GetString("technique"); technique != "" {
			in.TechniqueUsed = &technique
		}
		if notes, _ := cmd.Flags().GetString("notes"); notes != "" {
			in.Notes = &notes
		}

		w, err := walks.Start(ownerID, in)
		if err != nil {
			return fmt.Errorf("failed to start walk: %w", err)
		}

		color.Green("✓ Walk started")
		fmt.Printf("  %s  threshold %.0fm\n", color.New(color.Faint).Sprint(w.ID), w.DistanceThresholdMeters)
		return nil
	},
}

var walkEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End the walk in progress",
	Long: `End the walk in progress, optionally attaching a success rating,
technique, and notes. Each walk is ended exactly once.

Examples:
  leash walk end
  leash walk end --rating 4 --notes "calm past two dogs"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, err := owner()
		if err != nil {
			return err
		}

		w, err := walks.ActiveWalk(ownerID)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no walk in progress")
		}
		if err != nil {
			return fmt.Errorf("failed to get active walk: %w", err)
		}

		var patch storage.EndPatch
		if cmd.Flags().Changed("rating") {
			rating, _ := cmd.Flags().GetInt("rating")
			patch.SuccessRating = &rating
		}
		if technique, _ := cmd.Flags().GetString("technique"); technique != "" {
			patch.TechniqueUsed = &technique
		}
		if notes, _ := cmd.Flags().GetString("notes"); notes != "" {
			patch.Notes = &notes
		}

		ended, err := walks.End(w.ID, patch)
		if err != nil {
			return fmt.Errorf("failed to end walk: %w", err)
		}

		count, err := points.CountByWalk(ended.ID)
		if err != nil {
			return fmt.Errorf("failed to count route points: %w", err)
		}

		color.Green("✓ Walk ended")
		fmt.Println(" ", ui.FormatWalk(ended, count))
		return nil
	},
}

var walkListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List walks, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, err := owner()
		if err != nil {
			return err
		}

		opts := storage.ListOptions{Sort: storage.SortDesc}
		opts.Limit, _ = cmd.Flags().GetInt("limit")

		list, err := walks.ListByOwner(ownerID, opts)
		if err != nil {
			return fmt.Errorf("failed to list walks: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No walks yet. Start one with: leash walk start --threshold 15")
			return nil
		}

		for _, w := range list {
			count, err := points.CountByWalk(w.ID)
			if err != nil {
				return fmt.Errorf("failed to count route points: %w", err)
			}
			fmt.Println(ui.FormatWalk(w, count))
		}
		return nil
	},
}

var walkActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "Show the walk in progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, err := owner()
		if err != nil {
			return err
		}

		w, err := walks.ActiveWalk(ownerID)
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Println("No walk in progress.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get active walk: %w", err)
		}

		count, err := points.CountByWalk(w.ID)
		if err != nil {
			return fmt.Errorf("failed to count route points: %w", err)
		}
		fmt.Println(ui.FormatWalk(w, count))
		return nil
	},
}

var walkRouteCmd = &cobra.Command{
	Use:   "route <walk-id>",
	Short: "Print a walk's recorded route as GeoJSON",
	Long: `Print a walk's recorded route as GeoJSON, oldest point first.

Examples:
  leash walk route walk_01jk3f8e9a_2c4e6g8i0k2m4o6q
  leash walk route walk_01jk3f8e9a_2c4e6g8i0k2m4o6q --line > route.geojson`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		walkID := args[0]
		if _, err := walks.GetByID(walkID); err != nil {
			return fmt.Errorf("failed to get walk: %w", err)
		}

		pts, err := points.ListByWalk(walkID, storage.ListOptions{Sort: storage.SortAsc})
		if err != nil {
			return fmt.Errorf("failed to get route: %w", err)
		}

		var fc *geojson.FeatureCollection
		if line, _ := cmd.Flags().GetBool("line"); line {
			fc = geojson.RouteLine(walkID, pts)
		} else {
			fc = geojson.RoutePoints(pts)
		}

		out, err := fc.ToJSONIndent()
		if err != nil {
			return fmt.Errorf("failed to encode geojson: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

var walkDeleteCmd = &cobra.Command{
	Use:     "delete <walk-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a walk and its route",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		walkID := args[0]

		if confirmed, _ := cmd.Flags().GetBool("confirm"); !confirmed {
			fmt.Printf("Delete walk %s and all of its route points? [y/N] ", walkID)
			var answer string
			_, _ = fmt.Fscanln(os.Stdin, &answer)
			if answer != "y" && answer != "Y" && answer != "yes" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := walks.Delete(walkID); err != nil {
			return fmt.Errorf("failed to delete walk: %w", err)
		}
		color.Green("✓ Deleted walk %s", walkID)
		return nil
	},
}

func init() {
	walkStartCmd.Flags().Float64("threshold", 15, "GPS downsampling distance in meters")
	walkStartCmd.Flags().String("dog", "", "dog profile id, defaults to the active profile")
	walkStartCmd.Flags().String("technique", "", "training technique for this walk")
	walkStartCmd.Flags().String("notes", "", "free-form notes")

	walkEndCmd.Flags().Int("rating", 0, "success rating 1-5")
	walkEndCmd.Flags().String("technique", "", "training technique used")
	walkEndCmd.Flags().String("notes", "", "free-form notes")

	walkListCmd.Flags().Int("limit", 0, "maximum number of walks")

	walkRouteCmd.Flags().Bool("line", false, "emit a single LineString instead of Points")

	walkDeleteCmd.Flags().Bool("confirm", false, "skip the confirmation prompt")

	walkCmd.AddCommand(walkStartCmd)
	walkCmd.AddCommand(walkEndCmd)
	walkCmd.AddCommand(walkListCmd)
	walkCmd.AddCommand(walkActiveCmd)
	walkCmd.AddCommand(walkRouteCmd)
	walkCmd.AddCommand(walkDeleteCmd)
	rootCmd.AddCommand(walkCmd)
}

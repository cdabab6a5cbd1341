// ABOUTME: Route recording command
// ABOUTME: Replays GPS samples through the recording pipeline for the active walk

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/harper/leash/internal/recorder"
	"github.com/harper/leash/internal/storage"
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record [file]",
	Short: "Record a route for the walk in progress",
	Long: `Record a route for the walk in progress by replaying GPS samples
through the recording pipeline: downsampling by the walk's distance
threshold, batching, and periodic flushing, exactly as a live location
feed would.

Samples are read from the file (or stdin when omitted or "-"), one per
line: latitude,longitude[,accuracy[,rfc3339-timestamp]]. Blank lines
and lines starting with # are skipped.

Examples:
  leash record walk.csv
  cat walk.csv | leash record --interval 1s
  leash record walk.csv --end --rating 4`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, err := owner()
		if err != nil {
			return err
		}

		w, err := walks.ActiveWalk(ownerID)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no walk in progress, start one first: leash walk start --threshold 15")
		}
		if err != nil {
			return fmt.Errorf("failed to get active walk: %w", err)
		}

		input := io.Reader(os.Stdin)
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0]) //#nosec G304 -- user-provided sample file
			if err != nil {
				return fmt.Errorf("failed to open sample file: %w", err)
			}
			defer func() { _ = f.Close() }()
			input = f
		}

		opts := cfg.RecorderOptions()
		opts.MinDistanceMeters = w.DistanceThresholdMeters

		source := recorder.NewSimulatedSource()
		session := recorder.NewSession(w, points, walks, source, opts, logger)
		if err := session.Start(cmd.Context()); err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}

		interval, _ := cmd.Flags().GetDuration("interval")
		if err := replaySamples(cmd.Context(), session, input, interval); err != nil {
			return err
		}

		if end, _ := cmd.Flags().GetBool("end"); end {
			var patch storage.EndPatch
			if cmd.Flags().Changed("rating") {
				rating, _ := cmd.Flags().GetInt("rating")
				patch.SuccessRating = &rating
			}
			if notes, _ := cmd.Flags().GetString("notes"); notes != "" {
				patch.Notes = &notes
			}
			if _, err := session.End(patch); err != nil {
				return fmt.Errorf("failed to end walk: %w", err)
			}
		} else {
			if err := session.Pause(); err != nil {
				return fmt.Errorf("failed to stop recording: %w", err)
			}
		}

		stats := session.Stats()
		color.Green("✓ Recorded %d points (%d below threshold dropped)", stats.Flushed, stats.Dropped)
		if stats.Pending > 0 {
			color.Yellow("! %d points still pending after %d flush failures", stats.Pending, stats.FlushFailures)
		}
		return nil
	},
}

// replaySamples feeds parsed lines through the session, pacing them by
// interval when set.
func replaySamples(ctx context.Context, session *recorder.Session, input io.Reader, interval time.Duration) error {
	scanner := bufio.NewScanner(input)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sample, err := parseSample(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		session.Observe(sample)

		if interval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read samples: %w", err)
	}
	return nil
}

// parseSample parses one lat,lng[,accuracy[,timestamp]] line.
func parseSample(line string) (recorder.Sample, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 2 || len(fields) > 4 {
		return recorder.Sample{}, fmt.Errorf("expected lat,lng[,accuracy[,timestamp]], got %q", line)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return recorder.Sample{}, fmt.Errorf("invalid latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return recorder.Sample{}, fmt.Errorf("invalid longitude: %w", err)
	}

	sample := recorder.Sample{Latitude: lat, Longitude: lng}
	if len(fields) >= 3 && strings.TrimSpace(fields[2]) != "" {
		accuracy, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return recorder.Sample{}, fmt.Errorf("invalid accuracy: %w", err)
		}
		sample.Accuracy = &accuracy
	}
	if len(fields) == 4 && strings.TrimSpace(fields[3]) != "" {
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(fields[3]))
		if err != nil {
			return recorder.Sample{}, fmt.Errorf("invalid timestamp (use RFC3339): %w", err)
		}
		sample.Timestamp = ts
	}
	return sample, nil
}

func init() {
	recordCmd.Flags().Duration("interval", 0, "delay between samples, e.g. 1s")
	recordCmd.Flags().Bool("end", false, "end the walk after the final flush")
	recordCmd.Flags().Int("rating", 0, "success rating 1-5 (with --end)")
	recordCmd.Flags().String("notes", "", "free-form notes (with --end)")

	rootCmd.AddCommand(recordCmd)
}

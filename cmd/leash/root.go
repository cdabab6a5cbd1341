// ABOUTME: Root Cobra command and global flags
// ABOUTME: Loads config, opens the SQLite store, and wires the repositories

package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/harper/leash/internal/config"
	"github.com/harper/leash/internal/storage"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	store  *storage.Store
	logger *log.Logger

	profiles *storage.ProfileRepo
	triggers *storage.TriggerRepo
	walks    *storage.WalkRepo
	points   *storage.PointRepo
	settings *storage.SettingsRepo

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "leash",
	Short: "Trigger logging and training walks for reactive dogs",
	Long: `
██╗     ███████╗ █████╗ ███████╗██╗  ██╗
██║     ██╔════╝██╔══██╗██╔════╝██║  ██║
██║     █████╗  ███████║███████╗███████║
██║     ██╔══╝  ██╔══██║╚════██║██╔══██║
███████╗███████╗██║  ██║███████║██║  ██║
╚══════╝╚══════╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝

    Log triggers and track training walks for your reactive dog

Examples:
  leash profile create --name Rex --breed "border collie" --age 3 --weight 20
  leash trigger add --type dogs --severity 4 --distance 25
  leash walk start --threshold 15
  leash walk end --rating 4 --notes "calm past two dogs"
  leash report`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger = log.New(os.Stderr)
		if verbose {
			logger.SetLevel(log.DebugLevel)
		} else if cfg.LogLevel != "" {
			if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
				logger.SetLevel(lvl)
			}
		}

		store, err = cfg.NewManager().Open()
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}

		profiles = storage.NewProfileRepo(store)
		triggers = storage.NewTriggerRepo(store)
		walks = storage.NewWalkRepo(store)
		points = storage.NewPointRepo(store)
		settings = storage.NewSettingsRepo(store)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store != nil {
			return store.Close()
		}
		return nil
	},
}

// owner resolves the local device owner id, seeded on first open.
func owner() (string, error) {
	id, err := settings.OwnerID()
	if err != nil {
		return "", fmt.Errorf("failed to resolve owner: %w", err)
	}
	return id, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

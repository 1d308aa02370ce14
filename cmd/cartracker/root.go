package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/cartracker/cartracker/internal/application"
	"github.com/cartracker/cartracker/internal/config"
	"github.com/cartracker/cartracker/internal/logger"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:           "cartracker",
	Short:         "cartracker - maintenance and insurance tracker for your vehicles",
	Long:          "cartracker keeps the service history, odometer readings and insurance policies of up to a few vehicles in a local database.",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path of the database file (defaults to the data directory)")

	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newTemplatesCmd())
	rootCmd.AddCommand(newMileageCmd())
	rootCmd.AddCommand(newServiceCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newPolicyCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newSnapshotCmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newMCPCmd())
}

// openApp loads the configuration and opens the application. Logs go to
// stderr so they never mix with command output.
func openApp(ctx context.Context) (*application.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.New("cartracker", cfg.LogLevel, cfg.LogFormat, os.Stderr)

	var opts []application.Option
	if dbPath != "" {
		opts = append(opts, application.WithPath(dbPath))
	}
	return application.Open(ctx, *cfg, log, opts...)
}

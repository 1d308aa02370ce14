package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cartracker/cartracker/internal/config"
	"github.com/cartracker/cartracker/internal/database"
	"github.com/cartracker/cartracker/internal/settings"
	"github.com/cartracker/cartracker/internal/usecase"
)

type infoOutput struct {
	database.Info
	DataDir     string                `json:"dataDir"`
	BackupsDir  string                `json:"backupsDir"`
	MaxActive   int                   `json:"maxActive"`
	BackupInfo  settings.BackupInfo   `json:"backupInfo"`
	QuickBackup *usecase.SnapshotInfo `json:"quickBackup,omitempty"`
}

func newInfoCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show database and backup information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			ctx := context.Background()
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			dbInfo, err := database.Describe(ctx, app.DB)
			if err != nil {
				return err
			}
			backupInfo, err := app.Settings.BackupInfo(ctx)
			if err != nil {
				return err
			}
			snapshot, err := app.Garage.QuickBackupInfo(ctx)
			if err != nil {
				return err
			}

			output := infoOutput{
				Info:        dbInfo,
				DataDir:     config.GetDataDir(),
				BackupsDir:  config.GetBackupsDir(),
				MaxActive:   app.Vehicles.MaxActive(),
				BackupInfo:  backupInfo,
				QuickBackup: snapshot,
			}

			if format == "json" {
				return outputJSON(cmd, output)
			}
			return outputInfoTable(cmd, output)
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func outputInfoTable(cmd *cobra.Command, info infoOutput) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database:     %s\n", info.Name)
	fmt.Fprintf(out, "Path:         %s\n", info.Path)
	fmt.Fprintf(out, "Version:      %d\n", info.Version)
	fmt.Fprintf(out, "Backups dir:  %s\n", info.BackupsDir)
	fmt.Fprintf(out, "Active limit: %d\n", info.MaxActive)

	if info.BackupInfo.LastBackup != nil {
		fmt.Fprintf(out, "Last export:  %s (%d total)\n", info.BackupInfo.LastBackup.Local().Format("2006-01-02 15:04:05"), info.BackupInfo.BackupCount)
	} else {
		fmt.Fprintf(out, "Last export:  never\n")
	}
	if info.QuickBackup != nil {
		fmt.Fprintf(out, "Quick backup: %s (%d vehicles)\n", info.QuickBackup.TakenAt.Local().Format("2006-01-02 15:04:05"), info.QuickBackup.Vehicles)
	} else {
		fmt.Fprintf(out, "Quick backup: none\n")
	}
	fmt.Fprintln(out)

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Collection", "Records"})
	for _, c := range info.Collections {
		t.AppendRow(table.Row{c.Name, c.Records})
	}
	t.Render()
	return nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cartracker/cartracker/internal/backup"
	"github.com/cartracker/cartracker/internal/filesystem"
	"github.com/cartracker/cartracker/internal/usecase"
)

func newExportCmd() *cobra.Command {
	var (
		toStdout bool
		list     bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all vehicles and settings to a backup file",
		Long:  "Export all vehicles and settings to a dated JSON file in the backups directory, or to stdout with --stdout.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if list {
				return outputBackupList(cmd)
			}

			ctx := context.Background()
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			now := time.Now()
			if toStdout {
				doc, err := app.Garage.Export(ctx, now)
				if err != nil {
					return err
				}
				return backup.Encode(cmd.OutOrStdout(), doc)
			}

			path, hash, err := app.Garage.ExportFile(ctx, now)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\nsha256 %s\n", path, hash)
			return nil
		},
	}

	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Write the backup to stdout instead of a file")
	cmd.Flags().BoolVar(&list, "list", false, "List the backup files instead of exporting")

	return cmd
}

func outputBackupList(cmd *cobra.Command) error {
	files, err := filesystem.ListBackups()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No backups")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"File", "Size", "Modified"})
	for _, f := range files {
		t.AppendRow(table.Row{f.Path, f.Size, f.ModTime.Format("2006-01-02 15:04:05")})
	}
	t.Render()
	return nil
}

func newImportCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the garage with the contents of a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := filesystem.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := backup.Parse(data)
			if err != nil {
				return err
			}

			if !force {
				ok, err := confirm(cmd, fmt.Sprintf("Found %d vehicles. Import them? Existing data will be replaced. (y/N) ", len(doc.Vehicles)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Import cancelled")
					return nil
				}
			}

			ctx := context.Background()
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			count, err := app.Garage.Import(ctx, doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d vehicles\n", count)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save or restore the quick backup kept inside the database",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Replace the quick backup with the current garage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			info, err := app.Garage.QuickBackup(ctx, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved quick backup of %d vehicles\n", info.Vehicles)
			return nil
		},
	})

	var force bool
	restore := &cobra.Command{
		Use:   "restore",
		Short: "Replace the garage with the quick backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			info, err := app.Garage.QuickBackupInfo(ctx)
			if err != nil {
				return err
			}
			if info == nil {
				return usecase.ErrNoSnapshot
			}

			if !force {
				ok, err := confirm(cmd, fmt.Sprintf("Restore the quick backup from %s (%d vehicles)? (y/N) ",
					info.TakenAt.Local().Format("2006-01-02 15:04"), info.Vehicles))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Restore cancelled")
					return nil
				}
			}

			count, err := app.Garage.RestoreQuickBackup(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d vehicles\n", count)
			return nil
		},
	}
	restore.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")
	cmd.AddCommand(restore)

	return cmd
}

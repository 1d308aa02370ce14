package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cartracker/cartracker/internal/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change preferences",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [key]",
		Short: "Print all preferences or a single one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			current, err := app.Settings.Settings(ctx)
			if err != nil {
				return err
			}

			keys := settings.Keys()
			if len(args) == 1 {
				keys = args
			}
			for _, key := range keys {
				value, err := current.Value(key)
				if err != nil {
					return err
				}
				if len(args) == 1 {
					fmt.Fprintln(cmd.OutOrStdout(), value)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%-17s %s\n", key+":", value)
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			current, err := app.Settings.Settings(ctx)
			if err != nil {
				return err
			}
			updated, err := current.With(args[0], args[1])
			if err != nil {
				return err
			}
			if err := app.Settings.SaveSettings(ctx, updated); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s set to %q\n", args[0], args[1])
			return nil
		},
	})

	return cmd
}

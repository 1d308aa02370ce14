package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cartracker/cartracker/internal/usecase"
)

func newDeleteCmd() *cobra.Command {
	var (
		force bool
		hard  bool
	)

	cmd := &cobra.Command{
		Use:   "delete <vehicle>",
		Short: "Delete a vehicle",
		Long:  "Delete a vehicle. By default the vehicle is only marked deleted and stays in backups; --hard removes it from the database.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			candidates := app.Vehicles.ListActiveVehicles()
			if hard {
				if candidates, err = app.Vehicles.ListAllVehicles(ctx); err != nil {
					return err
				}
			}
			v, err := usecase.ResolveVehicle(candidates, args[0])
			if err != nil {
				return err
			}

			if !force {
				message := fmt.Sprintf("Delete %s (%s)? (y/N) ", v.Name, v.Plate)
				if hard {
					message = fmt.Sprintf("Permanently remove %s (%s)? This cannot be undone. (y/N) ", v.Name, v.Plate)
				}
				ok, err := confirm(cmd, message)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
					return nil
				}
			}

			if hard {
				if err := app.Vehicles.HardDeleteVehicle(ctx, v.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", v.Name)
				return nil
			}

			if err := app.Vehicles.DeleteVehicle(ctx, v.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", v.Name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")
	cmd.Flags().BoolVar(&hard, "hard", false, "Remove the vehicle from the database instead of marking it deleted")

	return cmd
}

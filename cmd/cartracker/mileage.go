package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cartracker/cartracker/internal/usecase"
)

func newMileageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mileage <vehicle> <km>",
		Short: "Set the odometer reading of a vehicle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			km, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid mileage %q: %w", args[1], err)
			}

			ctx := context.Background()
			app, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			v, err := usecase.ResolveVehicle(app.Vehicles.ListActiveVehicles(), args[0])
			if err != nil {
				return err
			}

			updated, err := app.Vehicles.UpdateMileage(ctx, v.ID, km)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Mileage of %s set to %d km\n", updated.Name, updated.CurrentMileage)
			return nil
		},
	}

	return cmd
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cartracker/cartracker/internal/catalog"
	"github.com/cartracker/cartracker/internal/vehicle"
)

func newAddCmd() *cobra.Command {
	var (
		name    string
		year    int
		plate   string
		vin     string
		color   string
		mileage int
	)

	cmd := &cobra.Command{
		Use:   "add <template>",
		Short: "Add a vehicle from a model template",
		Long:  "Add a vehicle using the maintenance intervals of a model template. Run 'cartracker templates' for the available keys.",
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

			overrides := catalog.Overrides{
				Name:           name,
				Year:           year,
				Plate:          plate,
				VIN:            vin,
				Color:          color,
				CurrentMileage: mileage,
			}
			if mileage > 0 {
				overrides.LastMileageUpdate = vehicle.DateOf(time.Now())
			}

			v, err := app.Garage.CreateFromTemplate(ctx, args[0], overrides)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) with id %s\n", v.Name, v.Plate, v.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the template name)")
	cmd.Flags().IntVar(&year, "year", 0, "Model year")
	cmd.Flags().StringVar(&plate, "plate", "", "License plate")
	cmd.Flags().StringVar(&vin, "vin", "", "Vehicle identification number")
	cmd.Flags().StringVar(&color, "color", "", "Color")
	cmd.Flags().IntVar(&mileage, "mileage", 0, "Current odometer reading in km")

	return cmd
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cartracker/cartracker/internal/catalog"
	"github.com/cartracker/cartracker/internal/usecase"
	"github.com/cartracker/cartracker/internal/vehicle"
)

func newServiceCmd() *cobra.Command {
	var (
		mileage  int
		date     string
		material string
		notes    string
	)

	cmd := &cobra.Command{
		Use:   "service <vehicle> <component>",
		Short: "Record a maintenance change",
		Long:  "Record that a component was replaced. A change recorded above the current mileage also moves the odometer forward.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			changeDate, err := vehicle.ParseDate(date)
			if err != nil {
				return fmt.Errorf("invalid date: %w", err)
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
			if !cmd.Flags().Changed("mileage") {
				mileage = v.CurrentMileage
			}

			component := args[1]
			if _, err := app.Vehicles.RecordMaintenance(ctx, v.ID, component, vehicle.LastChange{
				Date:     changeDate,
				Mileage:  mileage,
				Material: material,
				Notes:    notes,
			}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s for %s at %d km\n", catalog.ComponentName(component), v.Name, mileage)
			return nil
		},
	}

	cmd.Flags().IntVar(&mileage, "mileage", 0, "Odometer reading at the change (defaults to the current mileage)")
	cmd.Flags().StringVar(&date, "date", "", "Date of the change as YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVar(&material, "material", "", "Part or fluid used")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")

	return cmd
}

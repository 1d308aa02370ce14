package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/cartracker/cartracker/internal/usecase"
)

func newListCmd() *cobra.Command {
	var (
		includeInactive bool
		format          string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List vehicles with their maintenance and insurance status",
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

			now := time.Now()
			views := app.Garage.Overview(now)
			if includeInactive {
				all, err := app.Vehicles.ListAllVehicles(ctx)
				if err != nil {
					return err
				}
				views = make([]usecase.VehicleView, 0, len(all))
				for _, v := range all {
					views = append(views, usecase.NewVehicleView(v, now))
				}
			}

			if format == "json" {
				return outputJSON(cmd, views)
			}
			outputListTable(cmd, views, includeInactive)
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d active vehicle slots used\n", len(app.Vehicles.ListActiveVehicles()), app.Vehicles.MaxActive())
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeInactive, "all", false, "Include deleted vehicles")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func outputListTable(cmd *cobra.Command, views []usecase.VehicleView, includeInactive bool) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)

	// Name takes whatever the fixed columns leave over.
	nameWidth := getTerminalWidth() - 7*3 - 24 - 10 - 10 - 10 - 10
	if includeInactive {
		nameWidth -= 8
	}
	if nameWidth < 12 {
		nameWidth = 12
	}

	header := table.Row{"ID", "Name", "Plate", "Mileage", "Service", "Insurance"}
	if includeInactive {
		header = append(header, "Active")
	}
	t.AppendHeader(header)

	for _, view := range views {
		v := view.Vehicle
		service := statusLabel(view.Status)
		if n := len(view.Critical); n > 0 {
			service = fmt.Sprintf("%s (%d)", service, n)
		}
		row := table.Row{
			v.ID,
			runewidth.Truncate(v.Name, nameWidth, "..."),
			v.Plate,
			fmt.Sprintf("%d km", v.CurrentMileage),
			service,
			insuranceLabel(view.Insurance.Status),
		}
		if includeInactive {
			row = append(row, v.IsActive)
		}
		t.AppendRow(row)
	}

	t.Render()
}

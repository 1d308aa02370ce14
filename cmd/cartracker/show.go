package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cartracker/cartracker/internal/usecase"
)

func newShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <vehicle>",
		Short: "Show the maintenance and insurance status of a vehicle",
		Long:  "Show the status of every tracked component and the policies of a vehicle. The vehicle is given by id, plate or name.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			all, err := app.Vehicles.ListAllVehicles(ctx)
			if err != nil {
				return err
			}
			v, err := usecase.ResolveVehicle(all, args[0])
			if err != nil {
				return err
			}

			now := time.Now()
			view, err := app.Garage.Detail(ctx, v.ID, now)
			if err != nil {
				return err
			}

			if format == "json" {
				return outputJSON(cmd, view)
			}
			outputShow(cmd, view, now)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func outputShow(cmd *cobra.Command, view usecase.VehicleView, now time.Time) {
	out := cmd.OutOrStdout()
	v := view.Vehicle

	fmt.Fprintf(out, "ID:        %s\n", v.ID)
	fmt.Fprintf(out, "Name:      %s\n", v.Name)
	if v.Year > 0 {
		fmt.Fprintf(out, "Year:      %d\n", v.Year)
	}
	fmt.Fprintf(out, "Plate:     %s\n", v.Plate)
	if v.VIN != "" {
		fmt.Fprintf(out, "VIN:       %s\n", v.VIN)
	}
	fmt.Fprintf(out, "Mileage:   %d km", v.CurrentMileage)
	if !v.LastMileageUpdate.IsZero() {
		fmt.Fprintf(out, " (updated %s)", v.LastMileageUpdate)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Service:   %s\n", statusLabel(view.Status))
	fmt.Fprintf(out, "Insurance: %s", insuranceLabel(view.Insurance.Status))
	if view.Insurance.DaysUntilExpiry != nil {
		fmt.Fprintf(out, " (%d days left)", *view.Insurance.DaysUntilExpiry)
	}
	fmt.Fprintln(out)
	if !v.IsActive {
		fmt.Fprintf(out, "Deleted:   %s\n", v.DeletedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(out)

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Component", "Status", "Last change", "Next due", "Remaining", "Used"})
	for _, c := range view.Components {
		last := "-"
		if c.LastChange != nil {
			last = fmt.Sprintf("%d km %s", c.LastChange.Mileage, c.LastChange.Date)
		}
		next, remaining := "-", "-"
		switch {
		case c.Interval.Mileage > 0 && c.LastChange != nil:
			next = fmt.Sprintf("%d km", c.NextDueMileage)
			remaining = fmt.Sprintf("%d km", c.MileageRemaining)
		case c.DaysRemaining != nil:
			next = c.NextDueDate.String()
			remaining = fmt.Sprintf("%d days", *c.DaysRemaining)
		}
		t.AppendRow(table.Row{
			truncate(c.Name, 32),
			statusLabel(c.Status),
			last,
			next,
			remaining,
			fmt.Sprintf("%.0f%%", c.Progress),
		})
	}
	t.Render()

	if len(v.InsurancePolicies) == 0 {
		return
	}
	fmt.Fprintln(out)

	p := table.NewWriter()
	p.SetOutputMirror(out)
	p.SetStyle(table.StyleLight)
	p.AppendHeader(table.Row{"Ref", "Number", "Company", "Type", "Start", "End", "Active"})
	for _, policy := range v.InsurancePolicies {
		p.AppendRow(table.Row{
			policy.Ref(),
			policy.Number,
			truncate(policy.Company, 24),
			policy.Type,
			policy.StartDate,
			policy.EndDate,
			policy.IsActiveAt(now),
		})
	}
	p.Render()
}

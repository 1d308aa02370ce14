package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cartracker/cartracker/internal/services"
	"github.com/cartracker/cartracker/internal/usecase"
	"github.com/cartracker/cartracker/internal/vehicle"
)

type policyFlags struct {
	number  string
	company string
	kind    string
	start   string
	end     string
	cost    float64
}

func (f *policyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.number, "number", "", "Policy number")
	cmd.Flags().StringVar(&f.company, "company", "", "Insurance company")
	cmd.Flags().StringVar(&f.kind, "type", "", "Policy type: compulsory or comprehensive")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date as YYYY-MM-DD")
	cmd.Flags().StringVar(&f.end, "end", "", "End date as YYYY-MM-DD")
	cmd.Flags().Float64Var(&f.cost, "cost", 0, "Premium paid")
}

// patch returns the fields whose flags were set on the command line.
func (f *policyFlags) patch(cmd *cobra.Command) (services.PolicyPatch, error) {
	var patch services.PolicyPatch
	if cmd.Flags().Changed("number") {
		patch.Number = &f.number
	}
	if cmd.Flags().Changed("company") {
		patch.Company = &f.company
	}
	if cmd.Flags().Changed("type") {
		kind, err := vehicle.ParsePolicyType(f.kind)
		if err != nil {
			return patch, fmt.Errorf("%w: %w", services.ErrValidation, err)
		}
		patch.Type = &kind
	}
	if cmd.Flags().Changed("start") {
		start, err := vehicle.ParseDate(f.start)
		if err != nil {
			return patch, fmt.Errorf("%w: invalid start date: %w", services.ErrValidation, err)
		}
		patch.StartDate = &start
	}
	if cmd.Flags().Changed("end") {
		end, err := vehicle.ParseDate(f.end)
		if err != nil {
			return patch, fmt.Errorf("%w: invalid end date: %w", services.ErrValidation, err)
		}
		patch.EndDate = &end
	}
	if cmd.Flags().Changed("cost") {
		patch.Cost = &f.cost
	}
	return patch, nil
}

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Manage insurance policies",
	}

	cmd.AddCommand(newPolicyAddCmd())
	cmd.AddCommand(newPolicyUpdateCmd())
	cmd.AddCommand(newPolicyDeleteCmd())

	return cmd
}

func newPolicyAddCmd() *cobra.Command {
	var flags policyFlags

	cmd := &cobra.Command{
		Use:   "add <vehicle>",
		Short: "Add an insurance policy to a vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := flags.patch(cmd)
			if err != nil {
				return err
			}
			p := vehicle.Policy{Number: flags.number, Company: flags.company}
			if patch.Type != nil {
				p.Type = *patch.Type
			}
			if patch.StartDate != nil {
				p.StartDate = *patch.StartDate
			}
			if patch.EndDate != nil {
				p.EndDate = *patch.EndDate
			}
			p.Cost = patch.Cost

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

			added, err := app.Vehicles.AddInsurancePolicy(ctx, v.ID, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added policy %s to %s (ref %s)\n", added.Number, v.Name, added.Ref())
			return nil
		},
	}

	flags.register(cmd)
	_ = cmd.MarkFlagRequired("number")

	return cmd
}

func newPolicyUpdateCmd() *cobra.Command {
	var flags policyFlags

	cmd := &cobra.Command{
		Use:   "update <vehicle> <policy>",
		Short: "Update an insurance policy",
		Long:  "Update an insurance policy. The policy is given by its id or, for policies stored without one, its number.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := flags.patch(cmd)
			if err != nil {
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

			v, err := usecase.ResolveVehicle(app.Vehicles.ListActiveVehicles(), args[0])
			if err != nil {
				return err
			}

			updated, err := app.Vehicles.UpdateInsurancePolicy(ctx, v.ID, args[1], patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated policy %s of %s\n", updated.Number, v.Name)
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

func newPolicyDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <vehicle> <policy>",
		Short: "Delete an insurance policy",
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

			v, err := usecase.ResolveVehicle(app.Vehicles.ListActiveVehicles(), args[0])
			if err != nil {
				return err
			}

			if !force {
				ok, err := confirm(cmd, fmt.Sprintf("Delete policy %s of %s? (y/N) ", args[1], v.Name))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
					return nil
				}
			}

			if err := app.Vehicles.DeleteInsurancePolicy(ctx, v.ID, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted policy %s of %s\n", args[1], v.Name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}

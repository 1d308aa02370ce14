package main

import (
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cartracker/cartracker/internal/catalog"
)

type templateOutput struct {
	Key        string   `json:"key"`
	Name       string   `json:"name"`
	Year       int      `json:"year"`
	Components []string `json:"components"`
}

func newTemplatesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List the model templates vehicles can be created from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			output := make([]templateOutput, 0)
			for _, key := range catalog.Keys() {
				tpl, _ := catalog.Lookup(key)
				components := make([]string, 0, len(tpl.Intervals))
				for component := range tpl.Intervals {
					components = append(components, component)
				}
				slices.Sort(components)
				output = append(output, templateOutput{
					Key:        tpl.Key,
					Name:       tpl.DisplayName,
					Year:       tpl.Year,
					Components: components,
				})
			}

			if format == "json" {
				return outputJSON(cmd, output)
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Key", "Name", "Year", "Components"})
			for _, tpl := range output {
				t.AppendRow(table.Row{tpl.Key, tpl.Name, tpl.Year, len(tpl.Components)})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

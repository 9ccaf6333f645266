package commands

import (
	"fmt"
	"os"

	"spavail-backend/internal/catalog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var servicesAll *bool

var servicesCmd = &cobra.Command{
	Use:   "services [--all]",
	Short: "Prints the target services of the menu, or every service with --all.",
	RunE: func(cmd *cobra.Command, args []string) error {
		components, _, err := initApp(cmd)
		if err != nil {
			return err
		}
		defer components.Close()

		var services []catalog.Service
		if *servicesAll {
			services, err = components.Catalog.ListAll(cmd.Context())
		} else {
			services, err = components.Catalog.ListTargets(cmd.Context())
		}
		if err != nil {
			return fmt.Errorf("list services: %w", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Name", "Category", "Duration", "Price"})
		for _, s := range services {
			t.AppendRow(table.Row{
				s.ID,
				s.Name,
				s.Category,
				fmt.Sprintf("%d min", s.DurationMinutes),
				fmt.Sprintf("$%.2f", s.Price),
			})
		}
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d services", len(services))})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

func init() {
	servicesAll = servicesCmd.Flags().Bool("all", false, "Include services that do not match the keywords.")
	rootCmd.AddCommand(servicesCmd)
}

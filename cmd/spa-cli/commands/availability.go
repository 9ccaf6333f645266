package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"spavail-backend/internal/service"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var availabilityDays *int

var availabilityCmd = &cobra.Command{
	Use:   "availability [--days N]",
	Short: "Prints the open slots of the target services for the next N days.",
	RunE: func(cmd *cobra.Command, args []string) error {
		components, tel, err := initApp(cmd)
		if err != nil {
			return err
		}
		defer components.Close()

		svc := service.NewService(
			components.Catalog,
			components.Availability,
			components.Tokens,
			components.Time,
			tel,
			components.Config.Server.Options(),
		)
		res, err := svc.Availability(cmd.Context(), *availabilityDays)
		if err != nil {
			return fmt.Errorf("fetch availability: %w", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetTitle(fmt.Sprintf("%s to %s", res.Range.From, res.Range.To))
		t.AppendHeader(table.Row{"Service", "Date", "Slots"})

		names := make([]string, 0, len(res.Availability))
		for name := range res.Availability {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			for _, date := range res.Availability.Dates(name) {
				var times []string
				for _, slot := range res.Availability[name][date] {
					entry := slot.Start.Format("15:04")
					if slot.StaffName != "" {
						entry += " (" + slot.StaffName + ")"
					}
					times = append(times, entry)
				}
				t.AppendRow(table.Row{name, date, strings.Join(times, ", ")})
			}
		}
		t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d slots", res.Availability.SlotCount())})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

func init() {
	availabilityDays = availabilityCmd.Flags().Int("days", 14, "Number of days starting today.")
	rootCmd.AddCommand(availabilityCmd)
}

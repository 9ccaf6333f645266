package commands

import (
	"fmt"
	"strings"
	"time"

	"spavail-backend/internal/availability"
	"spavail-backend/internal/catalog"

	"github.com/spf13/cobra"
)

var bookingUrlCmd = &cobra.Command{
	Use:   "booking-url <service name> <YYYY-MM-DD>",
	Short: "Prints the public booking link of a service on a date, the name may be approximate.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		components, _, err := initApp(cmd)
		if err != nil {
			return err
		}
		defer components.Close()

		date, err := time.ParseInLocation(availability.DateLayout, args[1], components.Time.Location())
		if err != nil {
			return fmt.Errorf("parse date: %w", err)
		}

		services, err := components.Catalog.ListAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("list services: %w", err)
		}
		match, suggestions, ok := catalog.Find(services, args[0])
		if !ok {
			if len(suggestions) == 0 {
				return fmt.Errorf("no service named %q", args[0])
			}
			names := make([]string, len(suggestions))
			for i, s := range suggestions {
				names[i] = s.Name
			}
			return fmt.Errorf("no service named %q, did you mean: %s", args[0], strings.Join(names, ", "))
		}

		base := components.Config.Upstream.BookingBaseUrl
		if base == "" {
			base = components.Config.Browser.PageUrl
		}
		fmt.Println(availability.BookingURL(base, match, date))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bookingUrlCmd)
}

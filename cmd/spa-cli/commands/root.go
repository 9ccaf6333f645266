package commands

import (
	"context"
	"fmt"
	"os"

	"spavail-backend/internal/app"
	"spavail-backend/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var verbose *bool

var rootCmd = &cobra.Command{
	Use:          "spa-cli",
	Short:        "spa-cli inspects tokens, services and availability of the booking platform.",
	SilenceUsage: true,
}

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initApp reads config.json5 and wires every component.
func initApp(cmd *cobra.Command) (app.App, telemetry.API, error) {
	tel := app.InitTelemetry(cmd.Context(), "spa-cli", *verbose)

	cfg, err := app.ReadConfig()
	if err != nil {
		return app.App{}, nil, fmt.Errorf("read config: %w", err)
	}
	components, err := app.New(cmd.Context(), cfg, tel)
	if err != nil {
		return app.App{}, nil, fmt.Errorf("init components: %w", err)
	}
	return components, tel, nil
}

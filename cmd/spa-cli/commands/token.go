package commands

import (
	"errors"
	"fmt"
	"time"

	"spavail-backend/internal/token"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Acquires a fresh access token with a headless browser and prints it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		components, _, err := initApp(cmd)
		if err != nil {
			return err
		}
		defer components.Close()

		t1 := time.Now()
		value, err := components.Acquirer.Acquire(cmd.Context())
		switch {
		case errors.Is(err, token.ErrAcquisitionUnavailable):
			return fmt.Errorf("no browser runtime in this environment, install chrome or set browser.exec_path: %w", err)
		case errors.Is(err, token.ErrAcquisitionTimeout):
			return fmt.Errorf("the page did not send a token in time, try again later: %w", err)
		case err != nil:
			return fmt.Errorf("acquire token: %w", err)
		}

		fmt.Println(value)
		fmt.Printf("acquired in %s\n", time.Since(t1).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

package cli

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	statusProbe bool
	statusLocal bool
)

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusProbe, "probe", false, "Include a live gateway connectivity probe")
	statusCmd.Flags().BoolVar(&statusLocal, "local", false, "Build the report in-process instead of querying the daemon")
	statusCmd.Flags().StringVar(&clientServer, "server", "", "Daemon base URL (default from config)")
	statusCmd.Flags().StringVar(&clientToken, "token", "", "API bearer token (default from config)")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print service diagnostics",
	Long:  "Reports permission level, available memory, block counters, executor\navailability, and gateway breaker state.",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusLocal {
		a, err := buildApp(configPath)
		if err != nil {
			return err
		}
		defer a.Close()
		printJSON(a.statusFn(context.Background(), statusProbe))
		return nil
	}

	c, err := newAPIClient()
	if err != nil {
		return err
	}
	path := "/status"
	if statusProbe {
		path += "?probe=1"
	}
	out, err := c.call(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	printJSON(out["status"])
	return nil
}

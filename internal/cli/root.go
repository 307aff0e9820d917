package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:     "clawgate",
	Short:   "Permission-gated automation gateway for privileged hosts",
	Long:    "Dispatches operator actions through graded permission levels, deny-lists,\nand a confirmation workflow. Runs an async executor queue and a resilient\nupstream gateway client.",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default ~/.clawgate/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

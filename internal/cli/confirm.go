package cli

import (
	"net/http"

	"github.com/spf13/cobra"
)

var confirmScope string

func init() {
	rootCmd.AddCommand(confirmCmd)
	confirmCmd.Flags().StringVar(&confirmScope, "scope", "", "Scope the token was issued for (required)")
	confirmCmd.Flags().StringVar(&clientServer, "server", "", "Daemon base URL (default from config)")
	confirmCmd.Flags().StringVar(&clientToken, "token", "", "API bearer token (default from config)")
	confirmCmd.MarkFlagRequired("scope")
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <confirmation-token>",
	Short: "Approve a pending high-risk action on a running daemon",
	Long:  "Consumes a confirmation token issued by a blocked dispatch and grants a\ntime-boxed approval for its scope. Tokens are single use.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPIClient()
		if err != nil {
			return err
		}
		out, err := c.call(http.MethodPost, "/confirm", map[string]any{
			"token": args[0],
			"scope": confirmScope,
		})
		if err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

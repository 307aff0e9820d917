package cli

import (
	"net/http"

	"github.com/spf13/cobra"
)

var (
	jobExecutor    string
	jobCwd         string
	jobLevel       string
	jobAllowDanger bool
)

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.PersistentFlags().StringVar(&clientServer, "server", "", "Daemon base URL (default from config)")
	jobsCmd.PersistentFlags().StringVar(&clientToken, "token", "", "API bearer token (default from config)")

	jobsSubmitCmd.Flags().StringVar(&jobExecutor, "executor", "codex", "Executor to run (codex or gemini)")
	jobsSubmitCmd.Flags().StringVar(&jobCwd, "cwd", "", "Working directory for the job")
	jobsSubmitCmd.Flags().StringVar(&jobLevel, "level", "", "Permission level to submit at (default from config)")
	jobsSubmitCmd.Flags().BoolVar(&jobAllowDanger, "allow-danger", false, "Run the executor without its sandbox (requires L4)")

	jobsCmd.AddCommand(jobsSubmitCmd, jobsGetCmd, jobsCancelCmd)
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage executor jobs on a running daemon",
}

var jobsSubmitCmd = &cobra.Command{
	Use:   "submit <task>",
	Short: "Queue a background executor job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPIClient()
		if err != nil {
			return err
		}
		level := jobLevel
		if level == "" {
			// Server-side validation still applies; this only sets
			// the requested level.
			level = "L3"
		}
		out, err := c.call(http.MethodPost, "/jobs", map[string]any{
			"executor":         jobExecutor,
			"task":             args[0],
			"cwd":              jobCwd,
			"permission_level": level,
			"allow_danger":     jobAllowDanger,
		})
		if err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

var jobsGetCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Fetch a job record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPIClient()
		if err != nil {
			return err
		}
		out, err := c.call(http.MethodGet, "/jobs/"+args[0], nil)
		if err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a queued or running job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPIClient()
		if err != nil {
			return err
		}
		out, err := c.call(http.MethodPost, "/jobs/"+args[0]+"/cancel", nil)
		if err != nil {
			return err
		}
		printJSON(out)
		return nil
	},
}

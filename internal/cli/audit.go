package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clawgate/internal/audit"
	"github.com/ppiankov/clawgate/internal/config"
)

var (
	auditLogPath string
	replayActor  string
	replayFrom   string
	replayTo     string
	replayFormat string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.PersistentFlags().StringVarP(&auditLogPath, "log", "l", "", "Path to audit log (default from config)")

	auditReplayCmd.Flags().StringVar(&replayActor, "actor", "", "Filter by actor")
	auditReplayCmd.Flags().StringVar(&replayFrom, "from", "", "Start time filter (RFC3339)")
	auditReplayCmd.Flags().StringVar(&replayTo, "to", "", "End time filter (RFC3339)")
	auditReplayCmd.Flags().StringVarP(&replayFormat, "format", "f", "text", "Output format (text|json)")

	auditCmd.AddCommand(auditVerifyCmd, auditReplayCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the hash-chained audit log",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the audit log hash chain",
	Long:  "Recomputes the hash chain from the genesis record and reports the first\nbroken link, if any. Exits nonzero on a broken chain.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveAuditPath()
		if err != nil {
			return err
		}

		result := audit.Verify(path)
		printJSON(result)
		if !result.Valid {
			os.Exit(1)
		}
		return nil
	},
}

var auditReplayCmd = &cobra.Command{
	Use:   "replay [correlation-id]",
	Short: "Render an audit decision timeline",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveAuditPath()
		if err != nil {
			return err
		}

		filter := audit.ReplayFilter{Actor: replayActor}
		if len(args) == 1 {
			filter.CorrelationID = args[0]
		}
		if replayFrom != "" {
			from, err := time.Parse(time.RFC3339, replayFrom)
			if err != nil {
				return fmt.Errorf("invalid --from time %q: %w", replayFrom, err)
			}
			filter.From = from
		}
		if replayTo != "" {
			to, err := time.Parse(time.RFC3339, replayTo)
			if err != nil {
				return fmt.Errorf("invalid --to time %q: %w", replayTo, err)
			}
			filter.To = to
		}

		result, err := audit.Replay(path, filter)
		if err != nil {
			return err
		}

		if replayFormat == "json" {
			out, err := audit.FormatJSON(result)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		}
		fmt.Print(audit.FormatTimeline(result))
		return nil
	},
}

func resolveAuditPath() (string, error) {
	if auditLogPath != "" {
		return auditLogPath, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	return filepath.Clean(cfg.Paths.AuditPath), nil
}

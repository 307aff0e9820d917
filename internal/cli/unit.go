package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clawgate/internal/systemd"
)

var unitCheck bool

func init() {
	rootCmd.AddCommand(unitCmd)
	unitCmd.Flags().BoolVar(&unitCheck, "check", false, "Check the installed unit for hardening drift")
}

var unitCmd = &cobra.Command{
	Use:   "unit",
	Short: "Print or check the hardened systemd unit",
	Long:  "Without flags, prints the recommended clawgate.service template.\nWith --check, compares the installed unit against the required hardening\ndirectives and exits nonzero on drift.",
	RunE:  runUnit,
}

func runUnit(cmd *cobra.Command, args []string) error {
	if !unitCheck {
		fmt.Print(systemd.ServiceTemplate())
		return nil
	}

	path := systemd.FindUnitFile()
	if path == "" {
		return fmt.Errorf("no installed unit found at %v", systemd.UnitFilePaths)
	}

	drift, err := systemd.CheckUnit(path)
	if err != nil {
		return err
	}
	if len(drift) == 0 {
		fmt.Printf("%s: no drift\n", path)
		return nil
	}

	fmt.Fprintf(os.Stderr, "%s: %d drift finding(s)\n", path, len(drift))
	for _, d := range drift {
		fmt.Fprintf(os.Stderr, "  - %s\n", d)
	}
	os.Exit(1)
	return nil
}

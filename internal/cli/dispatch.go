package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clawgate/internal/model"
)

var (
	dispatchArgs  []string
	dispatchScope string
	dispatchYes   bool
)

func init() {
	rootCmd.AddCommand(dispatchCmd)
	dispatchCmd.Flags().StringArrayVar(&dispatchArgs, "arg", nil, "Action argument as key=value (repeatable)")
	dispatchCmd.Flags().StringVar(&dispatchScope, "scope", "", "Confirmation scope (defaults to a fresh session scope)")
	dispatchCmd.Flags().BoolVar(&dispatchYes, "yes", false, "Auto-confirm when the action requires confirmation")
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <action>",
	Short: "Run one action through the permission pipeline",
	Long:  "Dispatches a single action at the configured permission level and prints\nthe JSON result. Blocked actions exit with status 77.",
	Args:  cobra.ExactArgs(1),
	RunE:  runDispatch,
}

func runDispatch(cmd *cobra.Command, args []string) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	actionArgs, err := parseArgPairs(dispatchArgs)
	if err != nil {
		return err
	}
	scope := dispatchScope
	if scope == "" {
		scope = a.scope
	}
	req := model.ActionRequest{Name: args[0], Args: actionArgs, Scope: scope}

	ctx := context.Background()
	res := a.dispatcher.Dispatch(ctx, req, a.level)

	if !res.OK && res.Code == model.CodeConfirmationRequired && dispatchYes {
		if _, err := a.confirms.Confirm(res.Token, scope); err != nil {
			return fmt.Errorf("auto-confirm: %w", err)
		}
		res = a.dispatcher.Dispatch(ctx, req, a.level)
	}

	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))

	if !res.OK {
		os.Exit(77)
	}
	return nil
}

// parseArgPairs turns repeated key=value flags into an argument map.
func parseArgPairs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --arg %q, want key=value", p)
		}
		out[strings.TrimSpace(key)] = value
	}
	return out, nil
}

package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clawgate/internal/gateway"
)

var converseUser string

func init() {
	rootCmd.AddCommand(converseCmd)
	converseCmd.Flags().StringVar(&converseUser, "user", "operator", "Caller identity forwarded to the gateway")
}

var converseCmd = &cobra.Command{
	Use:   "converse <task>",
	Short: "Run one interactive turn through the upstream gateway",
	Long:  "Sends the task to the model gateway and resolves any tool calls through\nthe local dispatcher. Turns are serialized; concurrent invocations in one\nprocess wait their turn.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runConverse,
}

func runConverse(cmd *cobra.Command, args []string) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.queue.Run(ctx)

	a.turns.Acquire()
	defer a.turns.Release()

	reply, err := a.gateway.Converse(ctx, gatewayRequest(a, converseUser, strings.Join(args, " ")))
	if err != nil {
		return fmt.Errorf("converse: %w", err)
	}

	fmt.Println(reply)
	return nil
}

// gatewayRequest builds one turn with the dispatcher's actions
// advertised as tools.
func gatewayRequest(a *app, user, task string) gateway.ConverseRequest {
	actions := a.dispatcher.Actions()
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)

	tools := make([]map[string]any, 0, len(names))
	for _, name := range names {
		tools = append(tools, map[string]any{
			"type":        "function",
			"name":        name,
			"description": fmt.Sprintf("clawgate action %s (requires %s)", name, actions[name]),
		})
	}

	return gateway.ConverseRequest{
		User:         user,
		SystemPrompt: "You are the clawgate operator assistant. Use the provided tools for any host interaction; never assume an action succeeded without calling it.",
		Task:         task,
		Tools:        tools,
	}
}

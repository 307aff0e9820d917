package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	clawmcp "github.com/ppiankov/clawgate/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP tool server for agent integration",
	Long:  "Runs clawgate as an MCP (Model Context Protocol) server over stdio.\nExposes the dispatcher and job queue as typed tools.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.queue.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nshutting down MCP server")
		cancel()
	}()

	srv := clawmcp.New(clawmcp.Config{
		Version: version,
		Level:   a.level,
	}, clawmcp.Deps{
		Dispatcher: a.dispatcher,
		Queue:      a.queue,
		Confirm:    a.confirms,
		Diag:       a.diagDeps(),
	})

	fmt.Fprintf(os.Stderr, "clawgate MCP server on stdio (level %s)\n", a.level)
	return srv.Run(ctx)
}

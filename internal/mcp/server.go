package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/clawgate/internal/confirm"
	"github.com/ppiankov/clawgate/internal/diag"
	"github.com/ppiankov/clawgate/internal/dispatch"
	"github.com/ppiankov/clawgate/internal/jobqueue"
	"github.com/ppiankov/clawgate/internal/permission"
)

// Config holds MCP server configuration.
type Config struct {
	Version string
	// Level is the operator-configured permission ceiling. Tool calls
	// may request a lower level but never exceed it.
	Level permission.Level
}

// Deps are the live components the MCP tools operate on.
type Deps struct {
	Dispatcher *dispatch.Dispatcher
	Queue      *jobqueue.Queue
	Confirm    *confirm.Manager
	Diag       diag.Deps
}

// Server exposes clawgate actions as MCP tools over stdio.
type Server struct {
	mcpServer *mcpsdk.Server
	cfg       Config
	deps      Deps
}

// New creates an MCP server with all clawgate tools registered.
func New(cfg Config, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "clawgate",
			Version: cfg.Version,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// effectiveLevel resolves a requested level against the configured
// ceiling. An empty request runs at the ceiling; a lower request is
// honored, a higher one is clamped.
func (s *Server) effectiveLevel(requested string) permission.Level {
	if requested == "" {
		return s.cfg.Level
	}
	lvl := permission.ParseLevel(requested)
	if lvl > s.cfg.Level {
		return s.cfg.Level
	}
	return lvl
}

// registerTools adds all clawgate tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "claw_dispatch",
		Description: "Dispatch a clawgate action through permission and safety checks. Blocked actions return an error result with the reason and, for confirmable actions, a confirmation token.",
	}, s.handleDispatch)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "claw_confirm",
		Description: "Approve a pending high-risk action scope using a confirmation token from a blocked dispatch.",
	}, s.handleConfirm)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "claw_submit_job",
		Description: "Queue a background executor job. Returns the job id for later status checks.",
	}, s.handleSubmitJob)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "claw_job_status",
		Description: "Fetch the state and result of a queued or finished executor job.",
	}, s.handleJobStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "claw_cancel_job",
		Description: "Cancel a queued or running executor job.",
	}, s.handleCancelJob)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "claw_status",
		Description: "Report service diagnostics: permission level, memory, block counters, queue and gateway state.",
	}, s.handleStatus)
}

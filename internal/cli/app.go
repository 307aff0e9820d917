package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/clawgate/internal/alert"
	"github.com/ppiankov/clawgate/internal/audit"
	"github.com/ppiankov/clawgate/internal/blockcount"
	"github.com/ppiankov/clawgate/internal/config"
	"github.com/ppiankov/clawgate/internal/confirm"
	"github.com/ppiankov/clawgate/internal/denylist"
	"github.com/ppiankov/clawgate/internal/diag"
	"github.com/ppiankov/clawgate/internal/dispatch"
	"github.com/ppiankov/clawgate/internal/gateway"
	"github.com/ppiankov/clawgate/internal/ident"
	"github.com/ppiankov/clawgate/internal/jobqueue"
	"github.com/ppiankov/clawgate/internal/jobstore"
	"github.com/ppiankov/clawgate/internal/model"
	"github.com/ppiankov/clawgate/internal/permission"
	"github.com/ppiankov/clawgate/internal/redact"
)

// app wires the full local assembly: config, audit log, job queue,
// dispatcher, and gateway client. Used by serve, mcp, and the one-shot
// commands that run actions in-process.
type app struct {
	cfg        *config.Config
	level      permission.Level
	scope      string
	auditLog   *audit.Log
	store      *jobstore.Store
	queue      *jobqueue.Queue
	confirms   *confirm.Manager
	counters   *blockcount.Counters
	masker     *redact.Masker
	alerts     *alert.Dispatcher
	gateway    *gateway.Client
	dispatcher *dispatch.Dispatcher
	turns      *dispatch.TurnGate
}

func buildApp(path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureRuntimePaths(); err != nil {
		return nil, err
	}

	auditLog, err := audit.Open(cfg.Paths.AuditPath)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	store, err := jobstore.Open(cfg.Paths.DBPath)
	if err != nil {
		auditLog.Close()
		return nil, fmt.Errorf("open job store: %w", err)
	}

	a := &app{
		cfg:      cfg,
		level:    permission.ParseLevel(cfg.PermissionLevel),
		scope:    ident.NewSessionScope(),
		auditLog: auditLog,
		store:    store,
		confirms: confirm.NewManager(time.Duration(cfg.Confirm.TTLSeconds) * time.Second),
		counters: blockcount.New(),
		alerts:   alert.NewDispatcher(cfg.Alerts),
		turns:    dispatch.NewTurnGate(cfg.MaxParallelTurns),
	}

	if cfg.Masking.Enabled {
		a.masker = redact.NewMasker(cfg.Masking.Patterns)
	} else {
		a.masker = redact.NewPassthrough()
	}

	a.queue = jobqueue.New(store, jobqueue.Options{
		CodexBin:           cfg.Executor.CodexBin,
		GeminiBin:          cfg.Executor.GeminiBin,
		Timeout:            time.Duration(cfg.Executor.TimeoutSeconds) * time.Second,
		MaxTaskChars:       cfg.Executor.MaxTaskChars,
		AllowGlobalWorkdir: cfg.Executor.AllowGlobalWorkdir,
		AllowedWorkdirs:    cfg.Executor.AllowedWorkdirs,
	}, a.masker, auditLog, a.alerts, a.counters)

	dl, err := denylist.Load(cfg.Paths.DenylistPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cli: denylist %s unreadable, using defaults: %v\n", cfg.Paths.DenylistPath, err)
		dl = denylist.NewDefault()
	}

	a.dispatcher = dispatch.New(dispatch.Config{
		SelfName:           cfg.SelfName,
		ConfirmEnabled:     cfg.Confirm.Enabled,
		ToolTimeout:        time.Duration(cfg.ToolTimeoutSeconds) * time.Second,
		AdminUsers:         cfg.AdminUsers,
		WhitelistUsers:     cfg.WhitelistUsers,
		WhitelistGroups:    cfg.WhitelistGroups,
		SilentUnauthorized: cfg.SilentUnauthorized,
	}, dispatch.Deps{
		Caller:   ident.CurrentCaller(),
		Denylist: dl,
		Confirms: a.confirms,
		AuditLog: auditLog,
		Counters: a.counters,
		Masker:   a.masker,
		Alerts:   a.alerts,
		Queue:    a.queue,
		StatusFn: func(ctx context.Context) any {
			return diag.BuildReport(ctx, a.diagDeps(), false)
		},
	})

	a.gateway = gateway.NewClient(gateway.Config{
		PrimaryURL:  cfg.Gateway.PrimaryURL,
		BackupURLs:  cfg.Gateway.BackupURLs,
		BearerToken: cfg.Gateway.BearerToken,
		AgentID:     cfg.Gateway.AgentID,
		Timeout:     time.Duration(cfg.Gateway.TimeoutSeconds) * time.Second,
	}, a.counters, a.masker, a.runGatewayTool)

	return a, nil
}

// runGatewayTool routes a gateway tool call through the dispatcher at
// the configured level, bound to this process's session scope.
func (a *app) runGatewayTool(ctx context.Context, name string, args map[string]any) any {
	return a.dispatcher.Dispatch(ctx, model.ActionRequest{
		Name:  name,
		Args:  args,
		Scope: a.scope,
	}, a.level)
}

func (a *app) diagDeps() diag.Deps {
	return diag.Deps{
		Service:        "clawgate",
		Version:        version,
		Level:          a.level,
		Gateway:        a.gateway,
		Counters:       a.counters,
		Queue:          a.queue,
		Confirm:        a.confirms,
		Denylist:       a.dispatcher.DenylistPatterns,
		TurnConfigured: a.turns.Configured(),
		TurnEffective:  a.turns.Effective(),
	}
}

func (a *app) statusFn(ctx context.Context, probe bool) *diag.Report {
	return diag.BuildReport(ctx, a.diagDeps(), probe)
}

func (a *app) Close() {
	a.store.Close()
	a.auditLog.Close()
}

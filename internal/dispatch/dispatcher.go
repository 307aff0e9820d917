// Package dispatch maps named actions to handlers behind the full
// policy pipeline: deny-list, permission level, memory pressure,
// per-argument risk classification, and the high-risk confirmation
// gate. Every dispatch attempt lands in the audit log, including the
// ones that never reach a handler.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ppiankov/clawgate/internal/alert"
	"github.com/ppiankov/clawgate/internal/audit"
	"github.com/ppiankov/clawgate/internal/blockcount"
	"github.com/ppiankov/clawgate/internal/confirm"
	"github.com/ppiankov/clawgate/internal/denylist"
	"github.com/ppiankov/clawgate/internal/diag"
	"github.com/ppiankov/clawgate/internal/ident"
	"github.com/ppiankov/clawgate/internal/jobqueue"
	"github.com/ppiankov/clawgate/internal/model"
	"github.com/ppiankov/clawgate/internal/permission"
	"github.com/ppiankov/clawgate/internal/redact"
)

// Handler runs one action. The payload becomes ActionResult.Payload.
type Handler func(ctx context.Context, req model.ActionRequest, effective permission.Level) (map[string]any, error)

// ToolFunc is a named tool invocable through exec_tool.
type ToolFunc func(ctx context.Context, args map[string]any) (map[string]any, error)

// HandlerError carries a stable error code out of a handler.
type HandlerError struct {
	Code    string
	Message string
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// entry is one row of the action registry.
type entry struct {
	handler  Handler
	minLevel permission.Level
	category string
	risk     func(req model.ActionRequest) (bool, string)
	heavy    bool
}

// Config holds dispatcher tunables. The three allow lists close the
// gate when any of them is non-empty: only listed users, or members of
// listed groups, may dispatch at all.
type Config struct {
	SelfName           string
	ConfirmEnabled     bool
	ToolTimeout        time.Duration
	AdminUsers         []string
	WhitelistUsers     []string
	WhitelistGroups    []string
	SilentUnauthorized bool
}

// Dispatcher owns the action registry and the policy pipeline state.
// Safe for concurrent use; the denylist pointer is swappable for hot
// reload.
type Dispatcher struct {
	cfg      Config
	caller   ident.Caller
	confirms *confirm.Manager
	auditLog *audit.Log
	counters *blockcount.Counters
	masker   *redact.Masker
	alerts   *alert.Dispatcher
	queue    *jobqueue.Queue

	// statusFn produces the diagnostics payload for read_status.
	statusFn func(ctx context.Context) any
	// memFn reports available memory in MB, -1 for unknown.
	memFn func() int
	// euidFn reports the effective uid of the hosting process.
	euidFn func() int

	mu       sync.Mutex
	dl       *denylist.Denylist
	tools    map[string]ToolFunc
	registry map[string]entry
}

// Deps are the collaborators a Dispatcher needs. Queue, alerts, audit
// log, and statusFn may be nil; the matching actions then report
// unavailability instead of panicking.
type Deps struct {
	Caller   ident.Caller
	Denylist *denylist.Denylist
	Confirms *confirm.Manager
	AuditLog *audit.Log
	Counters *blockcount.Counters
	Masker   *redact.Masker
	Alerts   *alert.Dispatcher
	Queue    *jobqueue.Queue
	StatusFn func(ctx context.Context) any
}

// New builds a Dispatcher with the full action registry.
func New(cfg Config, deps Deps) *Dispatcher {
	if cfg.SelfName == "" {
		cfg.SelfName = "clawgate"
	}
	if cfg.ToolTimeout < 5*time.Second {
		cfg.ToolTimeout = 5 * time.Second
	}
	if deps.Denylist == nil {
		deps.Denylist = denylist.NewDefault()
	}
	if deps.Counters == nil {
		deps.Counters = blockcount.New()
	}
	if deps.Masker == nil {
		deps.Masker = redact.NewMasker(nil)
	}
	if deps.Confirms == nil {
		deps.Confirms = confirm.NewManager(0)
	}

	d := &Dispatcher{
		cfg:      cfg,
		caller:   deps.Caller,
		confirms: deps.Confirms,
		auditLog: deps.AuditLog,
		counters: deps.Counters,
		masker:   deps.Masker,
		alerts:   deps.Alerts,
		queue:    deps.Queue,
		statusFn: deps.StatusFn,
		memFn:    diag.AvailableMemMB,
		euidFn:   os.Geteuid,
		dl:       deps.Denylist,
		tools:    make(map[string]ToolFunc),
	}

	d.registry = map[string]entry{
		"read_status":  {handler: d.handleReadStatus, minLevel: permission.L1, category: "read"},
		"read_file":    {handler: d.handleReadFile, minLevel: permission.L1, category: "read"},
		"list_dir":     {handler: d.handleListDir, minLevel: permission.L1, category: "read"},
		"exec_command": {handler: d.handleExecCommand, minLevel: permission.L2, category: "command", risk: riskExecCommand, heavy: true},
		"exec_tool":    {handler: d.handleExecTool, minLevel: permission.L2, category: "tool", risk: riskExecTool},
		"host_exec":    {handler: d.handleHostExec, minLevel: permission.L3, category: "shell", risk: riskHostExec, heavy: true},
		"host_file_op": {handler: d.handleHostFileOp, minLevel: permission.L3, category: "file", risk: riskHostFileOp},
		"submit_job":   {handler: d.handleSubmitJob, minLevel: permission.L3, category: "job", heavy: true},
		"job_status":   {handler: d.handleJobStatus, minLevel: permission.L1, category: "job"},
		"cancel_job":   {handler: d.handleCancelJob, minLevel: permission.L2, category: "job"},
	}
	return d
}

// authorized reports whether the resolved caller passes the configured
// allow lists. With no lists configured the gate stays open.
func (d *Dispatcher) authorized() bool {
	if len(d.cfg.AdminUsers) == 0 && len(d.cfg.WhitelistUsers) == 0 && len(d.cfg.WhitelistGroups) == 0 {
		return true
	}
	if d.caller.User != "" {
		if hasString(d.cfg.AdminUsers, d.caller.User) || hasString(d.cfg.WhitelistUsers, d.caller.User) {
			return true
		}
	}
	for _, g := range d.caller.Groups {
		if hasString(d.cfg.WhitelistGroups, g) {
			return true
		}
	}
	return false
}

func hasString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// SwapDenylist replaces the active denylist (hot reload).
func (d *Dispatcher) SwapDenylist(dl *denylist.Denylist) {
	if dl == nil {
		return
	}
	d.mu.Lock()
	d.dl = dl
	d.mu.Unlock()
}

func (d *Dispatcher) denylist() *denylist.Denylist {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dl
}

// DenylistPatterns exposes the active deny patterns for diagnostics.
func (d *Dispatcher) DenylistPatterns() map[string]any {
	return d.denylist().ToMap()
}

// RegisterTool makes a named tool invocable through exec_tool.
func (d *Dispatcher) RegisterTool(name string, fn ToolFunc) {
	d.mu.Lock()
	d.tools[name] = fn
	d.mu.Unlock()
}

func (d *Dispatcher) tool(name string) (ToolFunc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn, ok := d.tools[name]
	return fn, ok
}

// Actions returns the registered action names and their minimum levels.
func (d *Dispatcher) Actions() map[string]string {
	out := make(map[string]string, len(d.registry))
	for name, e := range d.registry {
		out[name] = e.minLevel.String()
	}
	return out
}

// Dispatch runs one action through the policy pipeline. It never
// panics and never returns a Go error: every outcome is an
// ActionResult, and every attempt is audited.
func (d *Dispatcher) Dispatch(ctx context.Context, req model.ActionRequest, effective permission.Level) model.ActionResult {
	start := time.Now()

	// 1. Caller allow lists. Any configured list closes the gate for
	// everyone not on one; silent mode withholds the refusal reason.
	if !d.authorized() {
		d.counters.Inc(blockcount.Unauthorized)
		res := model.ActionResult{OK: false, Code: model.CodeUnauthorized}
		if !d.cfg.SilentUnauthorized {
			res.Error = fmt.Sprintf("user %q is not on an allow list", d.caller.User)
		}
		d.finish(req, effective, "", res, false, false, start)
		return res
	}

	// 2. Deny-listed action names short-circuit everything, including
	// the confirmation state.
	if d.denylist().IsBlockedAction(req.Name) {
		d.counters.Inc(blockcount.BlacklistAction)
		res := model.ActionResult{
			OK:    false,
			Code:  model.CodeBlacklistAction,
			Error: fmt.Sprintf("action %q is deny-listed", req.Name),
		}
		d.finish(req, effective, "", res, false, false, start)
		return res
	}

	// 3. Unknown action.
	e, ok := d.registry[req.Name]
	if !ok {
		res := model.ActionResult{
			OK:    false,
			Code:  model.CodeUnknownAction,
			Error: fmt.Sprintf("unknown action %q", req.Name),
		}
		d.finish(req, effective, "", res, false, false, start)
		return res
	}

	// 4. Memory pressure guards. Unknown availability (-1) skips both.
	if mem := d.memFn(); mem >= 0 {
		if mem < diag.MemForceReadOnlyMB && effective > permission.L1 {
			d.counters.Inc(blockcount.MemForceReadOnly)
			effective = permission.L1
		} else if mem < diag.MemHeavyRejectMB && e.heavy {
			d.counters.Inc(blockcount.MemHeavyReject)
			res := model.ActionResult{
				OK:    false,
				Code:  blockcount.MemHeavyReject,
				Error: fmt.Sprintf("available memory %dMB is below %dMB, heavy action refused", mem, diag.MemHeavyRejectMB),
			}
			d.finish(req, effective, e.category, res, false, false, start)
			return res
		}
	}

	// 5. Permission level.
	if !permission.AtLeast(effective, e.minLevel) {
		d.counters.Inc(blockcount.PermissionDeny)
		res := model.ActionResult{
			OK:    false,
			Code:  model.CodePermissionDeny,
			Error: fmt.Sprintf("action %q requires %s, caller has %s", req.Name, e.minLevel, effective),
		}
		d.finish(req, effective, e.category, res, false, false, start)
		return res
	}

	// 6. Risk classification over the actual arguments.
	highRisk := false
	riskReason := ""
	if e.risk != nil {
		highRisk, riskReason = e.risk(req)
	}

	// 7. Confirmation gate. A live scope approval silences it.
	confirmed := false
	if highRisk && d.cfg.ConfirmEnabled {
		if d.confirms.IsApproved(req.Scope) {
			confirmed = true
		} else {
			token, expires := d.confirms.Issue(req.Scope, d.preview(req))
			d.counters.Inc(blockcount.ConfirmRequired)
			res := model.ActionResult{
				OK:    false,
				Code:  model.CodeConfirmationRequired,
				Token: token,
				Error: fmt.Sprintf("high-risk action (%s) requires confirmation: confirm token %s before %s",
					riskReason, token, expires.UTC().Format(audit.TimestampFormat)),
			}
			d.finish(req, effective, e.category, res, true, false, start)
			return res
		}
	}

	// 8. Handler under a bounded timeout, panics captured.
	res := d.invoke(ctx, e, req, effective)
	d.finish(req, effective, e.category, res, highRisk, confirmed, start)
	return res
}

func (d *Dispatcher) invoke(ctx context.Context, e entry, req model.ActionRequest, effective permission.Level) (res model.ActionResult) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "dispatch: panic in %s: %v\n", req.Name, r)
			res = model.ActionResult{
				OK:    false,
				Code:  model.CodeInternalError,
				Error: fmt.Sprintf("handler panic: %v", r),
			}
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, d.cfg.ToolTimeout)
	defer cancel()

	payload, err := e.handler(runCtx, req, effective)
	if err != nil {
		return model.ActionResult{OK: false, Code: errorCode(err), Error: d.masker.Mask(err.Error())}
	}
	return model.ActionResult{OK: true, Payload: payload}
}

// errorCode extracts a stable code from typed errors, defaulting to
// internal_error.
func errorCode(err error) string {
	var he *HandlerError
	if errors.As(err, &he) {
		return he.Code
	}
	var qe *jobqueue.Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return model.CodeInternalError
}

// finish writes the one audit record per dispatch attempt and fires
// deny alerts. Early deny paths land here too.
func (d *Dispatcher) finish(req model.ActionRequest, effective permission.Level, category string, res model.ActionResult, highRisk, confirmed bool, start time.Time) {
	status := audit.StatusOK
	switch {
	case res.OK:
	case res.Code == model.CodeInternalError:
		status = audit.StatusError
	default:
		status = audit.StatusBlocked
	}

	if d.auditLog != nil {
		if err := d.auditLog.Record(audit.AuditEntry{
			Actor:          effective.String(),
			Scope:          req.Scope,
			ActionType:     req.Name,
			ActionCategory: category,
			ParamsSummary:  d.preview(req),
			HighRisk:       highRisk,
			Confirmed:      confirmed,
			Status:         status,
			LatencyMS:      time.Since(start).Milliseconds(),
			Error:          res.Error,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "dispatch: audit write failed: %v\n", err)
		}
	}

	if d.alerts != nil && status != audit.StatusOK {
		event := alert.EventBlocked
		switch {
		case status == audit.StatusError:
			event = alert.EventError
		case res.Code == model.CodeConfirmationRequired:
			event = alert.EventConfirmRequired
		}
		d.alerts.Dispatch(alert.AlertEvent{
			Timestamp:     time.Now().UTC().Format(audit.TimestampFormat),
			Event:         event,
			Action:        req.Name,
			Actor:         req.Scope,
			Reason:        res.Code,
			Level:         effective.String(),
			Detail:        d.masker.Mask(res.Error),
			CorrelationID: req.StringArg("correlation_id"),
		})
	}
}

// preview renders the request as masked, truncated text for audit
// records and confirmation prompts. Values under well-known secret
// argument keys are dropped wholesale.
func (d *Dispatcher) preview(req model.ActionRequest) string {
	return req.Name + " " + d.masker.SummarizeArgs(req.Args, 200)
}

package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ppiankov/clawgate/internal/blockcount"
	"github.com/ppiankov/clawgate/internal/model"
	"github.com/ppiankov/clawgate/internal/permission"
	"github.com/ppiankov/clawgate/internal/redact"
)

const maxCommandOutput = 4000

// handleExecCommand runs a managed service command through the shell.
// The command denylist applies to the literal text.
func (d *Dispatcher) handleExecCommand(ctx context.Context, req model.ActionRequest, _ permission.Level) (map[string]any, error) {
	command := strings.TrimSpace(req.StringArg("command"))
	if command == "" {
		return nil, &HandlerError{model.CodeInternalError, "command argument is required"}
	}

	if d.denylist().IsBlockedCommand(command) {
		d.counters.Inc(blockcount.BlacklistCommand)
		return nil, &HandlerError{model.CodeBlacklistCommand,
			fmt.Sprintf("command %q is deny-listed", firstWord(command))}
	}

	cmd := exec.CommandContext(ctx, "sh", "-lc", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, &HandlerError{model.CodeExecutorTimeout, "command timed out"}
	}
	exitCode := 0
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("run command: %w", err)
		}
		exitCode = exitErr.ExitCode()
	}

	return map[string]any{
		"stdout":    d.masker.Mask(clip(stdout.String(), maxCommandOutput)),
		"stderr":    d.masker.Mask(clip(stderr.String(), maxCommandOutput)),
		"exit_code": exitCode,
	}, nil
}

// handleExecTool invokes a registered named tool. Tool and plugin
// denylists apply, and a tool that would re-enter the conversation
// turn is refused outright.
func (d *Dispatcher) handleExecTool(ctx context.Context, req model.ActionRequest, _ permission.Level) (map[string]any, error) {
	name := strings.TrimSpace(req.StringArg("tool"))
	if name == "" {
		return nil, &HandlerError{model.CodeInternalError, "tool argument is required"}
	}

	dl := d.denylist()
	if plugin, _, found := strings.Cut(name, "."); found && dl.IsBlockedPlugin(plugin) {
		d.counters.Inc(blockcount.BlacklistPlugin)
		return nil, &HandlerError{model.CodeBlacklistPlugin,
			fmt.Sprintf("plugin %q is deny-listed", plugin)}
	}
	if dl.IsBlockedTool(name) {
		d.counters.Inc(blockcount.BlacklistTool)
		return nil, &HandlerError{model.CodeBlacklistTool,
			fmt.Sprintf("tool %q is deny-listed", name)}
	}
	if name == d.cfg.SelfName || strings.Contains(strings.ToLower(name), "assistant") {
		d.counters.Inc(blockcount.AssistantRecursion)
		return nil, &HandlerError{blockcount.AssistantRecursion,
			fmt.Sprintf("tool %q would re-enter the conversation turn", name)}
	}

	fn, ok := d.tool(name)
	if !ok {
		return nil, &HandlerError{model.CodeUnknownAction,
			fmt.Sprintf("no tool %q registered", name)}
	}

	toolArgs, _ := req.Args["args"].(map[string]any)
	return fn(ctx, toolArgs)
}

func firstWord(s string) string {
	if head, _, found := strings.Cut(s, " "); found {
		return head
	}
	return s
}

func clip(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) > limit {
		return redact.Clip(s, limit) + "\n… (truncated)"
	}
	return s
}

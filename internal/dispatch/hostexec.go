package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"os/user"
	"strings"
	"time"

	"github.com/ppiankov/clawgate/internal/blockcount"
	"github.com/ppiankov/clawgate/internal/model"
	"github.com/ppiankov/clawgate/internal/permission"
)

const (
	hostExecDefaultTimeout = 20
	hostExecMaxTimeout     = 120
)

// unprivilegedAccounts are tried in order when a root-running process
// must drop privileges before executing a shell command for a caller
// below L4.
var unprivilegedAccounts = []string{"nobody", "daemon"}

// handleHostExec runs an arbitrary shell command on the host. The
// shell denylist applies to the literal text; elevated execution
// requires L4; a root-running process drops privileges for lower
// callers and refuses to run if it cannot.
func (d *Dispatcher) handleHostExec(ctx context.Context, req model.ActionRequest, effective permission.Level) (map[string]any, error) {
	command := strings.TrimSpace(req.StringArg("command"))
	if command == "" {
		return nil, &HandlerError{model.CodeInternalError, "command argument is required"}
	}

	if blocked, pattern := d.denylist().MatchShell(command); blocked {
		d.counters.Inc(blockcount.BlacklistShell)
		return nil, &HandlerError{model.CodeBlacklistShell,
			fmt.Sprintf("command matches deny pattern %q", pattern)}
	}

	asRoot := req.BoolArg("as_root", false)
	if asRoot && !permission.AtLeast(effective, permission.L4) {
		d.counters.Inc(blockcount.PermissionDeny)
		return nil, &HandlerError{model.CodePermissionDeny,
			fmt.Sprintf("as_root execution requires L4, caller has %s", effective)}
	}

	argv, err := d.buildShellArgv(command, asRoot, effective)
	if err != nil {
		return nil, err
	}

	timeout := req.IntArg("timeout", hostExecDefaultTimeout)
	if timeout < 1 {
		timeout = 1
	}
	if timeout > hostExecMaxTimeout {
		timeout = hostExecMaxTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	if cwd := req.StringArg("cwd"); cwd != "" {
		cmd.Dir = cwd
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, &HandlerError{model.CodeExecutorTimeout,
			fmt.Sprintf("command killed after %ds", timeout)}
	}
	exitCode := 0
	if runErr != nil {
		exitErr, ok := runErr.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("start command: %w", runErr)
		}
		exitCode = exitErr.ExitCode()
	}

	return map[string]any{
		"stdout":    d.masker.Mask(clip(stdout.String(), maxCommandOutput)),
		"stderr":    d.masker.Mask(clip(stderr.String(), maxCommandOutput)),
		"exit_code": exitCode,
	}, nil
}

// buildShellArgv decides how the shell command is wrapped based on the
// process euid and the caller's level.
func (d *Dispatcher) buildShellArgv(command string, asRoot bool, effective permission.Level) ([]string, error) {
	euid := d.euidFn()

	switch {
	case asRoot && euid != 0:
		// Elevation already gated to L4 by the caller check.
		return []string{"sudo", "-n", "sh", "-lc", command}, nil

	case euid == 0 && !permission.AtLeast(effective, permission.L4):
		// A root-running host changes the blast radius of the same
		// nominal permission: wrap the command to an unprivileged
		// account, and fail closed if no mechanism exists.
		argv := dropPrivilegeArgv(command)
		if argv == nil {
			d.counters.Inc(blockcount.RootRuntimeGuard)
			return nil, &HandlerError{model.CodePermissionDeny,
				"process runs as root and no privilege-drop mechanism (runuser/su/sudo with an unprivileged account) is available"}
		}
		return argv, nil

	default:
		return []string{"sh", "-lc", command}, nil
	}
}

// dropPrivilegeArgv wraps command to run as the first existing
// unprivileged account, trying runuser, then su, then sudo. Returns
// nil when nothing usable exists.
func dropPrivilegeArgv(command string) []string {
	account := ""
	for _, name := range unprivilegedAccounts {
		u, err := user.Lookup(name)
		if err != nil || u.Uid == "0" {
			continue
		}
		account = name
		break
	}
	if account == "" {
		return nil
	}

	if _, err := exec.LookPath("runuser"); err == nil {
		return []string{"runuser", "-u", account, "--", "sh", "-lc", command}
	}
	if _, err := exec.LookPath("su"); err == nil {
		return []string{"su", "-s", "/bin/sh", account, "-c", command}
	}
	if _, err := exec.LookPath("sudo"); err == nil {
		return []string{"sudo", "-n", "-u", account, "sh", "-lc", command}
	}
	return nil
}

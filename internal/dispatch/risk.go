package dispatch

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/clawgate/internal/model"
)

// destructiveShell matches command text with destructive intent. Risk
// is judged against the literal arguments, not the action name alone.
var destructiveShell = regexp.MustCompile(
	`(?i)(\brm\b|\bmkfs\b|\bdd\b|\bshutdown\b|\breboot\b|\bpoweroff\b|\buserdel\b|\bgroupdel\b)`)

// riskHostExec flags elevated or destructive shell requests.
func riskHostExec(req model.ActionRequest) (bool, string) {
	if req.BoolArg("as_root", false) {
		return true, "as-root shell execution"
	}
	if m := destructiveShell.FindString(req.StringArg("command")); m != "" {
		return true, fmt.Sprintf("destructive keyword %q", strings.TrimSpace(m))
	}
	return false, ""
}

// riskHostFileOp flags mutating file operations.
func riskHostFileOp(req model.ActionRequest) (bool, string) {
	switch req.StringArg("op") {
	case "write", "append", "delete":
		return true, fmt.Sprintf("file %s", req.StringArg("op"))
	}
	return false, ""
}

var riskyCommandWords = []string{"reload", "restart", "stop", "kill", "disable", "remove", "uninstall"}

// riskExecCommand flags service-management commands that change state.
func riskExecCommand(req model.ActionRequest) (bool, string) {
	cmd := strings.ToLower(req.StringArg("command"))
	for _, w := range riskyCommandWords {
		if strings.Contains(cmd, w) {
			return true, fmt.Sprintf("state-changing command (%s)", w)
		}
	}
	return false, ""
}

var riskyToolWords = []string{"exec", "shell", "file", "delete", "write", "rm", "sudo"}

// riskExecTool flags tools whose names suggest host mutation.
func riskExecTool(req model.ActionRequest) (bool, string) {
	name := strings.ToLower(req.StringArg("tool"))
	for _, w := range riskyToolWords {
		if strings.Contains(name, w) {
			return true, fmt.Sprintf("tool name contains %q", w)
		}
	}
	return false, ""
}

package jobqueue

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ppiankov/clawgate/internal/model"
)

// Known executor names.
const (
	ExecutorCodex  = "codex"
	ExecutorGemini = "gemini"
)

// executorBin maps an executor name to its configured binary.
func (q *Queue) executorBin(name string) (string, error) {
	switch strings.TrimSpace(name) {
	case ExecutorCodex:
		return q.opts.CodexBin, nil
	case ExecutorGemini:
		return q.opts.GeminiBin, nil
	default:
		return "", &Error{Code: model.CodeExecutorNotAvailable,
			Message: fmt.Sprintf("unknown executor %q (known: %s, %s)", name, ExecutorCodex, ExecutorGemini)}
	}
}

// ExecutorsAvailable probes each configured executor binary on PATH.
func (q *Queue) ExecutorsAvailable() map[string]bool {
	out := make(map[string]bool, 2)
	for name, bin := range map[string]string{
		ExecutorCodex:  q.opts.CodexBin,
		ExecutorGemini: q.opts.GeminiBin,
	} {
		_, err := exec.LookPath(bin)
		out[name] = err == nil
	}
	return out
}

// buildCommand assembles the executor invocation for a job. Stdout and
// stderr are merged into one buffer; job results carry a single text.
func (q *Queue) buildCommand(ctx context.Context, job *model.Job) (*exec.Cmd, *bytes.Buffer, error) {
	bin, err := q.executorBin(job.Executor)
	if err != nil {
		return nil, nil, err
	}

	var args []string
	switch job.Executor {
	case ExecutorCodex:
		args = []string{"exec", "--skip-git-repo-check", "--cd", job.Cwd, "--sandbox", "workspace-write"}
		if job.AllowDanger {
			args = append(args, "--dangerously-bypass-approvals-and-sandbox")
		}
		args = append(args, job.Task)
	case ExecutorGemini:
		args = []string{"--prompt", job.Task}
		if job.AllowDanger {
			args = append(args, "--yolo")
		}
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = job.Cwd

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	return cmd, &output, nil
}

package jobqueue

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ppiankov/clawgate/internal/alert"
	"github.com/ppiankov/clawgate/internal/audit"
	"github.com/ppiankov/clawgate/internal/ident"
	"github.com/ppiankov/clawgate/internal/model"
	"github.com/ppiankov/clawgate/internal/redact"
)

// Run drains the queue with a single worker until ctx is cancelled.
// One failing job never stops the loop.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-q.ch:
			q.runOne(ctx, jobID)
		}
	}
}

func (q *Queue) runOne(ctx context.Context, jobID string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "worker: panic in job %s: %v\n", jobID, r)
			if job, err := q.store.Transition(ctx, jobID, model.JobFailed, func(j *model.Job) {
				j.FinishedAt = ident.UTCNowISO()
				j.ErrorCode = model.CodeInternalError
				j.Error = fmt.Sprintf("panic: %v", r)
			}); err == nil {
				q.recordTerminal(job)
			}
		}
		q.forget(jobID)
	}()

	job, err := q.store.Get(ctx, jobID)
	if err != nil {
		// Vanished or canceled-and-evicted between enqueue and drain.
		return
	}
	if job.State != model.JobQueued {
		// Cancel on a queued job always prevents it from running.
		return
	}

	job, err = q.store.Transition(ctx, jobID, model.JobRunning, func(j *model.Job) {
		j.StartedAt = ident.UTCNowISO()
	})
	if err != nil {
		// A concurrent cancel won the transition.
		return
	}
	fmt.Fprintf(os.Stderr, "worker: job %s started (%s)\n", jobID, job.Executor)

	outcome := q.execute(ctx, job)

	finished, err := q.store.Transition(ctx, jobID, outcome.state, func(j *model.Job) {
		j.FinishedAt = ident.UTCNowISO()
		j.ResultText = outcome.resultText
		j.ErrorCode = outcome.errorCode
		j.Error = outcome.errorText
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: job %s terminal write failed: %v\n", jobID, err)
		return
	}
	fmt.Fprintf(os.Stderr, "worker: job %s finished: %s\n", jobID, finished.State)
	q.recordTerminal(finished)
}

type outcome struct {
	state      model.JobState
	resultText string
	errorCode  string
	errorText  string
}

// execute runs the job's external command under the configured
// timeout and resolves the cancel-vs-exit race. The cancel intent is
// read exactly once, at the moment the process exit is observed; a
// cancel recorded before that instant wins, anything later loses to
// the natural result.
func (q *Queue) execute(ctx context.Context, job *model.Job) outcome {
	runCtx, cancel := context.WithTimeout(ctx, q.opts.Timeout)
	defer cancel()

	cmd, output, err := q.buildCommand(runCtx, job)
	if err != nil {
		return outcome{state: model.JobFailed, errorCode: model.CodeExecutorNotAvailable, errorText: err.Error()}
	}

	if err := cmd.Start(); err != nil {
		return outcome{
			state:     model.JobFailed,
			errorCode: model.CodeExecutorStartFailed,
			errorText: fmt.Sprintf("start %s: %v", job.Executor, err),
		}
	}
	q.trackProcess(job.JobID, cmd.Process)

	waitErr := cmd.Wait()
	exitedAt := time.Now()
	canceled := q.cancelRequestedBefore(job.JobID, exitedAt)

	result := q.masker.Mask(truncate(strings.TrimSpace(output.String()), maxResultChars))

	switch {
	case canceled:
		return outcome{
			state:      model.JobCanceled,
			resultText: result,
			errorCode:  model.CodeCanceledByUser,
			errorText:  "canceled by user",
		}
	case runCtx.Err() == context.DeadlineExceeded:
		return outcome{
			state:      model.JobFailed,
			resultText: result,
			errorCode:  model.CodeExecutorTimeout,
			errorText:  fmt.Sprintf("killed after %s", q.opts.Timeout),
		}
	case waitErr != nil:
		code := -1
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		return outcome{
			state:      model.JobFailed,
			resultText: result,
			errorCode:  model.CodeExecutorNonzeroExit,
			errorText:  fmt.Sprintf("exit code %d", code),
		}
	default:
		return outcome{state: model.JobSucceeded, resultText: result}
	}
}

// recordTerminal writes the single audit record for a terminal
// transition and fires a failure alert when warranted.
func (q *Queue) recordTerminal(job *model.Job) {
	latency := int64(0)
	if start, err := time.Parse(audit.TimestampFormat, job.StartedAt); err == nil {
		if end, err := time.Parse(audit.TimestampFormat, job.FinishedAt); err == nil {
			latency = end.Sub(start).Milliseconds()
		}
	}

	status := audit.StatusOK
	switch job.State {
	case model.JobFailed:
		status = audit.StatusError
	case model.JobCanceled:
		status = audit.StatusCanceled
	}

	if q.auditLog != nil {
		if err := q.auditLog.Record(audit.AuditEntry{
			CorrelationID:  job.CorrelationID,
			Actor:          "worker",
			Scope:          job.JobID,
			ActionType:     "executor_job",
			ActionCategory: job.Executor,
			ParamsSummary:  q.masker.Mask(truncate(job.Task, 200)),
			HighRisk:       job.AllowDanger,
			Status:         status,
			LatencyMS:      latency,
			Error:          job.Error,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "worker: audit write failed: %v\n", err)
		}
	}

	if q.alerts != nil && job.State == model.JobFailed {
		q.alerts.Dispatch(alert.AlertEvent{
			Timestamp:     ident.UTCNowISO(),
			CorrelationID: job.CorrelationID,
			Event:         alert.EventJobFailed,
			Action:        "executor_job",
			Actor:         job.Executor,
			Reason:        job.ErrorCode,
			Level:         job.PermissionLevel,
			Detail:        q.masker.Mask(truncate(job.Error, 500)),
		})
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return redact.Clip(s, limit) + "\n… (truncated)"
}

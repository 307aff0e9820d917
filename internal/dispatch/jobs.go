package dispatch

import (
	"context"
	"encoding/json"

	"github.com/ppiankov/clawgate/internal/jobqueue"
	"github.com/ppiankov/clawgate/internal/model"
	"github.com/ppiankov/clawgate/internal/permission"
)

// handleSubmitJob enqueues an asynchronous executor job. The queue
// re-validates everything synchronously; failures surface with their
// stable codes and create no job.
func (d *Dispatcher) handleSubmitJob(ctx context.Context, req model.ActionRequest, effective permission.Level) (map[string]any, error) {
	if d.queue == nil {
		return nil, &HandlerError{model.CodeExecutorNotAvailable, "job queue is not running"}
	}

	job, err := d.queue.Submit(ctx, jobqueue.SubmitSpec{
		Executor:        req.StringArg("executor"),
		Task:            req.StringArg("task"),
		Cwd:             req.StringArg("cwd"),
		PermissionLevel: effective.String(),
		AllowDanger:     req.BoolArg("allow_danger", false),
		CorrelationID:   req.StringArg("correlation_id"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"job_id": job.JobID, "state": string(job.State)}, nil
}

func (d *Dispatcher) handleJobStatus(ctx context.Context, req model.ActionRequest, _ permission.Level) (map[string]any, error) {
	if d.queue == nil {
		return nil, &HandlerError{model.CodeExecutorNotAvailable, "job queue is not running"}
	}
	job, err := d.queue.Get(ctx, req.StringArg("job_id"))
	if err != nil {
		return nil, err
	}
	return jobPayload(job), nil
}

func (d *Dispatcher) handleCancelJob(ctx context.Context, req model.ActionRequest, _ permission.Level) (map[string]any, error) {
	if d.queue == nil {
		return nil, &HandlerError{model.CodeExecutorNotAvailable, "job queue is not running"}
	}
	job, err := d.queue.Cancel(ctx, req.StringArg("job_id"))
	if err != nil {
		return nil, err
	}
	return jobPayload(job), nil
}

// jobPayload flattens a job record to a generic map for tool output.
func jobPayload(job *model.Job) map[string]any {
	raw, err := json.Marshal(job)
	if err != nil {
		return map[string]any{"job_id": job.JobID, "state": string(job.State)}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{"job_id": job.JobID, "state": string(job.State)}
	}
	return out
}

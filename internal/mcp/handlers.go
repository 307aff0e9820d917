package mcp

import (
	"context"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/clawgate/internal/diag"
	"github.com/ppiankov/clawgate/internal/jobqueue"
	"github.com/ppiankov/clawgate/internal/model"
)

// --- Input/Output types ---

// DispatchInput defines parameters for the claw_dispatch tool.
type DispatchInput struct {
	Name  string         `json:"name" jsonschema:"action name, e.g. read_file or host_exec"`
	Args  map[string]any `json:"args,omitempty" jsonschema:"action arguments"`
	Scope string         `json:"scope,omitempty" jsonschema:"confirmation scope for high-risk actions"`
	Level string         `json:"level,omitempty" jsonschema:"permission level to run at (L0-L4), clamped to the configured ceiling"`
}

// DispatchOutput contains the action payload or block details.
type DispatchOutput struct {
	OK      bool           `json:"ok"`
	Payload map[string]any `json:"payload,omitempty"`
	Code    string         `json:"code,omitempty"`
	Reason  string         `json:"reason,omitempty"`
	Token   string         `json:"token,omitempty"`
}

// ConfirmInput defines parameters for the claw_confirm tool.
type ConfirmInput struct {
	Token string `json:"token" jsonschema:"confirmation token from a blocked dispatch"`
	Scope string `json:"scope" jsonschema:"scope the token was issued for"`
}

// ConfirmOutput reports the approval window.
type ConfirmOutput struct {
	Scope         string `json:"scope"`
	ApprovedUntil string `json:"approved_until"`
}

// SubmitJobInput defines parameters for the claw_submit_job tool.
type SubmitJobInput struct {
	Executor    string `json:"executor" jsonschema:"executor to run (codex or gemini)"`
	Task        string `json:"task" jsonschema:"task description passed to the executor"`
	Cwd         string `json:"cwd,omitempty" jsonschema:"working directory for the job"`
	AllowDanger bool   `json:"allow_danger,omitempty" jsonschema:"run the executor without its sandbox (requires L4)"`
	Level       string `json:"level,omitempty" jsonschema:"permission level to submit at, clamped to the configured ceiling"`
}

// JobIDInput identifies a job for status and cancel tools.
type JobIDInput struct {
	JobID string `json:"job_id" jsonschema:"job id returned by claw_submit_job"`
}

// JobOutput is the job record returned by the job tools.
type JobOutput struct {
	JobID      string `json:"job_id"`
	State      string `json:"state"`
	Executor   string `json:"executor"`
	Task       string `json:"task"`
	Cwd        string `json:"cwd,omitempty"`
	CreatedAt  string `json:"created_at"`
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
	ResultText string `json:"result_text,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// StatusInput defines parameters for the claw_status tool.
type StatusInput struct {
	Probe bool `json:"probe,omitempty" jsonschema:"include a live gateway connectivity probe"`
}

func jobOutput(job *model.Job) JobOutput {
	return JobOutput{
		JobID:      job.JobID,
		State:      string(job.State),
		Executor:   job.Executor,
		Task:       job.Task,
		Cwd:        job.Cwd,
		CreatedAt:  job.CreatedAt,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
		ResultText: job.ResultText,
		ErrorCode:  job.ErrorCode,
		Error:      job.Error,
	}
}

// --- Handlers ---

func (s *Server) handleDispatch(ctx context.Context, req *mcpsdk.CallToolRequest, input DispatchInput) (*mcpsdk.CallToolResult, DispatchOutput, error) {
	res := s.deps.Dispatcher.Dispatch(ctx, model.ActionRequest{
		Name:  input.Name,
		Args:  input.Args,
		Scope: input.Scope,
	}, s.effectiveLevel(input.Level))

	out := DispatchOutput{
		OK:      res.OK,
		Payload: res.Payload,
		Code:    res.Code,
		Reason:  res.Error,
		Token:   res.Token,
	}
	if !res.OK {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handleConfirm(ctx context.Context, req *mcpsdk.CallToolRequest, input ConfirmInput) (*mcpsdk.CallToolResult, ConfirmOutput, error) {
	until, err := s.deps.Confirm.Confirm(input.Token, input.Scope)
	if err != nil {
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
			IsError: true,
		}, ConfirmOutput{}, nil
	}
	return nil, ConfirmOutput{
		Scope:         input.Scope,
		ApprovedUntil: until.UTC().Format("2006-01-02T15:04:05Z"),
	}, nil
}

func (s *Server) handleSubmitJob(ctx context.Context, req *mcpsdk.CallToolRequest, input SubmitJobInput) (*mcpsdk.CallToolResult, JobOutput, error) {
	job, err := s.deps.Queue.Submit(ctx, jobqueue.SubmitSpec{
		Executor:        input.Executor,
		Task:            input.Task,
		Cwd:             input.Cwd,
		PermissionLevel: s.effectiveLevel(input.Level).String(),
		AllowDanger:     input.AllowDanger,
	})
	if err != nil {
		return queueErrorResult(err)
	}
	return nil, jobOutput(job), nil
}

func (s *Server) handleJobStatus(ctx context.Context, req *mcpsdk.CallToolRequest, input JobIDInput) (*mcpsdk.CallToolResult, JobOutput, error) {
	job, err := s.deps.Queue.Get(ctx, input.JobID)
	if err != nil {
		return queueErrorResult(err)
	}
	return nil, jobOutput(job), nil
}

func (s *Server) handleCancelJob(ctx context.Context, req *mcpsdk.CallToolRequest, input JobIDInput) (*mcpsdk.CallToolResult, JobOutput, error) {
	job, err := s.deps.Queue.Cancel(ctx, input.JobID)
	if err != nil {
		return queueErrorResult(err)
	}
	return nil, jobOutput(job), nil
}

func (s *Server) handleStatus(ctx context.Context, req *mcpsdk.CallToolRequest, input StatusInput) (*mcpsdk.CallToolResult, *diag.Report, error) {
	return nil, diag.BuildReport(ctx, s.deps.Diag, input.Probe), nil
}

// queueErrorResult maps queue validation failures to error results so
// the caller sees the stable error code instead of a protocol error.
func queueErrorResult(err error) (*mcpsdk.CallToolResult, JobOutput, error) {
	var qe *jobqueue.Error
	if errors.As(err, &qe) {
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: qe.Message}},
			IsError: true,
		}, JobOutput{ErrorCode: qe.Code, Error: qe.Message}, nil
	}
	return nil, JobOutput{}, err
}

// Package jobqueue runs long external commands asynchronously: a
// buffered FIFO queue drained by a single worker, with hard timeouts
// and cooperative cancellation. Submission validates synchronously and
// never blocks; execution is fully decoupled from the caller.
package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/clawgate/internal/alert"
	"github.com/ppiankov/clawgate/internal/audit"
	"github.com/ppiankov/clawgate/internal/blockcount"
	"github.com/ppiankov/clawgate/internal/ident"
	"github.com/ppiankov/clawgate/internal/jobstore"
	"github.com/ppiankov/clawgate/internal/model"
	"github.com/ppiankov/clawgate/internal/permission"
	"github.com/ppiankov/clawgate/internal/redact"
)

const (
	queueDepth     = 128
	maxResultChars = 12000
	minSubmitLevel = permission.L3
	dangerLevel    = permission.L4
)

// Error is a validation or policy failure with a stable code. The API
// layer maps codes to HTTP statuses; the dispatcher passes them through.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// SubmitSpec is the caller-supplied description of one job.
type SubmitSpec struct {
	Executor        string
	Task            string
	Cwd             string
	PermissionLevel string
	AllowDanger     bool
	CorrelationID   string
}

// Options configures validation limits and executor binaries.
type Options struct {
	CodexBin           string
	GeminiBin          string
	Timeout            time.Duration
	MaxTaskChars       int
	QueueDepth         int
	AllowGlobalWorkdir bool
	AllowedWorkdirs    []string
}

// Queue owns the job channel, the cancellation bookkeeping, and the
// single worker. All methods are safe for concurrent use.
type Queue struct {
	store    *jobstore.Store
	opts     Options
	masker   *redact.Masker
	auditLog *audit.Log
	alerts   *alert.Dispatcher
	counters *blockcount.Counters

	ch chan string

	mu      sync.Mutex
	cancels map[string]time.Time
	procs   map[string]*os.Process
}

// New creates a Queue. The audit log, alert dispatcher, and counters
// may be nil in tests.
func New(store *jobstore.Store, opts Options, masker *redact.Masker, auditLog *audit.Log, alerts *alert.Dispatcher, counters *blockcount.Counters) *Queue {
	if opts.CodexBin == "" {
		opts.CodexBin = "codex"
	}
	if opts.GeminiBin == "" {
		opts.GeminiBin = "gemini"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 180 * time.Second
	}
	if opts.MaxTaskChars <= 0 {
		opts.MaxTaskChars = 8000
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = queueDepth
	}
	if masker == nil {
		masker = redact.NewMasker(nil)
	}
	return &Queue{
		store:    store,
		opts:     opts,
		masker:   masker,
		auditLog: auditLog,
		alerts:   alerts,
		counters: counters,
		ch:       make(chan string, opts.QueueDepth),
		cancels:  make(map[string]time.Time),
		procs:    make(map[string]*os.Process),
	}
}

// Depth returns the number of queued-but-undrained job ids.
func (q *Queue) Depth() int {
	return len(q.ch)
}

// Submit validates the spec, persists a queued job, and enqueues it.
// Validation failures return an *Error with a stable code and create
// no job record.
func (q *Queue) Submit(ctx context.Context, spec SubmitSpec) (*model.Job, error) {
	level := permission.ParseLevel(spec.PermissionLevel)
	if !permission.AtLeast(level, minSubmitLevel) {
		q.count(blockcount.PermissionDeny)
		return nil, &Error{model.CodePermissionDeny,
			fmt.Sprintf("job submission requires %s, caller has %s", permission.Level(minSubmitLevel), level)}
	}
	if spec.AllowDanger && !permission.AtLeast(level, dangerLevel) {
		q.count(blockcount.PermissionDeny)
		return nil, &Error{model.CodePermissionDeny,
			fmt.Sprintf("allow_danger requires %s, caller has %s", permission.Level(dangerLevel), level)}
	}

	bin, err := q.executorBin(spec.Executor)
	if err != nil {
		return nil, err
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, &Error{model.CodeExecutorNotAvailable,
			fmt.Sprintf("executor binary %q not found in PATH", bin)}
	}

	task := strings.TrimSpace(spec.Task)
	if task == "" {
		return nil, &Error{model.CodeMissingTask, "task must not be empty"}
	}
	if len(task) > q.opts.MaxTaskChars {
		return nil, &Error{model.CodeTaskTooLarge,
			fmt.Sprintf("task is %d chars, limit %d", len(task), q.opts.MaxTaskChars)}
	}

	cwd, err := q.validateCwd(spec.Cwd)
	if err != nil {
		return nil, err
	}

	job := &model.Job{
		JobID:           ident.NewJobID(),
		State:           model.JobQueued,
		Executor:        strings.TrimSpace(spec.Executor),
		Task:            task,
		Cwd:             cwd,
		PermissionLevel: level.String(),
		AllowDanger:     spec.AllowDanger,
		CreatedAt:       ident.UTCNowISO(),
		CorrelationID:   spec.CorrelationID,
	}
	if err := q.store.Insert(ctx, job); err != nil {
		return nil, &Error{model.CodeInternalError, err.Error()}
	}

	select {
	case q.ch <- job.JobID:
	default:
		// The worker will never see this id, so a queued record would
		// sit forever. Fail it in place and tell the caller.
		failed, terr := q.store.Transition(ctx, job.JobID, model.JobFailed, func(j *model.Job) {
			j.FinishedAt = ident.UTCNowISO()
			j.ErrorCode = model.CodeQueueFull
			j.Error = fmt.Sprintf("queue is at capacity (%d pending)", q.opts.QueueDepth)
		})
		if terr == nil {
			q.recordTerminal(failed)
		}
		return nil, &Error{model.CodeQueueFull,
			fmt.Sprintf("job queue is full (%d pending)", q.opts.QueueDepth)}
	}
	return job, nil
}

// Get returns the job record for an id.
func (q *Queue) Get(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := q.store.Get(ctx, jobID)
	if errors.Is(err, jobstore.ErrNotFound) {
		return nil, &Error{model.CodeJobNotFound, fmt.Sprintf("no job %q", jobID)}
	}
	return job, err
}

// List returns recent jobs, newest first.
func (q *Queue) List(ctx context.Context, limit int) ([]*model.Job, error) {
	return q.store.List(ctx, limit)
}

// Cancel stops a job. Queued jobs transition directly to canceled and
// are guaranteed never to run. Running jobs get a recorded cancel
// intent and a kill signal; the worker resolves the race against
// natural completion. Terminal jobs are returned unchanged.
func (q *Queue) Cancel(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := q.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.State.Terminal() {
		return job, nil
	}

	if job.State == model.JobQueued {
		updated, err := q.store.Transition(ctx, jobID, model.JobCanceled, func(j *model.Job) {
			j.FinishedAt = ident.UTCNowISO()
			j.ErrorCode = model.CodeCanceledByUser
			j.Error = "canceled before start"
		})
		if err == nil {
			q.recordTerminal(updated)
			return updated, nil
		}
		// The worker won the race and marked it running; fall through.
		job, err = q.Get(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.State.Terminal() {
			return job, nil
		}
	}

	q.mu.Lock()
	if _, ok := q.cancels[jobID]; !ok {
		q.cancels[jobID] = time.Now()
	}
	proc := q.procs[jobID]
	q.mu.Unlock()

	if proc != nil {
		_ = proc.Kill()
	}
	return job, nil
}

// validateCwd checks the working directory exists and sits under an
// allowed root.
func (q *Queue) validateCwd(cwd string) (string, error) {
	cwd = strings.TrimSpace(cwd)
	if cwd == "" {
		return "", &Error{model.CodeInvalidCwd, "cwd must not be empty"}
	}
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return "", &Error{model.CodeInvalidCwd, fmt.Sprintf("cwd %q: %v", cwd, err)}
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", &Error{model.CodeInvalidCwd, fmt.Sprintf("cwd %q is not a directory", abs)}
	}
	if q.opts.AllowGlobalWorkdir {
		return abs, nil
	}
	for _, root := range q.opts.AllowedWorkdirs {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if abs == rootAbs || strings.HasPrefix(abs, rootAbs+string(os.PathSeparator)) {
			return abs, nil
		}
	}
	return "", &Error{model.CodeWorkdirNotAllowed,
		fmt.Sprintf("cwd %q is outside the allowed roots", abs)}
}

func (q *Queue) count(reason string) {
	if q.counters != nil {
		q.counters.Inc(reason)
	}
}

// cancelRequestedBefore reports whether a cancel intent exists for the
// job and was recorded before the given instant. Reading it exactly
// once when the process exits makes the cancel-vs-exit race
// deterministic: a cancel arriving after that read never overrides
// the natural result.
func (q *Queue) cancelRequestedBefore(jobID string, at time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	ts, ok := q.cancels[jobID]
	return ok && ts.Before(at)
}

func (q *Queue) trackProcess(jobID string, p *os.Process) {
	q.mu.Lock()
	q.procs[jobID] = p
	q.mu.Unlock()
}

func (q *Queue) forget(jobID string) {
	q.mu.Lock()
	delete(q.procs, jobID)
	delete(q.cancels, jobID)
	q.mu.Unlock()
}

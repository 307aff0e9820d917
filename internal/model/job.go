package model

// JobState is the lifecycle state of an executor job.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
	JobCanceled  JobState = "canceled"
)

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	switch s {
	case JobSucceeded, JobFailed, JobCanceled:
		return true
	}
	return false
}

// legalTransitions is the full job state machine. queued may be canceled
// directly without ever running; terminal states have no outgoing edges.
var legalTransitions = map[JobState]map[JobState]bool{
	JobQueued: {
		JobRunning:  true,
		JobCanceled: true,
	},
	JobRunning: {
		JobSucceeded: true,
		JobFailed:    true,
		JobCanceled:  true,
	},
}

// CanTransition reports whether from -> to is a legal state change.
func CanTransition(from, to JobState) bool {
	return legalTransitions[from][to]
}

// Job is a durable record of one asynchronous executor run.
// State is the single source of truth for what the worker and the
// API layer may do next.
type Job struct {
	JobID           string   `json:"job_id"`
	State           JobState `json:"state"`
	Executor        string   `json:"executor"`
	Task            string   `json:"task"`
	Cwd             string   `json:"cwd"`
	PermissionLevel string   `json:"permission_level"`
	AllowDanger     bool     `json:"allow_danger"`
	CreatedAt       string   `json:"created_at"`
	StartedAt       string   `json:"started_at,omitempty"`
	FinishedAt      string   `json:"finished_at,omitempty"`
	ResultText      string   `json:"result_text,omitempty"`
	ErrorCode       string   `json:"error_code,omitempty"`
	Error           string   `json:"error,omitempty"`
	CorrelationID   string   `json:"correlation_id,omitempty"`
}

package audit

// AuditEntry is one line in the hash-chained JSONL audit log.
// All fields are flat scalars (no map[string]any) to guarantee
// deterministic json.Marshal field order for reproducible hashing.
// ParamsSummary must already be masked by the caller.
type AuditEntry struct {
	Timestamp      string `json:"ts"`
	CorrelationID  string `json:"correlation_id"`
	Actor          string `json:"actor"`
	Scope          string `json:"scope"`
	ActionType     string `json:"action_type"`
	ActionCategory string `json:"action_category"`
	ParamsSummary  string `json:"params_summary"`
	HighRisk       bool   `json:"high_risk"`
	Confirmed      bool   `json:"confirmed"`
	Status         string `json:"status"`
	LatencyMS      int64  `json:"latency_ms"`
	Error          string `json:"error,omitempty"`
	PrevHash       string `json:"prev_hash"`
}

// Entry statuses.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusBlocked  = "blocked"
	StatusCanceled = "canceled"
)

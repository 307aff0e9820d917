package alert

// Event kinds a webhook can subscribe to.
const (
	EventBlocked         = "blocked"
	EventConfirmRequired = "confirm_required"
	EventJobFailed       = "job_failed"
	EventError           = "error"
)

// AlertConfig defines a webhook alert destination.
type AlertConfig struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["blocked", "confirm_required", "job_failed", "error"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// AlertEvent is the payload sent to webhook endpoints. Detail must
// already be masked by the caller.
type AlertEvent struct {
	Timestamp     string `json:"timestamp"`
	CorrelationID string `json:"correlation_id"`
	Event         string `json:"event"`
	Action        string `json:"action"`
	Actor         string `json:"actor"`
	Reason        string `json:"reason"`
	Level         string `json:"level"`
	Detail        string `json:"detail,omitempty"`
}

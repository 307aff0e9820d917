package alert

import (
	"encoding/json"
	"fmt"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, event AlertEvent) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	case "pagerduty":
		return formatPagerDuty(event)
	default:
		return formatGeneric(event)
	}
}

func formatGeneric(event AlertEvent) ([]byte, error) {
	return json.Marshal(event)
}

func formatSlack(event AlertEvent) ([]byte, error) {
	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("clawgate: %s", event.Event),
				},
			},
			map[string]any{
				"type": "section",
				"fields": []any{
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Action:* %s", event.Action)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Actor:* %s", event.Actor)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Level:* %s", event.Level)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Reason:* %s", event.Reason)},
				},
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(event AlertEvent) ([]byte, error) {
	severity := severityFor(event.Event)

	payload := map[string]any{
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":  fmt.Sprintf("clawgate %s: %s (%s)", event.Event, event.Action, event.Reason),
			"severity": severity,
			"source":   "clawgate",
			"custom_details": map[string]any{
				"action":         event.Action,
				"actor":          event.Actor,
				"level":          event.Level,
				"reason":         event.Reason,
				"detail":         event.Detail,
				"correlation_id": event.CorrelationID,
			},
		},
	}
	return json.Marshal(payload)
}

func severityFor(event string) string {
	switch event {
	case EventJobFailed, EventError:
		return "error"
	case EventBlocked:
		return "warning"
	default:
		return "info"
	}
}

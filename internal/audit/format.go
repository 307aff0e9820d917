package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable text timeline.
func FormatTimeline(result *ReplayResult) string {
	if len(result.Entries) == 0 {
		label := result.CorrelationID
		if label == "" {
			label = "(all)"
		}
		return fmt.Sprintf("Correlation: %s | No entries found.\n", label)
	}

	var b strings.Builder

	// Header
	first := result.Summary.FirstTimestamp
	last := result.Summary.LastTimestamp
	label := result.CorrelationID
	if label == "" {
		label = "(all)"
	}
	b.WriteString(fmt.Sprintf("Correlation: %s | %s–%s UTC\n",
		label, formatDateRange(first), formatTimeOnly(last)))
	b.WriteString(separator + "\n")

	// Entries
	for _, e := range result.Entries {
		ts := formatTimeOnly(e.Timestamp)
		status := strings.ToUpper(e.Status)
		action := truncate(e.ActionType, 16)
		params := truncate(e.ParamsSummary, 40)

		tag := ""
		if e.HighRisk {
			tag = "  [high-risk]"
		}
		if e.Confirmed {
			tag += "  [confirmed]"
		}

		b.WriteString(fmt.Sprintf("%-10s %-8s %-18s %-40s%s\n",
			ts, status, action, params, tag))
	}

	// Footer
	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))

	return b.String()
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func formatDateRange(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s ReplaySummary) string {
	parts := []string{}
	if s.OKCount > 0 {
		parts = append(parts, fmt.Sprintf("%d ok", s.OKCount))
	}
	if s.BlockedCount > 0 {
		parts = append(parts, fmt.Sprintf("%d blocked", s.BlockedCount))
	}
	if s.ErrorCount > 0 {
		parts = append(parts, fmt.Sprintf("%d error", s.ErrorCount))
	}
	if s.HighRiskCount > 0 {
		parts = append(parts, fmt.Sprintf("%d high-risk", s.HighRiskCount))
	}
	if s.ConfirmedCount > 0 {
		parts = append(parts, fmt.Sprintf("%d confirmed", s.ConfirmedCount))
	}
	if len(parts) == 0 {
		parts = append(parts, "no outcomes")
	}

	return fmt.Sprintf("Summary: %s | %d entries\n", strings.Join(parts, ", "), s.Total)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// TimestampFormat is the layout used in audit entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// ReplayFilter holds filtering criteria for audit replay.
type ReplayFilter struct {
	CorrelationID string
	Actor         string    // empty = any actor
	From          time.Time // zero value = no lower bound
	To            time.Time // zero value = no upper bound
}

// ReplaySummary holds outcome counts and metadata for replayed entries.
type ReplaySummary struct {
	Total          int    `json:"total"`
	OKCount        int    `json:"ok_count"`
	ErrorCount     int    `json:"error_count"`
	BlockedCount   int    `json:"blocked_count"`
	HighRiskCount  int    `json:"high_risk_count"`
	ConfirmedCount int    `json:"confirmed_count"`
	FirstTimestamp string `json:"first_timestamp"`
	LastTimestamp  string `json:"last_timestamp"`
}

// ReplayResult holds filtered entries and their summary.
type ReplayResult struct {
	CorrelationID string        `json:"correlation_id,omitempty"`
	Entries       []AuditEntry  `json:"entries"`
	Summary       ReplaySummary `json:"summary"`
}

// Replay reads the audit log and returns entries matching the filter.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{
		CorrelationID: filter.CorrelationID,
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue // skip malformed lines
		}

		if filter.CorrelationID != "" && entry.CorrelationID != filter.CorrelationID {
			continue
		}
		if filter.Actor != "" && entry.Actor != filter.Actor {
			continue
		}

		// Time range filtering
		if !filter.From.IsZero() || !filter.To.IsZero() {
			ts, err := time.Parse(TimestampFormat, entry.Timestamp)
			if err != nil {
				continue // skip unparseable timestamps
			}
			if !filter.From.IsZero() && ts.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && ts.After(filter.To) {
				continue
			}
		}

		result.Entries = append(result.Entries, entry)
		updateSummary(&result.Summary, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	return result, nil
}

func updateSummary(s *ReplaySummary, entry AuditEntry) {
	s.Total++

	switch entry.Status {
	case StatusOK:
		s.OKCount++
	case StatusError:
		s.ErrorCount++
	case StatusBlocked:
		s.BlockedCount++
	}

	if entry.HighRisk {
		s.HighRiskCount++
	}
	if entry.Confirmed {
		s.ConfirmedCount++
	}

	if s.FirstTimestamp == "" {
		s.FirstTimestamp = entry.Timestamp
	}
	s.LastTimestamp = entry.Timestamp
}

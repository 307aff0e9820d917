package audit

import (
	"path/filepath"
	"strings"
	"testing"
)

func writeReplayLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer log.Close()

	entries := []AuditEntry{
		{CorrelationID: "c-aaa", Actor: "u1", ActionType: "read_file", Status: StatusOK},
		{CorrelationID: "c-aaa", Actor: "u1", ActionType: "host_exec", Status: StatusBlocked, HighRisk: true},
		{CorrelationID: "c-bbb", Actor: "u2", ActionType: "submit_job", Status: StatusOK},
		{CorrelationID: "c-aaa", Actor: "u1", ActionType: "host_exec", Status: StatusOK, HighRisk: true, Confirmed: true},
	}
	for _, e := range entries {
		if err := log.Record(e); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	return path
}

func TestReplayFiltersByCorrelationID(t *testing.T) {
	path := writeReplayLog(t)

	result, err := Replay(path, ReplayFilter{CorrelationID: "c-aaa"})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if len(result.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(result.Entries))
	}
	if result.Summary.OKCount != 2 || result.Summary.BlockedCount != 1 {
		t.Errorf("unexpected summary: %+v", result.Summary)
	}
	if result.Summary.HighRiskCount != 2 {
		t.Errorf("expected 2 high-risk, got %d", result.Summary.HighRiskCount)
	}
	if result.Summary.ConfirmedCount != 1 {
		t.Errorf("expected 1 confirmed, got %d", result.Summary.ConfirmedCount)
	}
}

func TestReplayFiltersByActor(t *testing.T) {
	path := writeReplayLog(t)

	result, err := Replay(path, ReplayFilter{Actor: "u2"})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(result.Entries))
	}
	if result.Entries[0].ActionType != "submit_job" {
		t.Errorf("wrong entry: %+v", result.Entries[0])
	}
}

func TestReplayNoMatches(t *testing.T) {
	path := writeReplayLog(t)

	result, err := Replay(path, ReplayFilter{CorrelationID: "c-zzz"})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if len(result.Entries) != 0 || result.Summary.Total != 0 {
		t.Errorf("expected no entries, got %+v", result)
	}
}

func TestFormatTimeline(t *testing.T) {
	path := writeReplayLog(t)
	result, err := Replay(path, ReplayFilter{CorrelationID: "c-aaa"})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	out := FormatTimeline(result)
	if !strings.Contains(out, "Correlation: c-aaa") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "BLOCKED") {
		t.Errorf("missing blocked status: %q", out)
	}
	if !strings.Contains(out, "[high-risk]") {
		t.Errorf("missing high-risk tag: %q", out)
	}
	if !strings.Contains(out, "Summary:") {
		t.Errorf("missing summary: %q", out)
	}
}

func TestFormatTimelineEmpty(t *testing.T) {
	out := FormatTimeline(&ReplayResult{CorrelationID: "c-none"})
	if !strings.Contains(out, "No entries found") {
		t.Errorf("expected empty message, got %q", out)
	}
}

package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/clawgate/internal/confirm"
	"github.com/ppiankov/clawgate/internal/diag"
	"github.com/ppiankov/clawgate/internal/dispatch"
	"github.com/ppiankov/clawgate/internal/jobqueue"
	"github.com/ppiankov/clawgate/internal/jobstore"
	"github.com/ppiankov/clawgate/internal/model"
	"github.com/ppiankov/clawgate/internal/permission"
)

func newTestServer(t *testing.T, level permission.Level) *Server {
	t.Helper()

	stub := filepath.Join(t.TempDir(), "codex")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\necho ok\n"), 0o755); err != nil {
		t.Fatalf("write stub executor: %v", err)
	}

	store, err := jobstore.Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	queue := jobqueue.New(store, jobqueue.Options{
		CodexBin:           stub,
		GeminiBin:          "gemini-missing",
		Timeout:            30 * time.Second,
		MaxTaskChars:       4000,
		AllowGlobalWorkdir: true,
	}, nil, nil, nil, nil)

	confirms := confirm.NewManager(time.Minute)
	d := dispatch.New(dispatch.Config{ConfirmEnabled: true}, dispatch.Deps{
		Confirms: confirms,
		Queue:    queue,
	})

	return New(Config{Version: "test", Level: level}, Deps{
		Dispatcher: d,
		Queue:      queue,
		Confirm:    confirms,
		Diag: diag.Deps{
			Service: "clawgate",
			Version: "test",
			Level:   level,
			Queue:   queue,
			Confirm: confirms,
		},
	})
}

func TestDispatchUnknownAction(t *testing.T) {
	s := newTestServer(t, permission.L4)

	result, out, err := s.handleDispatch(context.Background(), &mcpsdk.CallToolRequest{},
		DispatchInput{Name: "frobnicate"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected error result for unknown action")
	}
	if out.Code != model.CodeUnknownAction {
		t.Errorf("expected code %s, got %q", model.CodeUnknownAction, out.Code)
	}
}

func TestDispatchListDir(t *testing.T) {
	s := newTestServer(t, permission.L1)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed dir: %v", err)
	}

	result, out, err := s.handleDispatch(context.Background(), &mcpsdk.CallToolRequest{},
		DispatchInput{Name: "list_dir", Args: map[string]any{"path": dir}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatalf("expected success, got %+v", out)
	}
	entries, ok := out.Payload["entries"].([]map[string]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("expected one entry, got %v", out.Payload["entries"])
	}
}

func TestEffectiveLevelClamp(t *testing.T) {
	s := newTestServer(t, permission.L2)

	cases := []struct {
		requested string
		want      permission.Level
	}{
		{"", permission.L2},
		{"L1", permission.L1},
		{"L4", permission.L2},
		{"bogus", permission.L0},
	}
	for _, tc := range cases {
		if got := s.effectiveLevel(tc.requested); got != tc.want {
			t.Errorf("effectiveLevel(%q) = %s, want %s", tc.requested, got, tc.want)
		}
	}
}

func TestConfirmBadToken(t *testing.T) {
	s := newTestServer(t, permission.L4)

	result, _, err := s.handleConfirm(context.Background(), &mcpsdk.CallToolRequest{},
		ConfirmInput{Token: "cf-deadbeef", Scope: "sess-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected error result for unknown token")
	}
}

func TestConfirmGrantsScope(t *testing.T) {
	s := newTestServer(t, permission.L4)
	token, _ := s.deps.Confirm.Issue("sess-1", "delete /tmp/x")

	result, out, err := s.handleConfirm(context.Background(), &mcpsdk.CallToolRequest{},
		ConfirmInput{Token: token, Scope: "sess-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatal("expected success")
	}
	if out.ApprovedUntil == "" {
		t.Error("expected an approval window")
	}
	if !s.deps.Confirm.IsApproved("sess-1") {
		t.Error("scope should be approved after confirm")
	}
}

func TestSubmitJobUnknownExecutor(t *testing.T) {
	s := newTestServer(t, permission.L4)

	result, out, err := s.handleSubmitJob(context.Background(), &mcpsdk.CallToolRequest{},
		SubmitJobInput{Executor: "nonesuch", Task: "do things"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected error result")
	}
	if out.ErrorCode != model.CodeExecutorNotAvailable {
		t.Errorf("expected %s, got %q", model.CodeExecutorNotAvailable, out.ErrorCode)
	}
}

func TestSubmitJobBelowLevel(t *testing.T) {
	s := newTestServer(t, permission.L1)

	result, out, err := s.handleSubmitJob(context.Background(), &mcpsdk.CallToolRequest{},
		SubmitJobInput{Executor: "codex", Task: "do things"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected error result")
	}
	if out.ErrorCode != model.CodePermissionDeny {
		t.Errorf("expected %s, got %q", model.CodePermissionDeny, out.ErrorCode)
	}
}

func TestSubmitStatusCancel(t *testing.T) {
	// No worker running, so the job stays queued and cancel is
	// deterministic.
	s := newTestServer(t, permission.L4)
	ctx := context.Background()

	_, submitted, err := s.handleSubmitJob(ctx, &mcpsdk.CallToolRequest{},
		SubmitJobInput{Executor: "codex", Task: "echo hi"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted.JobID == "" || submitted.State != string(model.JobQueued) {
		t.Fatalf("unexpected submit output: %+v", submitted)
	}

	_, got, err := s.handleJobStatus(ctx, &mcpsdk.CallToolRequest{}, JobIDInput{JobID: submitted.JobID})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.State != string(model.JobQueued) {
		t.Errorf("expected queued, got %s", got.State)
	}

	_, canceled, err := s.handleCancelJob(ctx, &mcpsdk.CallToolRequest{}, JobIDInput{JobID: submitted.JobID})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if canceled.State != string(model.JobCanceled) {
		t.Errorf("expected canceled, got %s", canceled.State)
	}
}

func TestJobStatusNotFound(t *testing.T) {
	s := newTestServer(t, permission.L4)

	result, out, err := s.handleJobStatus(context.Background(), &mcpsdk.CallToolRequest{},
		JobIDInput{JobID: "job-missing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected error result")
	}
	if out.ErrorCode != model.CodeJobNotFound {
		t.Errorf("expected %s, got %q", model.CodeJobNotFound, out.ErrorCode)
	}
}

func TestStatusReport(t *testing.T) {
	s := newTestServer(t, permission.L2)

	_, report, err := s.handleStatus(context.Background(), &mcpsdk.CallToolRequest{}, StatusInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Service != "clawgate" || report.PermissionLevel != permission.L2.String() {
		t.Errorf("unexpected report header: %+v", report)
	}
	if report.Probe != nil {
		t.Error("no probe requested")
	}
}

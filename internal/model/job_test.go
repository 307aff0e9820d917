package model

import "testing"

func TestCanTransitionLegalEdges(t *testing.T) {
	legal := []struct{ from, to JobState }{
		{JobQueued, JobRunning},
		{JobQueued, JobCanceled},
		{JobRunning, JobSucceeded},
		{JobRunning, JobFailed},
		{JobRunning, JobCanceled},
	}
	for _, tc := range legal {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}
}

func TestCanTransitionTerminalStatesAreFinal(t *testing.T) {
	terminals := []JobState{JobSucceeded, JobFailed, JobCanceled}
	all := []JobState{JobQueued, JobRunning, JobSucceeded, JobFailed, JobCanceled}
	for _, from := range terminals {
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("terminal state %s must not transition to %s", from, to)
			}
		}
	}
}

func TestCanTransitionQueuedCannotSkipRunning(t *testing.T) {
	for _, to := range []JobState{JobSucceeded, JobFailed} {
		if CanTransition(JobQueued, to) {
			t.Errorf("queued must not jump directly to %s", to)
		}
	}
}

func TestTerminal(t *testing.T) {
	if JobQueued.Terminal() || JobRunning.Terminal() {
		t.Error("queued/running must not be terminal")
	}
	for _, s := range []JobState{JobSucceeded, JobFailed, JobCanceled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestActionRequestArgHelpers(t *testing.T) {
	req := ActionRequest{Args: map[string]any{
		"command":  "ls -la",
		"as_root":  true,
		"timeout":  float64(30),
		"as_text":  "yes",
		"bad_bool": "maybe",
	}}

	if got := req.StringArg("command"); got != "ls -la" {
		t.Errorf("StringArg: expected 'ls -la', got %q", got)
	}
	if got := req.StringArg("missing"); got != "" {
		t.Errorf("StringArg missing key: expected empty, got %q", got)
	}
	if !req.BoolArg("as_root", false) {
		t.Error("BoolArg: expected true for native bool")
	}
	if !req.BoolArg("as_text", false) {
		t.Error("BoolArg: expected true for \"yes\"")
	}
	if req.BoolArg("bad_bool", false) {
		t.Error("BoolArg: unparseable string should fall back to default")
	}
	if got := req.IntArg("timeout", 20); got != 30 {
		t.Errorf("IntArg: expected 30, got %d", got)
	}
	if got := req.IntArg("missing", 20); got != 20 {
		t.Errorf("IntArg default: expected 20, got %d", got)
	}
}

func TestArgHelpersNilArgs(t *testing.T) {
	var req ActionRequest
	if req.StringArg("x") != "" {
		t.Error("StringArg on nil args should return empty")
	}
	if req.BoolArg("x", true) != true {
		t.Error("BoolArg on nil args should return default")
	}
	if req.IntArg("x", 7) != 7 {
		t.Error("IntArg on nil args should return default")
	}
}

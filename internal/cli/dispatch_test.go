package cli

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseArgPairs(t *testing.T) {
	args, err := parseArgPairs([]string{"path=/tmp/x", "content=a=b", "recursive=true"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args["path"] != "/tmp/x" {
		t.Errorf("path = %v", args["path"])
	}
	if args["content"] != "a=b" {
		t.Errorf("value with equals should keep its tail, got %v", args["content"])
	}
	if args["recursive"] != "true" {
		t.Errorf("recursive = %v", args["recursive"])
	}

	if _, err := parseArgPairs([]string{"no-equals"}); err == nil {
		t.Error("expected error for malformed pair")
	}
	if got, err := parseArgPairs(nil); err != nil || got != nil {
		t.Errorf("empty input should yield nil map, got %v, %v", got, err)
	}
}

func TestAPIClientCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"ok":false,"error_code":"auth_failed","error":"bad token"}`))
			return
		}
		switch r.URL.Path {
		case "/jobs":
			w.Write([]byte(`{"ok":true,"job_id":"job-1","state":"queued"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"ok":false,"error_code":"job_not_found","error":"no such job"}`))
		}
	}))
	defer srv.Close()

	c := &apiClient{base: srv.URL, token: "tok", http: srv.Client()}

	out, err := c.call(http.MethodPost, "/jobs", map[string]any{"task": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["job_id"] != "job-1" {
		t.Errorf("job_id = %v", out["job_id"])
	}

	_, err = c.call(http.MethodGet, "/jobs/missing", nil)
	if err == nil || err.Error() != "job_not_found: no such job" {
		t.Errorf("expected server error surfaced, got %v", err)
	}

	bad := &apiClient{base: srv.URL, token: "wrong", http: srv.Client()}
	if _, err := bad.call(http.MethodPost, "/jobs", nil); err == nil {
		t.Error("expected auth error")
	}
}

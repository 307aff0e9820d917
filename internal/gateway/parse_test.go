package gateway

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("bad test JSON: %v", err)
	}
	return m
}

func TestExtractToolCallsOutputItems(t *testing.T) {
	resp := decode(t, `{
		"output": [
			{"type": "function_call", "call_id": "call_1", "name": "read_file",
			 "arguments": "{\"path\": \"/tmp/a\"}"},
			{"type": "tool_call", "id": "call_2", "name": "host_exec",
			 "arguments": {"command": "ls"}},
			{"type": "message", "content": [
				{"type": "function_call", "call_id": "call_3", "name": "read_status"}
			]}
		]
	}`)

	calls := extractToolCalls(resp)
	if len(calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(calls))
	}
	if calls[0].ID != "call_1" || calls[0].Name != "read_file" {
		t.Errorf("unexpected first call: %+v", calls[0])
	}
	if calls[0].Args["path"] != "/tmp/a" {
		t.Errorf("string arguments not parsed: %v", calls[0].Args)
	}
	if calls[1].ID != "call_2" {
		t.Errorf("id fallback not applied: %+v", calls[1])
	}
	if calls[1].Args["command"] != "ls" {
		t.Errorf("object arguments not kept: %v", calls[1].Args)
	}
	if calls[2].ID != "call_3" || calls[2].Name != "read_status" {
		t.Errorf("nested message call missed: %+v", calls[2])
	}
}

func TestExtractToolCallsChatCompletionsFallback(t *testing.T) {
	resp := decode(t, `{
		"choices": [{"message": {"tool_calls": [
			{"id": "tc_9", "function": {"name": "list_dir", "arguments": "{\"path\": \"/srv\"}"}}
		]}}]
	}`)

	calls := extractToolCalls(resp)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].ID != "tc_9" || calls[0].Name != "list_dir" {
		t.Errorf("unexpected call: %+v", calls[0])
	}
	if calls[0].Args["path"] != "/srv" {
		t.Errorf("arguments not parsed: %v", calls[0].Args)
	}
}

func TestExtractToolCallsPrefersOutputItems(t *testing.T) {
	resp := decode(t, `{
		"output": [{"type": "function_call", "call_id": "a", "name": "x"}],
		"choices": [{"message": {"tool_calls": [
			{"id": "b", "function": {"name": "y"}}
		]}}]
	}`)

	calls := extractToolCalls(resp)
	if len(calls) != 1 || calls[0].ID != "a" {
		t.Errorf("output items shape must win: %+v", calls)
	}
}

func TestExtractToolCallsNone(t *testing.T) {
	resp := decode(t, `{"output_text": "done"}`)
	if calls := extractToolCalls(resp); calls != nil {
		t.Errorf("expected no calls, got %+v", calls)
	}
}

func TestParseToolArgsMalformed(t *testing.T) {
	if args := parseToolArgs("not json"); len(args) != 0 {
		t.Errorf("malformed string must yield empty args, got %v", args)
	}
	if args := parseToolArgs(42); len(args) != 0 {
		t.Errorf("non-string/object must yield empty args, got %v", args)
	}
	if args := parseToolArgs(`["a","b"]`); len(args) != 0 {
		t.Errorf("JSON array must yield empty args, got %v", args)
	}
}

func TestExtractOutputTextTopLevel(t *testing.T) {
	resp := decode(t, `{"output_text": "hello"}`)
	if got := extractOutputText(resp); got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
}

func TestExtractOutputTextMessageBlocks(t *testing.T) {
	resp := decode(t, `{
		"output": [
			{"type": "message", "content": [
				{"type": "output_text", "text": "part one"},
				{"type": "output_text_delta", "delta": " and"},
				{"type": "text", "text": " part two"}
			]},
			{"type": "output_text", "text": "!"}
		]
	}`)
	if got := extractOutputText(resp); got != "part one and part two!" {
		t.Errorf("unexpected text: %q", got)
	}
}

func TestExtractOutputTextChatFallback(t *testing.T) {
	resp := decode(t, `{"choices": [{"message": {"content": "chat answer"}}]}`)
	if got := extractOutputText(resp); got != "chat answer" {
		t.Errorf("expected chat answer, got %q", got)
	}
}

func TestExtractOutputTextBlankTopLevelFallsThrough(t *testing.T) {
	resp := decode(t, `{
		"output_text": "   ",
		"output": [{"type": "message", "content": [{"type": "text", "text": "real"}]}]
	}`)
	if got := extractOutputText(resp); got != "real" {
		t.Errorf("expected fallthrough past blank output_text, got %q", got)
	}
}

func TestExtractOutputTextEmpty(t *testing.T) {
	resp := decode(t, `{"output": []}`)
	if got := extractOutputText(resp); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

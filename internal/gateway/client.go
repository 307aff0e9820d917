// Package gateway implements the resilient upstream client: an ordered
// endpoint list (primary first, then backups), a circuit breaker on the
// primary, and a bounded tool-call resolution loop.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/neurorouter"

	"github.com/ppiankov/clawgate/internal/blockcount"
	"github.com/ppiankov/clawgate/internal/ident"
	"github.com/ppiankov/clawgate/internal/redact"
)

// ErrCircuitOpen marks a primary attempt skipped while the breaker is open.
var ErrCircuitOpen = errors.New("primary gateway circuit open")

// NoTextPlaceholder is returned when the gateway produced no text.
const NoTextPlaceholder = "Processed, but the gateway returned no text content."

// maxToolRounds bounds the tool-call resolution loop.
const maxToolRounds = 4

const minTimeout = 5 * time.Second

// ToolRunner executes one tool call on behalf of the gateway and
// returns a JSON-serializable result object.
type ToolRunner func(ctx context.Context, name string, args map[string]any) any

// Config holds the client parameters.
type Config struct {
	PrimaryURL  string
	BackupURLs  []string
	BearerToken string
	AgentID     string
	Timeout     time.Duration
}

// Client talks to the /v1/responses endpoint of an ordered gateway
// list and resolves embedded tool calls through a ToolRunner.
type Client struct {
	endpoints  []string
	bearer     string
	agentID    string
	httpClient *http.Client
	breaker    *CircuitBreaker
	counters   *blockcount.Counters
	masker     *redact.Masker
	runTool    ToolRunner
}

// ConverseRequest is one interactive turn.
type ConverseRequest struct {
	User         string
	SystemPrompt string
	Task         string
	Tools        []map[string]any
}

// NewClient builds a Client. The tool runner may be nil when the
// caller never expects tool calls (probes).
func NewClient(cfg Config, counters *blockcount.Counters, masker *redact.Masker, runTool ToolRunner) *Client {
	var endpoints []string
	if u := strings.TrimRight(strings.TrimSpace(cfg.PrimaryURL), "/"); u != "" {
		endpoints = append(endpoints, u)
	}
	for _, b := range cfg.BackupURLs {
		if u := strings.TrimRight(strings.TrimSpace(b), "/"); u != "" {
			endpoints = append(endpoints, u)
		}
	}

	timeout := cfg.Timeout
	if timeout < minTimeout {
		timeout = minTimeout
	}

	agent := strings.TrimSpace(cfg.AgentID)
	if agent == "" {
		agent = "main"
	}

	return &Client{
		endpoints:  endpoints,
		bearer:     strings.TrimSpace(cfg.BearerToken),
		agentID:    agent,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    NewBreaker(),
		counters:   counters,
		masker:     masker,
		runTool:    runTool,
	}
}

// Breaker exposes the primary circuit breaker for diagnostics.
func (c *Client) Breaker() *CircuitBreaker {
	return c.breaker
}

// Endpoints returns the configured endpoint list, primary first.
func (c *Client) Endpoints() []string {
	return c.endpoints
}

func (c *Client) model() string {
	return "openclaw:" + c.agentID
}

// Converse runs one turn: send the task, resolve up to maxToolRounds
// rounds of tool calls, and return the final text. An empty gateway
// answer yields NoTextPlaceholder, never an empty string.
func (c *Client) Converse(ctx context.Context, req ConverseRequest) (string, error) {
	payload := map[string]any{
		"model":  c.model(),
		"stream": false,
		"user":   req.User,
		"input": []any{
			buildMessage("system", req.SystemPrompt),
			buildMessage("user", req.Task),
		},
	}
	if len(req.Tools) > 0 {
		payload["tools"] = req.Tools
	}

	resp, err := c.postResponses(ctx, payload)
	if err != nil {
		return "", err
	}

	for round := 0; round < maxToolRounds; round++ {
		calls := extractToolCalls(resp)
		if len(calls) == 0 {
			break
		}

		outputs := make([]any, 0, len(calls))
		for _, call := range calls {
			outputs = append(outputs, c.resolveCall(ctx, call))
		}

		payload = map[string]any{
			"model":  c.model(),
			"stream": false,
			"user":   req.User,
			"input":  outputs,
		}
		if len(req.Tools) > 0 {
			payload["tools"] = req.Tools
		}
		resp, err = c.postResponses(ctx, payload)
		if err != nil {
			return "", err
		}
	}

	text := strings.TrimSpace(extractOutputText(resp))
	if text == "" {
		text = NoTextPlaceholder
	}
	return text, nil
}

// resolveCall executes one tool call and wraps its result as a
// function_call_output item keyed by the call's identifier.
func (c *Client) resolveCall(ctx context.Context, call toolCall) map[string]any {
	callID := call.ID
	if callID == "" {
		callID = ident.NewCorrelationID()
	}

	var result any
	if c.runTool != nil {
		result = c.runTool(ctx, call.Name, call.Args)
	} else {
		result = map[string]any{"ok": false, "error": "no tool runner configured"}
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		encoded = []byte(`{"ok":false,"error":"tool result not serializable"}`)
	}

	return map[string]any{
		"type":    "function_call_output",
		"call_id": callID,
		"output":  string(encoded),
	}
}

// postResponses tries each endpoint in order. The primary is skipped
// while its breaker is open; any primary failure feeds the breaker.
func (c *Client) postResponses(ctx context.Context, payload map[string]any) (map[string]any, error) {
	if len(c.endpoints) == 0 {
		return nil, errors.New("no gateway endpoints configured")
	}

	var lastErr error
	for idx, base := range c.endpoints {
		isPrimary := idx == 0
		if isPrimary && c.breaker.Open() {
			if c.counters != nil {
				c.counters.Inc(blockcount.CircuitOpen)
			}
			lastErr = ErrCircuitOpen
			continue
		}

		data, err := c.post(ctx, base+"/v1/responses", payload)
		if err != nil {
			lastErr = err
			if isPrimary {
				c.breaker.RecordFailure()
			}
			continue
		}
		if isPrimary {
			c.breaker.RecordSuccess()
		}
		return data, nil
	}

	return nil, fmt.Errorf("gateway request failed: %w", lastErr)
}

func (c *Client) post(ctx context.Context, url string, payload map[string]any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("HTTP 429: %s: %w",
			redact.Truncate(strings.TrimSpace(string(respBody)), 500), neurorouter.ErrRateLimited)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s",
			resp.StatusCode, redact.Truncate(strings.TrimSpace(string(respBody)), 500))
	}

	var data map[string]any
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return data, nil
}

func buildMessage(role, text string) map[string]any {
	return map[string]any{
		"type": "message",
		"role": role,
		"content": []any{
			map[string]any{"type": "input_text", "text": text},
		},
	}
}

// ProbeResult reports gateway reachability for diagnostics.
type ProbeResult struct {
	OK         bool   `json:"ok"`
	Message    string `json:"message"`
	ErrorClass string `json:"error_class,omitempty"`
}

// Probe sends a minimal request and classifies any failure. The
// message is masked before being surfaced.
func (c *Client) Probe(ctx context.Context) ProbeResult {
	payload := map[string]any{
		"model":  c.model(),
		"stream": false,
		"user":   "diag:" + strings.TrimPrefix(ident.NewSessionScope(), "sess-"),
		"input":  []any{buildMessage("user", "reply with pong only")},
	}

	resp, err := c.postResponses(ctx, payload)
	if err != nil {
		msg := err.Error()
		if c.masker != nil {
			msg = c.masker.Mask(msg)
		}
		return ProbeResult{Message: msg, ErrorClass: classifyProbeError(err)}
	}

	msg := strings.TrimSpace(extractOutputText(resp))
	if msg == "" {
		msg = "ok"
	}
	if c.masker != nil {
		msg = c.masker.Mask(msg)
	}
	return ProbeResult{OK: true, Message: msg}
}

// classifyProbeError buckets a gateway failure into a stable class
// for the diagnostics report.
func classifyProbeError(err error) string {
	if errors.Is(err, ErrCircuitOpen) {
		return "circuit_open"
	}
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "http 401") || strings.Contains(s, "unauthorized"):
		return "auth_failed"
	case strings.Contains(s, "http 404"):
		return "responses_endpoint_not_enabled_or_not_found"
	case strings.Contains(s, "http 405"):
		return "method_not_allowed"
	case strings.Contains(s, "circuit"):
		return "circuit_open"
	case strings.Contains(s, "connection refused"),
		strings.Contains(s, "no such host"),
		strings.Contains(s, "name or service not known"),
		strings.Contains(s, "timed out"),
		strings.Contains(s, "timeout"),
		strings.Contains(s, "context deadline exceeded"):
		return "network_or_unreachable"
	default:
		return "unknown"
	}
}

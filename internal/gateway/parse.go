package gateway

import (
	"encoding/json"
	"strings"
)

// toolCall is one function/tool invocation requested by the gateway.
type toolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Responses arrive in one of two shapes: structured output items, or
// the ChatCompletions tool_calls fallback. Each shape gets its own
// parser; parsers run in order and the first non-empty result wins.
var callParsers = []func(map[string]any) []toolCall{
	parseOutputItemCalls,
	parseChatToolCalls,
}

func extractToolCalls(resp map[string]any) []toolCall {
	for _, parse := range callParsers {
		if calls := parse(resp); len(calls) > 0 {
			return calls
		}
	}
	return nil
}

// parseOutputItemCalls walks the output array for function_call and
// tool_call items, including calls nested inside message content.
func parseOutputItemCalls(resp map[string]any) []toolCall {
	var calls []toolCall
	for _, raw := range asSlice(resp["output"]) {
		item := asMap(raw)
		if item == nil {
			continue
		}
		switch asString(item["type"]) {
		case "function_call", "tool_call":
			calls = append(calls, newToolCall(item))
		case "message":
			for _, rawContent := range asSlice(item["content"]) {
				content := asMap(rawContent)
				if content != nil && asString(content["type"]) == "function_call" {
					calls = append(calls, newToolCall(content))
				}
			}
		}
	}
	return calls
}

// parseChatToolCalls handles the choices[0].message.tool_calls shape.
func parseChatToolCalls(resp map[string]any) []toolCall {
	choices := asSlice(resp["choices"])
	if len(choices) == 0 {
		return nil
	}
	msg := asMap(asMap(choices[0])["message"])
	if msg == nil {
		return nil
	}

	var calls []toolCall
	for _, raw := range asSlice(msg["tool_calls"]) {
		tc := asMap(raw)
		if tc == nil {
			continue
		}
		fn := asMap(tc["function"])
		if fn == nil {
			continue
		}
		calls = append(calls, toolCall{
			ID:   asString(tc["id"]),
			Name: asString(fn["name"]),
			Args: parseToolArgs(fn["arguments"]),
		})
	}
	return calls
}

func newToolCall(item map[string]any) toolCall {
	id := asString(item["call_id"])
	if id == "" {
		id = asString(item["id"])
	}
	return toolCall{
		ID:   id,
		Name: asString(item["name"]),
		Args: parseToolArgs(item["arguments"]),
	}
}

// parseToolArgs accepts an argument object, a JSON-encoded string, or
// anything else (treated as empty).
func parseToolArgs(raw any) map[string]any {
	if m := asMap(raw); m != nil {
		return m
	}
	if s, ok := raw.(string); ok {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(s), &parsed); err == nil {
			return parsed
		}
	}
	return map[string]any{}
}

// Text extraction strategies, tried in order.
var textParsers = []func(map[string]any) string{
	parseTopLevelText,
	parseOutputItemText,
	parseChatText,
}

func extractOutputText(resp map[string]any) string {
	for _, parse := range textParsers {
		if text := parse(resp); text != "" {
			return text
		}
	}
	return ""
}

func parseTopLevelText(resp map[string]any) string {
	if s := asString(resp["output_text"]); strings.TrimSpace(s) != "" {
		return s
	}
	return ""
}

func parseOutputItemText(resp map[string]any) string {
	var text string
	for _, raw := range asSlice(resp["output"]) {
		item := asMap(raw)
		if item == nil {
			continue
		}
		switch asString(item["type"]) {
		case "message":
			for _, rawContent := range asSlice(item["content"]) {
				content := asMap(rawContent)
				if content == nil {
					continue
				}
				switch asString(content["type"]) {
				case "output_text", "text":
					text += asString(content["text"])
				case "output_text_delta":
					text += asString(content["delta"])
				}
			}
		case "output_text", "text":
			text += asString(item["text"])
		}
	}
	return text
}

func parseChatText(resp map[string]any) string {
	choices := asSlice(resp["choices"])
	if len(choices) == 0 {
		return ""
	}
	msg := asMap(asMap(choices[0])["message"])
	if msg == nil {
		return ""
	}
	return asString(msg["content"])
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

package model

// ActionRequest is a single named action submitted for dispatch.
// Scope is an opaque caller/session key supplied by the surface that
// received the request (API, CLI, MCP); it binds confirmation tokens
// and appears in audit records. It is never derived internally.
type ActionRequest struct {
	Name  string         `json:"name"`
	Args  map[string]any `json:"args"`
	Scope string         `json:"scope"`
}

// ActionResult is the outcome of one dispatch attempt.
// Token is set only when a high-risk action was blocked pending
// confirmation; the caller presents it back via the confirm flow.
type ActionResult struct {
	OK      bool           `json:"ok"`
	Payload map[string]any `json:"payload,omitempty"`
	Error   string         `json:"error,omitempty"`
	Code    string         `json:"code,omitempty"`
	Token   string         `json:"token,omitempty"`
}

// StringArg extracts a string argument, coercing nil to "".
func (r ActionRequest) StringArg(key string) string {
	if r.Args == nil {
		return ""
	}
	s, _ := r.Args[key].(string)
	return s
}

// BoolArg extracts a boolean argument with a default.
// Accepts bool and common string spellings ("1", "true", "yes", "on").
func (r ActionRequest) BoolArg(key string, def bool) bool {
	if r.Args == nil {
		return def
	}
	switch v := r.Args[key].(type) {
	case bool:
		return v
	case string:
		switch v {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}

// IntArg extracts an integer argument with a default.
// JSON numbers arrive as float64; both are accepted.
func (r ActionRequest) IntArg(key string, def int) int {
	if r.Args == nil {
		return def
	}
	switch v := r.Args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

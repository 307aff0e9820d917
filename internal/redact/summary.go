package redact

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// sensitiveArgKeys are argument names whose values are dropped wholesale
// when summarizing parameters for audit records, regardless of value
// shape or length.
var sensitiveArgKeys = map[string]bool{
	"token":         true,
	"api_key":       true,
	"apikey":        true,
	"secret":        true,
	"password":      true,
	"passwd":        true,
	"cookie":        true,
	"authorization": true,
	"bearer":        true,
}

// SummarizeArgs renders an argument map into a short, masked, single-line
// form suitable for an audit record. Values under sensitive keys are
// replaced entirely; everything else runs through the masker's rules.
// Output is capped at limit bytes on a rune boundary.
func (m *Masker) SummarizeArgs(args map[string]any, limit int) string {
	if len(args) == 0 {
		return "{}"
	}

	parts := make([]string, 0, len(args))
	for k, v := range args {
		if sensitiveArgKeys[strings.ToLower(k)] {
			parts = append(parts, k+"="+placeholder)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	// Deterministic order for reproducible audit lines.
	sort.Strings(parts)

	return Clip(m.Mask("{"+strings.Join(parts, " ")+"}"), limit)
}

// Truncate caps s at limit bytes, appending a marker noting how much
// was dropped.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	clipped := Clip(s, limit)
	return clipped + fmt.Sprintf("\n...[truncated %d chars]", len(s)-len(clipped))
}

// Clip shortens s to at most limit bytes without splitting a UTF-8
// sequence mid-rune.
func Clip(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

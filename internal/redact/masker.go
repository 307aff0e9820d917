// Package redact masks credential-shaped substrings in free text before
// it leaves the process: command output, file contents, job results,
// diagnostics. Rules are an ordered list applied first to last, with a
// generic long-token fallback at the end, so masking stays configurable
// instead of being baked into control flow. Masking is idempotent.
package redact

import "regexp"

const placeholder = "********"

// Rule is one pattern -> replacement pair applied during masking.
type Rule struct {
	Pattern *regexp.Regexp
	// Replace receives the match and returns the masked form. A nil
	// Replace substitutes the whole match with the placeholder.
	Replace func(match []string) string
}

// defaultRules cover key=value credential assignments and bearer
// headers. The order matters: keyed forms mask the value while keeping
// the key readable; the entropy fallback runs last and catches bare
// tokens of 28+ characters.
var defaultRules = []Rule{
	{
		Pattern: regexp.MustCompile(`(?i)\b(token|api[_-]?key|secret|password|passwd|cookie)\b\s*[:=]\s*([^\s,;"']+)`),
		Replace: func(m []string) string { return m[1] + "=" + placeholder },
	},
	{
		Pattern: regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9\-._~+/]+=*`),
		Replace: func(m []string) string { return "Bearer " + placeholder },
	},
	{
		Pattern: regexp.MustCompile(`\b[A-Za-z0-9_\-]{28,}\b`),
	},
}

// Masker applies an ordered rule list to text.
type Masker struct {
	rules []Rule
	off   bool
}

// NewMasker returns a Masker with the default rules plus any extra
// patterns, compiled case-insensitively. Invalid extra patterns are
// skipped; the defaults always apply.
func NewMasker(extraPatterns []string) *Masker {
	rules := make([]Rule, 0, len(defaultRules)+len(extraPatterns))
	for _, p := range extraPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			continue
		}
		rules = append(rules, Rule{Pattern: re})
	}
	rules = append(rules, defaultRules...)
	return &Masker{rules: rules}
}

// NewPassthrough returns a Masker whose Mask returns text unchanged,
// for deployments that disable masking. Argument summaries still drop
// values under well-known secret keys.
func NewPassthrough() *Masker {
	return &Masker{off: true}
}

// Mask replaces credential-shaped substrings with a fixed placeholder.
// Applying Mask to already-masked text returns it unchanged.
func (m *Masker) Mask(text string) string {
	if m.off {
		return text
	}
	masked := text
	for _, r := range m.rules {
		if r.Replace == nil {
			masked = r.Pattern.ReplaceAllString(masked, placeholder)
			continue
		}
		rule := r
		masked = rule.Pattern.ReplaceAllStringFunc(masked, func(s string) string {
			return rule.Replace(rule.Pattern.FindStringSubmatch(s))
		})
	}
	return masked
}

// Mask applies the default rules without constructing a Masker.
func Mask(text string) string {
	return (&Masker{rules: defaultRules}).Mask(text)
}

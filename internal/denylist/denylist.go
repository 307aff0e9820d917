// Package denylist blocks tools, plugins, commands, and shell command
// lines by name or pattern. Name lists match exact trimmed strings;
// shell patterns are case-insensitive regexes with a substring fallback
// for entries that fail to compile.
package denylist

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Patterns holds the raw denylist entries organized by category.
type Patterns struct {
	Actions       []string `yaml:"actions"`
	Tools         []string `yaml:"tools"`
	Plugins       []string `yaml:"plugins"`
	Commands      []string `yaml:"commands"`
	ShellPatterns []string `yaml:"shell_patterns"`
}

type shellPattern struct {
	raw string
	re  *regexp.Regexp // nil when the raw entry is matched as a substring
}

// Denylist holds compiled patterns for fast matching.
type Denylist struct {
	actions  map[string]bool
	tools    map[string]bool
	plugins  map[string]bool
	commands map[string]bool
	shell    []shellPattern
	raw      Patterns
}

// New creates a Denylist from raw patterns. The built-in shell patterns
// always apply; user shell patterns extend them.
func New(p Patterns) *Denylist {
	d := &Denylist{
		raw:      p,
		actions:  stringSet(p.Actions),
		tools:    stringSet(p.Tools),
		plugins:  stringSet(p.Plugins),
		commands: stringSet(p.Commands),
	}

	user := make([]string, 0, len(p.ShellPatterns))
	for _, s := range p.ShellPatterns {
		if t := strings.TrimSpace(s); t != "" {
			user = append(user, t)
		}
	}
	sort.Strings(user)

	seen := make(map[string]bool)
	for _, pat := range append(append([]string{}, DefaultShellPatterns...), user...) {
		if seen[pat] {
			continue
		}
		seen[pat] = true
		d.shell = append(d.shell, compileShellPattern(pat))
	}

	return d
}

// NewDefault creates a Denylist with only the built-in shell patterns.
func NewDefault() *Denylist {
	return New(Patterns{})
}

// Load reads a denylist from a YAML file. Falls back to defaults if the
// file doesn't exist.
func Load(path string) (*Denylist, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return NewDefault(), nil
		}
		path = filepath.Join(home, ".clawgate", "denylist.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefault(), nil
		}
		return nil, err
	}

	var p Patterns
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}

	return New(p), nil
}

// IsBlockedAction reports whether a dispatcher action name is denied.
func (d *Denylist) IsBlockedAction(name string) bool {
	return d.actions[strings.TrimSpace(name)]
}

// IsBlockedTool reports whether a tool name is denied.
func (d *Denylist) IsBlockedTool(name string) bool {
	return d.tools[strings.TrimSpace(name)]
}

// IsBlockedPlugin reports whether a plugin name is denied.
func (d *Denylist) IsBlockedPlugin(name string) bool {
	return d.plugins[strings.TrimSpace(name)]
}

// IsBlockedCommand reports whether a command name is denied. The full
// command line, its first word, and the bare name are all checked so a
// denied command cannot slip through with appended arguments.
func (d *Denylist) IsBlockedCommand(name string) bool {
	full := strings.TrimSpace(name)
	if d.commands[full] {
		return true
	}
	if head, _, found := strings.Cut(full, " "); found && d.commands[head] {
		return true
	}
	return false
}

// MatchShell checks a shell command line against all shell patterns.
// Returns the matching pattern when blocked.
func (d *Denylist) MatchShell(command string) (bool, string) {
	for _, sp := range d.shell {
		if sp.re != nil {
			if sp.re.MatchString(command) {
				return true, sp.raw
			}
			continue
		}
		if strings.Contains(strings.ToLower(command), strings.ToLower(sp.raw)) {
			return true, sp.raw
		}
	}
	if IsPipeToShell(command) {
		return true, "pipe-to-shell"
	}
	return false, ""
}

// ToMap returns the raw patterns as a map for serialization.
func (d *Denylist) ToMap() map[string]any {
	return map[string]any{
		"actions":        d.raw.Actions,
		"tools":          d.raw.Tools,
		"plugins":        d.raw.Plugins,
		"commands":       d.raw.Commands,
		"shell_patterns": d.raw.ShellPatterns,
	}
}

func stringSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		if t := strings.TrimSpace(s); t != "" {
			set[t] = true
		}
	}
	return set
}

func compileShellPattern(pat string) shellPattern {
	if re, err := regexp.Compile("(?i)" + pat); err == nil {
		return shellPattern{raw: pat, re: re}
	}
	// Plain substring entries from user config land here.
	return shellPattern{raw: pat}
}

// IsPipeToShell detects piped-to-shell patterns like "curl ... | sh" or
// "wget ... | bash".
func IsPipeToShell(cmd string) bool {
	lower := strings.ToLower(cmd)
	if !strings.Contains(lower, "|") {
		return false
	}
	shells := []string{"sh", "bash", "zsh", "fish"}
	downloaders := []string{"curl", "wget"}

	hasDownloader := false
	for _, d := range downloaders {
		if strings.Contains(lower, d) {
			hasDownloader = true
			break
		}
	}
	if !hasDownloader {
		return false
	}

	// Check if anything after a pipe is a shell
	parts := strings.Split(lower, "|")
	for i := 1; i < len(parts); i++ {
		trimmed := strings.TrimSpace(parts[i])
		for _, s := range shells {
			if trimmed == s || strings.HasPrefix(trimmed, s+" ") {
				return true
			}
		}
	}
	return false
}

package systemd

import (
	"fmt"
	"os"
	"strings"
)

// UnitFilePaths are the paths checked for the clawgate service unit.
var UnitFilePaths = []string{
	"/etc/systemd/system/clawgate.service",
	"/usr/lib/systemd/system/clawgate.service",
}

// FindUnitFile returns the first installed unit path, or "".
func FindUnitFile() string {
	for _, p := range UnitFilePaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// CheckUnit reads the unit file at path and reports drift from the
// expected hardening directives. An empty slice means no drift.
func CheckUnit(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read unit file: %w", err)
	}
	return CheckUnitContent(string(data)), nil
}

// CheckUnitContent compares unit text against the required hardening
// directives and the expected ExecStart command.
func CheckUnitContent(content string) []string {
	directives := parseDirectives(content)

	var drift []string
	for key, want := range HardeningDirectives {
		got, ok := directives[key]
		switch {
		case !ok:
			drift = append(drift, fmt.Sprintf("missing %s=%s", key, want))
		case got != want:
			drift = append(drift, fmt.Sprintf("%s=%s, expected %s", key, got, want))
		}
	}

	exec, ok := directives["ExecStart"]
	if !ok {
		drift = append(drift, "missing ExecStart")
	} else if !strings.Contains(exec, "clawgate serve") {
		drift = append(drift, fmt.Sprintf("ExecStart does not run clawgate serve: %s", exec))
	}

	return drift
}

// parseDirectives flattens Key=Value lines across all sections. Later
// occurrences override earlier ones, matching systemd's behavior for
// the directives checked here.
func parseDirectives(content string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "[") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return out
}

package systemd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckUnitContentDetectsWeakening(t *testing.T) {
	weakened := strings.Replace(ServiceTemplate(), "ProtectSystem=strict", "ProtectSystem=false", 1)

	drift := CheckUnitContent(weakened)
	if len(drift) != 1 {
		t.Fatalf("expected one drift entry, got %v", drift)
	}
	if !strings.Contains(drift[0], "ProtectSystem=false") {
		t.Errorf("drift should name the weakened value, got %q", drift[0])
	}
}

func TestCheckUnitContentDetectsMissingDirective(t *testing.T) {
	stripped := strings.Replace(ServiceTemplate(), "NoNewPrivileges=true\n", "", 1)

	drift := CheckUnitContent(stripped)
	if len(drift) != 1 || !strings.Contains(drift[0], "missing NoNewPrivileges=true") {
		t.Errorf("expected missing NoNewPrivileges, got %v", drift)
	}
}

func TestCheckUnitContentForeignExecStart(t *testing.T) {
	foreign := strings.Replace(ServiceTemplate(),
		"ExecStart=/usr/local/bin/clawgate serve --config /etc/clawgate/config.yaml",
		"ExecStart=/usr/bin/other-daemon", 1)

	drift := CheckUnitContent(foreign)
	if len(drift) != 1 || !strings.Contains(drift[0], "ExecStart") {
		t.Errorf("expected ExecStart drift, got %v", drift)
	}
}

func TestCheckUnitReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clawgate.service")
	if err := os.WriteFile(path, []byte(ServiceTemplate()), 0o644); err != nil {
		t.Fatalf("write unit: %v", err)
	}

	drift, err := CheckUnit(path)
	if err != nil {
		t.Fatalf("check unit: %v", err)
	}
	if len(drift) != 0 {
		t.Errorf("expected no drift, got %v", drift)
	}

	if _, err := CheckUnit(filepath.Join(t.TempDir(), "absent.service")); err == nil {
		t.Error("expected error for missing unit file")
	}
}

func TestParseDirectivesSkipsSectionsAndComments(t *testing.T) {
	d := parseDirectives("[Service]\n# comment\nPrivateTmp=true\nPrivateTmp=false\n")
	if d["PrivateTmp"] != "false" {
		t.Errorf("later occurrence should win, got %q", d["PrivateTmp"])
	}
	if _, ok := d["[Service]"]; ok {
		t.Error("section headers must not parse as directives")
	}
}

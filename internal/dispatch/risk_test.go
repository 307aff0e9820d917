package dispatch

import (
	"testing"

	"github.com/ppiankov/clawgate/internal/model"
)

func TestRiskHostExec(t *testing.T) {
	cases := []struct {
		name string
		args map[string]any
		want bool
	}{
		{"plain command", map[string]any{"command": "ls -la"}, false},
		{"rm keyword", map[string]any{"command": "rm /tmp/file"}, true},
		{"rm inside word not matched", map[string]any{"command": "echo format"}, false},
		{"dd keyword", map[string]any{"command": "dd if=/dev/zero of=/dev/sda"}, true},
		{"as_root flag", map[string]any{"command": "id", "as_root": true}, true},
		{"shutdown keyword", map[string]any{"command": "shutdown -h now"}, true},
	}
	for _, tc := range cases {
		got, _ := riskHostExec(model.ActionRequest{Name: "host_exec", Args: tc.args})
		if got != tc.want {
			t.Errorf("%s: expected high-risk=%v", tc.name, tc.want)
		}
	}
}

func TestRiskHostFileOp(t *testing.T) {
	for op, want := range map[string]bool{
		"read": false, "list": false, "write": true, "append": true, "delete": true,
	} {
		got, _ := riskHostFileOp(model.ActionRequest{Args: map[string]any{"op": op}})
		if got != want {
			t.Errorf("op %q: expected high-risk=%v", op, want)
		}
	}
}

func TestRiskExecCommand(t *testing.T) {
	if risky, _ := riskExecCommand(model.ActionRequest{Args: map[string]any{"command": "systemctl status nginx"}}); risky {
		t.Error("status should not be high-risk")
	}
	if risky, _ := riskExecCommand(model.ActionRequest{Args: map[string]any{"command": "systemctl restart nginx"}}); !risky {
		t.Error("restart should be high-risk")
	}
}

func TestRiskExecTool(t *testing.T) {
	if risky, _ := riskExecTool(model.ActionRequest{Args: map[string]any{"tool": "weather"}}); risky {
		t.Error("weather should not be high-risk")
	}
	if risky, _ := riskExecTool(model.ActionRequest{Args: map[string]any{"tool": "shell_runner"}}); !risky {
		t.Error("shell_runner should be high-risk")
	}
}

package dispatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ppiankov/clawgate/internal/blockcount"
	"github.com/ppiankov/clawgate/internal/model"
	"github.com/ppiankov/clawgate/internal/permission"
)

// handleHostFileOp reads, lists, or mutates a path on the host. When
// the hosting process itself runs as root, every operation is refused
// below L4: superuser context changes the blast radius of the same
// nominal permission.
func (d *Dispatcher) handleHostFileOp(_ context.Context, req model.ActionRequest, effective permission.Level) (map[string]any, error) {
	path := req.StringArg("path")
	op := req.StringArg("op")
	if path == "" || op == "" {
		return nil, &HandlerError{model.CodeInternalError, "path and op arguments are required"}
	}

	if d.euidFn() == 0 && !permission.AtLeast(effective, permission.L4) {
		d.counters.Inc(blockcount.RootRuntimeGuard)
		return nil, &HandlerError{model.CodePermissionDeny,
			fmt.Sprintf("process runs as root: file operations require L4, caller has %s", effective)}
	}

	switch op {
	case "read":
		return d.handleReadFile(nil, req, effective)

	case "list":
		return d.handleListDir(nil, req, effective)

	case "mkdir":
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %q: %w", path, err)
		}
		return map[string]any{"path": path, "op": op}, nil

	case "write", "append":
		content := req.StringArg("content")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create parent of %q: %w", path, err)
		}
		flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		if op == "append" {
			flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
		f, err := os.OpenFile(path, flags, 0o644)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", op, path, err)
		}
		defer f.Close()
		n, err := f.WriteString(content)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", op, path, err)
		}
		return map[string]any{"path": path, "op": op, "bytes": n}, nil

	case "delete":
		return d.deletePath(path, req.BoolArg("recursive", false))

	default:
		return nil, &HandlerError{model.CodeInternalError,
			fmt.Sprintf("unknown file op %q (read, list, mkdir, write, append, delete)", op)}
	}
}

// deletePath removes a file, or a directory when empty or explicitly
// recursive.
func (d *Dispatcher) deletePath(path string, recursive bool) (map[string]any, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("delete %q: %w", path, err)
	}

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("delete %q: %w", path, err)
		}
		if len(entries) > 0 && !recursive {
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			sort.Strings(names)
			return nil, &HandlerError{model.CodeInternalError,
				fmt.Sprintf("directory %q is not empty (%d entries); pass recursive=true", path, len(names))}
		}
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("delete %q: %w", path, err)
		}
		return map[string]any{"path": path, "op": "delete", "dir": true}, nil
	}

	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("delete %q: %w", path, err)
	}
	return map[string]any{"path": path, "op": "delete"}, nil
}

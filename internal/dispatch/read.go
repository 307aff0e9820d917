package dispatch

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/ppiankov/clawgate/internal/model"
	"github.com/ppiankov/clawgate/internal/permission"
	"github.com/ppiankov/clawgate/internal/redact"
)

const (
	maxFileChars = 12000
	maxDirEntry  = 200
)

func (d *Dispatcher) handleReadStatus(ctx context.Context, _ model.ActionRequest, _ permission.Level) (map[string]any, error) {
	if d.statusFn == nil {
		return map[string]any{"service": d.cfg.SelfName}, nil
	}
	return map[string]any{"status": d.statusFn(ctx)}, nil
}

func (d *Dispatcher) handleReadFile(_ context.Context, req model.ActionRequest, _ permission.Level) (map[string]any, error) {
	path := req.StringArg("path")
	if path == "" {
		return nil, &HandlerError{model.CodeInternalError, "path argument is required"}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}

	content := string(data)
	truncated := false
	if len(content) > maxFileChars {
		content = redact.Clip(content, maxFileChars)
		truncated = true
	}
	return map[string]any{
		"path":      path,
		"content":   d.masker.Mask(content),
		"truncated": truncated,
		"size":      len(data),
	}, nil
}

func (d *Dispatcher) handleListDir(_ context.Context, req model.ActionRequest, _ permission.Level) (map[string]any, error) {
	path := req.StringArg("path")
	if path == "" {
		path = "."
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", path, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	truncated := false
	if len(entries) > maxDirEntry {
		entries = entries[:maxDirEntry]
		truncated = true
	}

	listed := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		item := map[string]any{"name": e.Name(), "dir": e.IsDir()}
		if info, err := e.Info(); err == nil && !e.IsDir() {
			item["size"] = info.Size()
		}
		listed = append(listed, item)
	}
	return map[string]any{"path": path, "entries": listed, "truncated": truncated}, nil
}

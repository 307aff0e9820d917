package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce is how long after the last write the reload fires, so
// editors that write in several syscalls trigger one reload, not five.
const reloadDebounce = 500 * time.Millisecond

// Reloader triggers a hot-reload callback when a watched file changes.
// It watches parent directories rather than the files themselves, so
// atomic replace (write temp, rename over) keeps working.
type Reloader struct {
	watcher *fsnotify.Watcher
	reload  func() error
	files   map[string]bool
}

// NewReloader creates a watcher for the given files. Empty and missing
// paths are skipped.
func NewReloader(reload func() error, paths []string) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("reload: create watcher: %w", err)
	}

	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := watcher.Add(dir); err != nil {
				watcher.Close()
				return nil, fmt.Errorf("reload: watch %q: %w", dir, err)
			}
			dirs[dir] = true
		}
		files[abs] = true
	}

	return &Reloader{watcher: watcher, reload: reload, files: files}, nil
}

// Watched returns the file paths actually under watch, sorted.
func (r *Reloader) Watched() []string {
	out := make([]string, 0, len(r.files))
	for p := range r.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Run blocks until ctx is cancelled, invoking the reload callback
// after each debounced change to a watched file.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var pending *time.Timer
	stop := func() {
		if pending != nil {
			pending.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !r.files[abs] {
				continue
			}
			stop()
			pending = time.AfterFunc(reloadDebounce, r.fire)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "reload: watcher error: %v\n", err)
		}
	}
}

func (r *Reloader) fire() {
	if err := r.reload(); err != nil {
		fmt.Fprintf(os.Stderr, "reload: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "reload: configuration applied\n")
}

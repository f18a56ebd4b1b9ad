package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EditorWatcher calls OnChange with the file contents whenever Path is
// written or recreated. Bursts of events within Debounce collapse into one
// callback.
type EditorWatcher struct {
	Path     string
	Debounce time.Duration
	OnChange func(content string)
	Logger   *log.Logger
}

// Run watches until ctx is done.
func (w *EditorWatcher) Run(ctx context.Context) error {
	if w.Path == "" || w.OnChange == nil {
		return fmt.Errorf("editor watcher requires a path and callback")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so editors that replace the file are still seen.
	dir := filepath.Dir(w.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir %s: %w", dir, err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(w.Path)
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.logf("fsnotify event=%s file=%s", event.Op, event.Name)
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logf("fsnotify error=%v", err)
		case <-timer.C:
			data, err := os.ReadFile(w.Path)
			if err != nil {
				w.logf("read %s: %v", w.Path, err)
				continue
			}
			w.OnChange(string(data))
		}
	}
}

func (w *EditorWatcher) logf(format string, args ...interface{}) {
	if w.Logger == nil {
		return
	}
	w.Logger.Printf("[watch] "+format, args...)
}

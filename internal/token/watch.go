package token

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "vulcancal/internal/log"
)

// settle is how long the watcher waits after the last change before
// reporting it; the login helper writes the file in several steps.
const settle = 500 * time.Millisecond

// Watch calls fn whenever the token file at path is created or rewritten.
// The parent directory is watched so atomic replace-by-rename is seen.
// Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, fn func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("token watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	appLog.Info("token watch started", "path", path)

	var (
		timer   *time.Timer
		trigger <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, path) {
				continue
			}
			appLog.Debug("token file changed", "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(settle)
			} else {
				timer.Reset(settle)
			}
			trigger = timer.C
		case <-trigger:
			trigger = nil
			fn()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			appLog.Warn("token watcher error", "err", err)
		}
	}
}

// relevant reports whether ev rewrote the token file. Removals and
// attribute changes are ignored: a missing token surfaces on the next
// refresh anyway.
func relevant(ev fsnotify.Event, path string) bool {
	if filepath.Clean(ev.Name) != filepath.Clean(path) {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)
}

// Package watch re-runs a callback when markdown files under the watched
// roots change, with debouncing so editor save bursts trigger one run.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 500 * time.Millisecond

// Run watches roots and invokes fn after each settled burst of changes to
// markdown files. It blocks until ctx is canceled.
func Run(ctx context.Context, roots []string, fn func(ctx context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	for _, root := range roots {
		if err := addRecursive(watcher, root); err != nil {
			return err
		}
	}

	slog.Info("Watching for changes", "roots", strings.Join(roots, ", "))

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				// New directories need watches of their own.
				_ = addRecursive(watcher, event.Name)
			}
			if !isMarkdown(event.Name) {
				continue
			}
			slog.Debug("Change detected", "path", event.Name, "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", "error", err)

		case <-fire:
			fn(ctx)
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdown":
		return true
	}
	return false
}

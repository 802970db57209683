package internal

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow batches bursts of file events into one rescan.
const debounceWindow = 500 * time.Millisecond

// Watch starts an fsnotify watcher on the vault root and calls onBurst once
// per debounced burst of markdown changes, until ctx is cancelled.
//
// New directories created at runtime are automatically added to the watch
// list. Events under the hidden state directory are ignored so the
// application's own writes never trigger a rescan.
func Watch(ctx context.Context, vaultRoot string, logger *slog.Logger, onBurst func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	var debounce *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if debounce == nil {
			debounce = time.NewTimer(debounceWindow)
			fire = debounce.C
		} else {
			debounce.Reset(debounceWindow)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			logger.Debug("watcher: burst settled, rescanning")
			onBurst()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if hiddenPath(vaultRoot, ev.Name) {
				continue
			}

			// New directories join the watch list.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					schedule()
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// hiddenPath reports whether p sits under a dot-directory relative to root.
func hiddenPath(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and all its subdirectories to the watcher,
// skipping hidden directories.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); strings.HasPrefix(name, ".") && path != root {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

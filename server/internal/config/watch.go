package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors path for changes and calls onChange with the newly loaded
// Config each time the file is written or replaced. It runs until ctx is
// cancelled.
//
// The parent directory is watched rather than the file itself so that
// atomic saves (write temp file, rename over path) keep being observed.
//
// If a reload fails (e.g., invalid YAML or a NaN threshold), the error is
// logged and onChange is not called; the previous config remains active.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	slog.Info("config: watching for changes", "path", abs)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			data, err := os.ReadFile(abs)
			if err == nil && len(bytes.TrimSpace(data)) == 0 {
				// Truncated but not yet rewritten; the next Write event has the content.
				continue
			}
			var cfg *Config
			if err == nil {
				cfg, err = Parse(data)
			}
			if err != nil {
				slog.Error("config: reload failed, keeping previous config",
					"path", abs, "err", err)
				continue
			}

			slog.Info("config: reloaded", "path", abs,
				"threshold", cfg.Server.Estimator.Threshold)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

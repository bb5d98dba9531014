package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oszuidwest/zwfm-mixroute/internal/util"
)

// reloadDelay coalesces the burst of events editors produce for one save.
const reloadDelay = 200 * time.Millisecond

// Watch reloads the file whenever it changes and passes each valid result to
// onChange. It blocks until ctx is done. The parent directory is watched so
// files replaced by rename are picked up too. Invalid edits are logged and
// leave the previous values in place.
func (c *Config) Watch(ctx context.Context, onChange func(Snapshot)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return util.WrapError("create config watcher", err)
	}
	defer watcher.Close()

	target := filepath.Clean(c.filePath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return util.WrapError("watch config directory", err)
	}

	reload := time.NewTimer(reloadDelay)
	reload.Stop()
	defer reload.Stop()

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
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				reload.Reset(reloadDelay)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)
		case <-reload.C:
			if err := c.Load(); err != nil {
				slog.Error("config reload rejected", "path", c.filePath, "error", err)
				continue
			}
			slog.Info("config reloaded", "path", c.filePath)
			onChange(c.Snapshot())
		}
	}
}

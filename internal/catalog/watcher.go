package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// ReloadCallback is called after every reload attempt triggered by Watch.
type ReloadCallback func(lists int, err error)

// Watch reloads the catalog whenever the file at path changes, until ctx is
// cancelled. The parent directory is watched so editors that replace the
// file by rename are handled. A file that fails to load or validate is
// logged and the previous index stays live.
func Watch(ctx context.Context, c *Catalog, path string, logger *slog.Logger, cb ReloadCallback) error {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	logger.Info("catalog: watching", slog.String("path", abs))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(reloadDebounce)
			fire = timer.C
		} else {
			timer.Reset(reloadDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("catalog: watcher stopped")
			return nil

		case <-fire:
			n, err := c.Reload(abs)
			if err != nil {
				logger.Warn("catalog: reload failed", slog.String("path", abs), slog.String("error", err.Error()))
			} else {
				logger.Info("catalog: reloaded", slog.String("path", abs), slog.Int("lists", n))
			}
			if cb != nil {
				cb(n, err)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("catalog: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

package settings

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/skythread/internal/checksum"
)

const debounce = 200 * time.Millisecond

// ChangeCallback is called after the settings file content changed.
type ChangeCallback func()

// Watch reports changes to the settings file until ctx is cancelled.
// The parent directory is watched because atomic writes replace the file.
// Events are debounced and only content changes are reported.
func (s *Store) Watch(ctx context.Context, logger *slog.Logger, cb ChangeCallback) error {
	path, err := s.Path()
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("settings watcher: started", slog.String("path", path))

	last := s.sum()
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("settings watcher: stopped")
			return nil

		case <-fire:
			fire = nil
			current := s.sum()
			if current == last {
				continue
			}
			last = current
			logger.Debug("settings watcher: changed", slog.String("path", path))
			if cb != nil {
				cb()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("settings watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// sum fingerprints the file; a missing file sums to "".
func (s *Store) sum() string {
	data, err := s.fs.Read(s.name)
	if err != nil {
		return ""
	}
	return checksum.Sum(data)
}

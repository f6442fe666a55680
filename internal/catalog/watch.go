package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultPollInterval = 2 * time.Second

// Watch reloads the collection whenever the backing file changes on disk.
// It listens for filesystem notifications on the file's directory and also
// polls the modification time every interval, so a missed event is picked
// up on the next tick. Watch returns immediately; Close stops it.
func (s *Store) Watch(ctx context.Context, interval time.Duration) error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.watchDone != nil {
		return nil
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dataDirMode); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.stopWatch, s.watchDone = cancel, done

	go s.watchLoop(ctx, w, interval, done)

	s.log.Info("watching items file", zap.String("path", s.path), zap.Duration("poll_interval", interval))
	return nil
}

// Close stops the watcher, if any, and waits for it to exit.
func (s *Store) Close() error {
	s.watchMu.Lock()
	cancel, done := s.stopWatch, s.watchDone
	s.stopWatch, s.watchDone = nil, nil
	s.watchMu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	<-done
	s.log.Debug("file watcher stopped")
	return nil
}

func (s *Store) watchLoop(ctx context.Context, w *fsnotify.Watcher, interval time.Duration, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := w.Close(); err != nil {
			s.log.Warn("close file watcher", zap.Error(err))
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			s.reloadIfChanged()

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.Warn("file watcher error", zap.Error(err))

		case <-ticker.C:
			s.reloadIfChanged()
		}
	}
}

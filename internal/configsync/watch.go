package configsync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// startWatch watches the directory holding the config file; the file itself
// is replaced by rename on every save, which would drop a direct watch.
func (s *Synchronizer) startWatch(ctx context.Context) error {
	dir := filepath.Dir(s.watchPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create watch dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	s.wg.Add(1)
	go s.watchLoop(ctx, watcher)
	return nil
}

func (s *Synchronizer) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer s.wg.Done()

	target := filepath.Clean(s.watchPath)
	closing := ctx.Done()
	errs := watcher.Errors

	for {
		select {
		case <-closing:
			closing = nil
			if err := watcher.Close(); err != nil {
				s.logger.Warn("failed to close config watcher", zap.Error(err))
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			s.Nudge()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

package analysis

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadSettle absorbs the burst of filesystem events one artifact commit
// produces before reloading once.
const reloadSettle = 200 * time.Millisecond

// Watch reloads the analyzer whenever a new artifact is committed at
// manifestPath. It watches the directory rather than the file because the
// trainer commits by rename, which replaces the inode. Blocks until ctx is
// done. A failed reload keeps the current model serving.
func (a *Analyzer) Watch(ctx context.Context, manifestPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(manifestPath)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Base(manifestPath)

	var settle *time.Timer
	var settleC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if settle == nil {
				settle = time.NewTimer(reloadSettle)
				settleC = settle.C
			} else {
				settle.Reset(reloadSettle)
			}

		case <-settleC:
			settle = nil
			settleC = nil
			if err := a.Reload(manifestPath); err != nil {
				a.logger.Error("model reload failed, keeping current model",
					zap.String("path", manifestPath), zap.Error(err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("artifact watcher error", zap.Error(err))
		}
	}
}

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rubiojr/tracekit/pkg/log"
)

// settleDelay gives editors time to finish writing before the file is read.
var settleDelay = 100 * time.Millisecond

// Watch calls fn with the reloaded file every time configPath changes, until
// ctx is done. Editors that save by renaming a temp file over the original
// are handled by watching the file again after the replace. Load errors are
// logged and skipped.
func Watch(ctx context.Context, configPath string, fn func(*File)) error {
	logger := log.ForService("config")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(configPath); err != nil {
		return fmt.Errorf("watching config file %s: %w", configPath, err)
	}
	logger.Debugf("watching config file for changes: %s", configPath)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(configPath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}

			if !sleepCtx(ctx, settleDelay) {
				return nil
			}
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					logger.Warnf("config file was removed and not replaced, skipping reload")
					continue
				}
				if err := watcher.Add(configPath); err != nil {
					logger.Warnf("failed to re-add config file to watcher: %v", err)
				}
			}

			f, err := Load(configPath)
			if err != nil {
				logger.Errorf("failed to reload configuration: %v", err)
				continue
			}
			logger.Infof("config file changed (%s), reloaded", event.Op)
			fn(f)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("config file watcher error: %v", err)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

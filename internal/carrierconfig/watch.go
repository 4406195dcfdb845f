package carrierconfig

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/datawire/dlib/dlog"
)

// Watch reloads cfg from path whenever the file changes on disk. It runs
// until ctx is cancelled or the watcher fails to start.
func Watch(ctx context.Context, path string, cfg *Config) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		return err
	}
	dlog.Infof(ctx, "watching carrier config file %s", path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if err := cfg.Reload(path); err != nil {
					dlog.Errorf(ctx, "carrier config reload failed: %v", err)
					continue
				}
				dlog.Infof(ctx, "carrier config reloaded from %s", path)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			dlog.Errorf(ctx, "carrier config watch error: %v", err)
		}
	}
}

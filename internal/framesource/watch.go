package framesource

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange once dir has been quiet for debounce after any
// create, write, remove or rename inside it. It blocks until ctx is
// cancelled, returning nil, or the watcher fails.
func Watch(ctx context.Context, dir string, debounce time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	const relevant = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&relevant == 0 {
				continue
			}
			timer.Reset(debounce)
		case <-timer.C:
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		case <-ctx.Done():
			return nil
		}
	}
}

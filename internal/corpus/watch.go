package corpus

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch refreshes the corpus whenever one of the given dataset files changes
// on disk, in addition to the explicit Refresh hook. It returns after the
// watcher goroutine is running; the goroutine exits when ctx is cancelled.
//
// Parent directories are watched rather than the files themselves because
// editors and atomic writers replace files by rename, which drops a direct
// file watch.
func (r *Refresher) Watch(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	watched := make(map[string]bool, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return fmt.Errorf("resolve %s: %w", p, err)
		}
		watched[abs] = true
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			watcher.Close()
			return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
		}
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !watched[event.Name] {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("corpus file changed")
				if err := r.Refresh(ctx); err != nil {
					log.Warn().Err(err).Msg("corpus refresh after file change had errors")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error().Err(err).Msg("corpus watcher error")
			}
		}
	}()

	return nil
}

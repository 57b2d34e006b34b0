package content

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a burst of file changes
// triggers a reload.
const DefaultDebounce = 150 * time.Millisecond

// Watch reloads the sitemap whenever a file under the content directory
// changes. It blocks until ctx is done.
func (l *Library) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addTree(w, l.dir); err != nil {
		return err
	}
	l.log.Info("content: watching for changes", "dir", l.dir)

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ignored(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				// New subdirectories are watched too; a plain file is a no-op here.
				_ = addTree(w, ev.Name)
			}
			l.log.Debug("content: change", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)
		case <-timer.C:
			if err := l.Reload(); err != nil {
				l.log.Warn("content: reload failed, keeping previous sitemap", "err", err)
				continue
			}
			l.log.Info("content: sitemap reloaded", "file", l.sitemapFile)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.log.Warn("content: watcher error", "err", err)
		}
	}
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && ignored(p) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

func ignored(p string) bool {
	base := filepath.Base(p)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, ".tmp")
}

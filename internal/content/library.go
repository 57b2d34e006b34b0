// Package content serves the presentation's sitemap and page fragments from
// a directory on disk.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinytelemetry/edetail/internal/model"
	"github.com/tinytelemetry/edetail/internal/sitemap"
)

// ErrInvalidRef is returned for content refs that escape the content dir.
var ErrInvalidRef = errors.New("content: invalid ref")

// Config locates the content on disk.
type Config struct {
	Dir         string
	SitemapFile string
	Logger      *slog.Logger
}

// Library holds the most recently loaded sitemap document.
type Library struct {
	dir         string
	sitemapFile string
	root        *os.Root
	log         *slog.Logger

	mu       sync.RWMutex
	doc      *sitemap.Document
	encoded  []byte
	loadedAt time.Time
	loadErr  error

	reloads  atomic.Int64
	onReload func(*sitemap.Document, error)
}

// New opens the content directory and loads the sitemap once. A sitemap
// that fails to load is not fatal; Document reports it as missing until a
// later Reload succeeds.
func New(cfg Config) (*Library, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("content: dir is required")
	}
	if cfg.SitemapFile == "" {
		cfg.SitemapFile = model.DefaultSitemapPath
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	root, err := os.OpenRoot(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("content: open dir: %w", err)
	}

	l := &Library{
		dir:         cfg.Dir,
		sitemapFile: filepath.ToSlash(cfg.SitemapFile),
		root:        root,
		log:         cfg.Logger.With("component", "content"),
	}
	if err := l.Reload(); err != nil {
		l.log.Warn("content: sitemap not loaded", "file", l.sitemapFile, "err", err)
	}
	return l, nil
}

// Dir returns the content directory.
func (l *Library) Dir() string { return l.dir }

// SitemapFile returns the sitemap path relative to Dir.
func (l *Library) SitemapFile() string { return l.sitemapFile }

// OnReload registers fn to run after every reload attempt.
func (l *Library) OnReload(fn func(*sitemap.Document, error)) {
	l.mu.Lock()
	l.onReload = fn
	l.mu.Unlock()
}

// Reload re-reads and re-validates the sitemap. On failure the previously
// loaded document stays in place.
func (l *Library) Reload() error {
	doc, encoded, err := l.load()

	l.mu.Lock()
	l.loadErr = err
	if err == nil {
		l.doc = doc
		l.encoded = encoded
		l.loadedAt = time.Now()
	}
	fn := l.onReload
	l.mu.Unlock()

	l.reloads.Add(1)
	if fn != nil {
		fn(doc, err)
	}
	return err
}

func (l *Library) load() (*sitemap.Document, []byte, error) {
	data, err := l.root.ReadFile(l.sitemapFile)
	if err != nil {
		return nil, nil, fmt.Errorf("content: read sitemap: %w", err)
	}
	doc, err := sitemap.Decode(data, sitemap.FormatFor(l.sitemapFile))
	if err != nil {
		return nil, nil, err
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("content: encode sitemap: %w", err)
	}
	return doc, encoded, nil
}

// Document returns the loaded sitemap and its JSON wire form.
func (l *Library) Document() (*sitemap.Document, []byte, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.doc, l.encoded, l.doc != nil
}

// Status reports when the sitemap last loaded and the last reload error.
func (l *Library) Status() (loadedAt time.Time, lastErr error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadedAt, l.loadErr
}

// Reloads returns the number of reload attempts, including the first load.
func (l *Library) Reloads() int64 { return l.reloads.Load() }

// Page reads the fragment at ref. Refs are slash separated and relative to
// the content directory.
func (l *Library) Page(ref string) ([]byte, error) {
	clean, err := CleanRef(ref)
	if err != nil {
		return nil, err
	}
	data, err := l.root.ReadFile(clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", model.ErrNotFound, clean)
		}
		return nil, err
	}
	return data, nil
}

// CleanRef normalizes a content ref and rejects absolute or parent-relative
// refs.
func CleanRef(ref string) (string, error) {
	ref = strings.TrimSpace(strings.ReplaceAll(ref, "\\", "/"))
	ref = strings.TrimLeft(ref, "/")
	if ref == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidRef)
	}
	clean := path.Clean(ref)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrInvalidRef, ref)
	}
	return clean, nil
}

// Close releases the content directory handle.
func (l *Library) Close() error {
	return l.root.Close()
}

// Package backup takes periodic snapshots of the clickstream database and
// rotates them in a local directory.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	defaultInterval = 6 * time.Hour
	defaultKeepLast = 24

	filePrefix = "edetail-"
	fileSuffix = ".duckdb"
	stampFmt   = "20060102-150405.000"
)

// Manager runs periodic local snapshots.
type Manager struct {
	store Snapshotter
	cfg   Config
	log   *slog.Logger

	mu       sync.Mutex
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewManager validates cfg, takes a startup snapshot and starts the
// periodic loop. It returns nil when backups are disabled.
func NewManager(store Snapshotter, cfg Config) (*Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if store == nil {
		return nil, fmt.Errorf("backup: nil snapshotter")
	}
	if strings.TrimSpace(store.DBPath()) == "" {
		return nil, fmt.Errorf("backup: db-path is empty (in-memory store)")
	}
	if strings.TrimSpace(cfg.LocalDir) == "" {
		return nil, fmt.Errorf("backup: backup-dir is required when backup is enabled")
	}
	if err := os.MkdirAll(cfg.LocalDir, 0755); err != nil {
		return nil, fmt.Errorf("backup: create backup-dir: %w", err)
	}

	m := newManager(store, cfg)

	// Shortens the recovery point after restarts.
	if err := m.RunOnce(context.Background()); err != nil {
		m.log.Warn("backup: startup snapshot failed", "err", err)
	}

	m.wg.Add(1)
	go m.loop()
	return m, nil
}

func newManager(store Snapshotter, cfg Config) *Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		store: store,
		cfg:   cfg,
		log:   cfg.Logger.With("component", "backup"),
		done:  make(chan struct{}),
	}
}

func (m *Manager) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.RunOnce(context.Background()); err != nil {
				m.log.Error("backup: periodic snapshot failed", "err", err)
			}
		case <-m.done:
			return
		}
	}
}

// RunOnce writes one snapshot and prunes the oldest beyond KeepLast.
func (m *Manager) RunOnce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	name := filePrefix + m.cfg.Now().UTC().Format(stampFmt) + fileSuffix
	localPath := filepath.Join(m.cfg.LocalDir, name)
	if err := m.store.SnapshotTo(localPath); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	m.log.Info("backup: created snapshot", "path", localPath)

	removed, err := prune(m.cfg.LocalDir, m.cfg.KeepLast)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	if removed > 0 {
		m.log.Debug("backup: pruned snapshots", "removed", removed)
	}
	return nil
}

// List returns the snapshots on disk, newest first.
func (m *Manager) List() ([]Snapshot, error) {
	paths, err := snapshotPaths(m.cfg.LocalDir)
	if err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		out = append(out, Snapshot{Name: filepath.Base(p), Size: info.Size(), ModTime: info.ModTime()})
	}
	return out, nil
}

// Stop terminates the periodic loop. Calling it more than once is safe.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
}

// snapshotPaths returns snapshot files newest first. The timestamp embedded
// in the name sorts lexically.
func snapshotPaths(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return matches, nil
}

func prune(dir string, keepLast int) (int, error) {
	matches, err := snapshotPaths(dir)
	if err != nil || len(matches) <= keepLast {
		return 0, err
	}
	removed := 0
	for _, old := range matches[keepLast:] {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

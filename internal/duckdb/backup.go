package duckdb

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrInMemoryStore is returned when snapshotting a store without a file.
var ErrInMemoryStore = errors.New("duckdb: in-memory store cannot be snapshotted")

// DBPath returns the database file path. Empty means in-memory.
func (s *Store) DBPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dbPath
}

// SnapshotTo checkpoints the database and copies its file to dstPath.
// The checkpoint runs under the write lock; the copy does not.
func (s *Store) SnapshotTo(dstPath string) error {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("duckdb: snapshot dir: %w", err)
	}

	s.mu.Lock()
	dbPath := s.dbPath
	if dbPath == "" {
		s.mu.Unlock()
		return ErrInMemoryStore
	}
	ctx, cancel := s.queryCtx()
	_, err := s.db.ExecContext(ctx, "CHECKPOINT")
	cancel()
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("duckdb: checkpoint: %w", err)
	}

	if err := copyFile(dbPath, dstPath); err != nil {
		return fmt.Errorf("duckdb: copy snapshot: %w", err)
	}
	s.log.Debug("duckdb: snapshot written", "path", dstPath)
	return nil
}

// copyFile writes through a temp file so a partial copy never lands at
// dstPath.
func copyFile(srcPath, dstPath string) (err error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp := dstPath + ".tmp"
	dst, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = dst.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err = io.Copy(dst, src); err != nil {
		return err
	}
	if err = dst.Sync(); err != nil {
		return err
	}
	if err = dst.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dstPath)
}

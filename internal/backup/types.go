package backup

import (
	"log/slog"
	"time"
)

// Config controls periodic clickstream database snapshots.
type Config struct {
	Enabled  bool
	Interval time.Duration
	LocalDir string
	KeepLast int
	Logger   *slog.Logger
	Now      func() time.Time
}

// Snapshotter is the minimal DB snapshot contract used by Manager.
type Snapshotter interface {
	DBPath() string
	SnapshotTo(dstPath string) error
}

// Snapshot describes one snapshot file on disk.
type Snapshot struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

package duckdb

import (
	"log/slog"
	"sync"
	"time"
)

// Expirer deletes events older than a cutoff.
type Expirer interface {
	DeleteBefore(cutoff time.Time) (int64, error)
}

// RetentionConfig holds configuration for the retention cleaner.
type RetentionConfig struct {
	// RetentionDays is how long clickstream events are kept. Zero disables
	// the cleaner.
	RetentionDays int
	// Interval between sweeps. Defaults to one hour.
	Interval time.Duration
	Logger   *slog.Logger
	Now      func() time.Time
}

// RetentionCleaner periodically deletes clickstream events older than the
// retention window.
type RetentionCleaner struct {
	store    Expirer
	keep     time.Duration
	interval time.Duration
	now      func() time.Time
	log      *slog.Logger

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewRetentionCleaner sweeps once immediately and then on every interval.
// It returns nil when retention is disabled.
func NewRetentionCleaner(store Expirer, conf ...RetentionConfig) *RetentionCleaner {
	c := RetentionConfig{RetentionDays: 90}
	if len(conf) > 0 {
		c = conf[0]
	}
	if c.RetentionDays <= 0 {
		return nil
	}
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	rc := &RetentionCleaner{
		store:    store,
		keep:     time.Duration(c.RetentionDays) * 24 * time.Hour,
		interval: c.Interval,
		now:      c.Now,
		log:      c.Logger.With("component", "retention"),
		done:     make(chan struct{}),
	}

	// Catch up after downtime.
	rc.Sweep()

	rc.wg.Add(1)
	go rc.tickLoop()
	return rc
}

func (rc *RetentionCleaner) tickLoop() {
	defer rc.wg.Done()
	ticker := time.NewTicker(rc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rc.Sweep()
		case <-rc.done:
			return
		}
	}
}

// Sweep deletes expired events once and returns how many were removed.
func (rc *RetentionCleaner) Sweep() int64 {
	cutoff := rc.now().Add(-rc.keep)
	rows, err := rc.store.DeleteBefore(cutoff)
	if err != nil {
		rc.log.Error("duckdb: retention sweep failed", "err", err)
		return 0
	}
	if rows > 0 {
		rc.log.Info("duckdb: retention removed expired events", "rows", rows, "cutoff", cutoff)
	}
	return rows
}

// Stop signals the cleaner to stop and waits for it to finish.
func (rc *RetentionCleaner) Stop() {
	rc.stopOnce.Do(func() {
		close(rc.done)
		rc.wg.Wait()
	})
}

package duckdb

import (
	"testing"
	"time"

	"github.com/tinytelemetry/edetail/internal/model"
)

func TestRetentionCleaner_StopIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	cleaner := NewRetentionCleaner(store, RetentionConfig{RetentionDays: 1})
	if cleaner == nil {
		t.Fatal("expected non-nil retention cleaner")
	}

	cleaner.Stop()
	cleaner.Stop()
}

func TestRetentionCleaner_Disabled(t *testing.T) {
	store := newTestStore(t)
	if c := NewRetentionCleaner(store, RetentionConfig{RetentionDays: 0}); c != nil {
		t.Fatal("retention 0 should disable the cleaner")
	}
}

func TestRetentionCleaner_SweepsOnStart(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	insertTestEvents(t, store, []*model.TrackEvent{
		pageview("stale", "Stale", now.Add(-10*24*time.Hour)),
		pageview("fresh", "Fresh", now.Add(-time.Hour)),
	})

	cleaner := NewRetentionCleaner(store, RetentionConfig{
		RetentionDays: 7,
		Interval:      time.Hour,
		Now:           func() time.Time { return now },
	})
	defer cleaner.Stop()

	count, err := store.TotalEvents()
	if err != nil {
		t.Fatalf("TotalEvents: %v", err)
	}
	if count != 1 {
		t.Errorf("TotalEvents after startup sweep = %d, want 1", count)
	}
	if n := cleaner.Sweep(); n != 0 {
		t.Errorf("second Sweep removed %d rows, want 0", n)
	}
}

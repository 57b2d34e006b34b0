package backup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakeSnapshotter struct {
	mu     sync.Mutex
	dbPath string
	data   []byte
	calls  int
}

func (f *fakeSnapshotter) DBPath() string { return f.dbPath }

func (f *fakeSnapshotter) SnapshotTo(dstPath string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(dstPath, f.data, 0644)
}

func (f *fakeSnapshotter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// steppingClock advances one second per call.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func TestNewManager_Disabled(t *testing.T) {
	t.Parallel()

	m, err := NewManager(&fakeSnapshotter{dbPath: "/tmp/edetail.duckdb", data: []byte("x")}, Config{})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	if m != nil {
		t.Fatal("expected nil manager when disabled")
	}
}

func TestNewManager_EnabledRequiresDBPath(t *testing.T) {
	t.Parallel()

	_, err := NewManager(&fakeSnapshotter{dbPath: "", data: []byte("x")}, Config{
		Enabled:  true,
		LocalDir: t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected error for empty db path")
	}
}

func TestNewManager_EnabledRequiresDir(t *testing.T) {
	t.Parallel()

	_, err := NewManager(&fakeSnapshotter{dbPath: "/tmp/edetail.duckdb"}, Config{Enabled: true})
	if err == nil {
		t.Fatal("expected error for empty backup dir")
	}
}

func TestNewManager_StartupSnapshot(t *testing.T) {
	t.Parallel()

	store := &fakeSnapshotter{dbPath: "/tmp/edetail.duckdb", data: []byte("snapshot")}
	m, err := NewManager(store, Config{
		Enabled:  true,
		Interval: time.Hour,
		LocalDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Stop()

	if store.Calls() != 1 {
		t.Fatalf("snapshot calls = %d, want 1", store.Calls())
	}
	list, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Size != int64(len("snapshot")) {
		t.Fatalf("List = %+v, want one 8-byte snapshot", list)
	}
}

func TestRunOnce_CreatesAndPrunesLocalBackups(t *testing.T) {
	t.Parallel()

	localDir := t.TempDir()
	m := newManager(&fakeSnapshotter{dbPath: "/tmp/edetail.duckdb", data: []byte("snapshot")}, Config{
		Enabled:  true,
		LocalDir: localDir,
		KeepLast: 2,
		Now:      steppingClock(),
	})

	for i := 0; i < 3; i++ {
		if err := m.RunOnce(context.Background()); err != nil {
			t.Fatalf("RunOnce #%d: %v", i+1, err)
		}
	}

	files, err := filepath.Glob(filepath.Join(localDir, "edetail-*.duckdb"))
	if err != nil {
		t.Fatalf("glob backups: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("backup files = %d, want 2", len(files))
	}

	list, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list[0].Name != "edetail-20240301-090003.000.duckdb" {
		t.Errorf("newest snapshot = %s", list[0].Name)
	}
}

func TestRunOnce_CanceledContext(t *testing.T) {
	t.Parallel()

	store := &fakeSnapshotter{dbPath: "/tmp/edetail.duckdb"}
	m := newManager(store, Config{Enabled: true, LocalDir: t.TempDir()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.RunOnce(ctx); err == nil {
		t.Fatal("expected error for canceled context")
	}
	if store.Calls() != 0 {
		t.Errorf("snapshot ran despite canceled context")
	}
}

func TestStop_IsIdempotent(t *testing.T) {
	t.Parallel()

	m, err := NewManager(&fakeSnapshotter{dbPath: "/tmp/edetail.duckdb"}, Config{
		Enabled:  true,
		Interval: 5 * time.Millisecond,
		LocalDir: t.TempDir(),
		Now:      steppingClock(),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	done := make(chan struct{})
	go func() {
		m.Stop()
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

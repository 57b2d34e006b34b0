package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tinytelemetry/edetail/internal/model"
)

func event(typ, id string) *model.TrackEvent {
	return &model.TrackEvent{
		EventID:     id + "-evt",
		Type:        typ,
		Description: "desc " + id,
		ID:          id,
		Session:     "s-1",
		Timestamp:   time.Now().UTC(),
	}
}

func replayIDs(t *testing.T, j *Journal) []string {
	t.Helper()
	var ids []string
	err := j.Replay(func(_ uint64, ev *model.TrackEvent) error {
		ids = append(ids, ev.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	return ids
}

func TestAppendReplayCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.journal")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	seq1, err := j.Append(event("pageview", "intro"))
	if err != nil {
		t.Fatalf("Append first: %v", err)
	}
	seq2, err := j.Append(event("pageview", "summary"))
	if err != nil {
		t.Fatalf("Append second: %v", err)
	}
	if seq2 <= seq1 {
		t.Fatalf("sequence did not advance: seq1=%d seq2=%d", seq1, seq2)
	}

	if err := j.Commit(seq1); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got := j.Committed(); got != seq1 {
		t.Errorf("Committed = %d, want %d", got, seq1)
	}

	ids := replayIDs(t, j)
	if len(ids) != 1 || ids[0] != "summary" {
		t.Fatalf("Replay ids=%v, want [summary]", ids)
	}
}

func TestReopenCompactsAndContinuesSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.journal")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	seq1, _ := j.Append(event("pageview", "intro"))
	seq2, _ := j.Append(event("video", "moa"))
	if err := j.Commit(seq1); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	j2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = j2.Close() }()

	ids := replayIDs(t, j2)
	if len(ids) != 1 || ids[0] != "moa" {
		t.Fatalf("Replay after reopen=%v, want [moa]", ids)
	}
	seq3, err := j2.Append(event("pageview", "end"))
	if err != nil {
		t.Fatalf("Append after reopen: %v", err)
	}
	if seq3 <= seq2 {
		t.Errorf("seq3=%d should follow seq2=%d", seq3, seq2)
	}
}

func TestOpenIgnoresPartialTrailingLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.journal")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := j.Append(event("pageview", "ok")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Simulate a torn write.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if _, err := f.WriteString(`{"seq":999,"event":`); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close torn writer: %v", err)
	}

	j2, err := Open(path)
	if err != nil {
		t.Fatalf("Open second: %v", err)
	}
	defer func() { _ = j2.Close() }()

	ids := replayIDs(t, j2)
	if len(ids) != 1 || ids[0] != "ok" {
		t.Fatalf("Replay after torn write=%v, want [ok]", ids)
	}
}

func TestAppendAfterClose(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "events.journal"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = j.Close()
	if _, err := j.Append(event("pageview", "late")); err == nil {
		t.Fatal("expected error appending to a closed journal")
	}
}

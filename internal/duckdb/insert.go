package duckdb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tinytelemetry/edetail/internal/journal"
	"github.com/tinytelemetry/edetail/internal/model"
)

// DefaultFlushQueueSize is the number of batches that can be queued for async flushing.
const DefaultFlushQueueSize = 64

type journaledEvent struct {
	seq   uint64
	event *model.TrackEvent
}

type durableJournal interface {
	Append(ev *model.TrackEvent) (uint64, error)
	Commit(seq uint64) error
	Close() error
}

// InsertBuffer batches clickstream events and flushes them to DuckDB
// asynchronously. Add never blocks on DuckDB writes.
type InsertBuffer struct {
	writer        model.EventWriter
	log           *slog.Logger
	mu            sync.Mutex
	pending       []journaledEvent
	flushChan     chan []journaledEvent
	maxBatch      int
	flushInterval time.Duration
	done          chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
	tickWg        sync.WaitGroup // tickLoop only; Stop waits for its final drain
	journal       durableJournal

	backpressureCount atomic.Int64
	lastBPLog         atomic.Int64 // unix seconds of the last backpressure warning
	added             atomic.Int64
}

// InsertBufferConfig holds tunable parameters for the insert buffer.
type InsertBufferConfig struct {
	BatchSize      int
	FlushInterval  time.Duration
	FlushQueueSize int
	Journal        *journal.Journal
	Logger         *slog.Logger
}

// NewInsertBuffer creates an insert buffer that flushes to writer.
func NewInsertBuffer(writer model.EventWriter, conf ...InsertBufferConfig) *InsertBuffer {
	batchSize := 500
	flushInterval := 250 * time.Millisecond
	flushQueueSize := DefaultFlushQueueSize
	logger := slog.Default()
	var j *journal.Journal
	if len(conf) > 0 {
		c := conf[0]
		if c.BatchSize > 0 {
			batchSize = c.BatchSize
		}
		if c.FlushInterval > 0 {
			flushInterval = c.FlushInterval
		}
		if c.FlushQueueSize > 0 {
			flushQueueSize = c.FlushQueueSize
		}
		if c.Logger != nil {
			logger = c.Logger
		}
		j = c.Journal
	}

	b := &InsertBuffer{
		writer:        writer,
		log:           logger.With("component", "insert-buffer"),
		pending:       make([]journaledEvent, 0, batchSize),
		flushChan:     make(chan []journaledEvent, flushQueueSize),
		maxBatch:      batchSize,
		flushInterval: flushInterval,
		done:          make(chan struct{}),
	}
	if j != nil {
		b.journal = j
	}

	b.wg.Add(1)
	go b.flushWorker()

	b.wg.Add(1)
	b.tickWg.Add(1)
	go b.tickLoop()

	return b
}

func (b *InsertBuffer) tickLoop() {
	defer b.wg.Done()
	defer b.tickWg.Done()
	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.drainPending()
		case <-b.done:
			b.drainPending()
			return
		}
	}
}

// logBackpressure warns at most once per 10 seconds when the flush queue
// is full and a batch is written inline.
func (b *InsertBuffer) logBackpressure() {
	count := b.backpressureCount.Add(1)
	now := time.Now().Unix()
	last := b.lastBPLog.Load()
	if now-last >= 10 && b.lastBPLog.CompareAndSwap(last, now) {
		b.log.Warn("duckdb: backpressure, flushing inline", "inline_flushes", count)
	}
}

func (b *InsertBuffer) takePending() []journaledEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil
	}
	batch := b.pending
	b.pending = make([]journaledEvent, 0, b.maxBatch)
	return batch
}

func (b *InsertBuffer) drainPending() {
	if batch := b.takePending(); batch != nil {
		b.enqueue(batch, "drain")
	}
}

func (b *InsertBuffer) enqueue(batch []journaledEvent, origin string) {
	select {
	case b.flushChan <- batch:
	default:
		b.logBackpressure()
		if err := b.flushBatch(batch); err != nil {
			b.log.Error("duckdb: inline flush failed", "origin", origin, "err", err)
		}
	}
}

func (b *InsertBuffer) flushWorker() {
	defer b.wg.Done()
	for batch := range b.flushChan {
		if err := b.flushBatch(batch); err != nil {
			b.log.Error("duckdb: flush failed", "events", len(batch), "err", err)
		}
	}
}

// Add queues an event for batch insertion and assigns its event id when
// missing. With a journal configured the event is durable once Add returns.
func (b *InsertBuffer) Add(ev *model.TrackEvent) {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	var seq uint64
	if b.journal != nil {
		for {
			var err error
			seq, err = b.journal.Append(ev)
			if err == nil {
				break
			}
			b.log.Warn("duckdb: journal append failed, retrying", "err", err)
			select {
			case <-b.done:
				return
			case <-time.After(200 * time.Millisecond):
			}
		}
	}
	b.added.Add(1)

	b.mu.Lock()
	b.pending = append(b.pending, journaledEvent{seq: seq, event: ev})
	var batch []journaledEvent
	if len(b.pending) >= b.maxBatch {
		batch = b.pending
		b.pending = make([]journaledEvent, 0, b.maxBatch)
	}
	b.mu.Unlock()

	if batch != nil {
		b.enqueue(batch, "add")
	}
}

// Added returns the number of events accepted by Add.
func (b *InsertBuffer) Added() int64 { return b.added.Load() }

// Stop flushes remaining events and waits for all writes to complete.
// Calling it more than once is safe.
func (b *InsertBuffer) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.tickWg.Wait()
		close(b.flushChan)
		b.wg.Wait()
		if b.journal != nil {
			if err := b.journal.Close(); err != nil {
				b.log.Error("duckdb: journal close failed", "err", err)
			}
		}
	})
}

func (b *InsertBuffer) flushBatch(batch []journaledEvent) error {
	if len(batch) == 0 {
		return nil
	}

	events := make([]*model.TrackEvent, 0, len(batch))
	var maxSeq uint64
	for _, item := range batch {
		events = append(events, item.event)
		maxSeq = max(maxSeq, item.seq)
	}

	if err := b.writer.InsertEventBatch(events); err != nil {
		return err
	}
	if b.journal != nil && maxSeq > 0 {
		if err := b.journal.Commit(maxSeq); err != nil {
			return fmt.Errorf("journal commit seq=%d: %w", maxSeq, err)
		}
	}
	return nil
}

// InsertEventBatch writes events in one transaction. When the batch fails
// it is retried event by event so one bad row does not drop the rest.
func (s *Store) InsertEventBatch(events []*model.TrackEvent) error {
	if len(events) == 0 {
		return nil
	}

	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.insertBatchTx(ctx, events); err == nil {
		return nil
	}

	var failed int
	for _, ev := range events {
		if err := s.insertBatchTx(ctx, []*model.TrackEvent{ev}); err != nil {
			failed++
			s.log.Warn("duckdb: dropping event", "type", ev.Type, "id", ev.ID, "err", err)
		}
	}
	if failed == len(events) {
		return fmt.Errorf("insert batch: all %d events failed", failed)
	}
	if failed > 0 {
		s.log.Warn("duckdb: batch partially failed", "dropped", failed, "total", len(events))
	}
	return nil
}

func (s *Store) insertBatchTx(ctx context.Context, events []*model.TrackEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO clickstream (event_id, timestamp, type, page_id, description, session) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		eventID := ev.EventID
		if eventID == "" {
			eventID = uuid.NewString()
		}
		ts := ev.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, eventID, ts, ev.Type, ev.ID, ev.Description, ev.Session); err != nil {
			return fmt.Errorf("event insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

package clock

import (
	"context"
	"sync"
	"time"
)

// Loop is the real Scheduler: an unbounded FIFO of tasks consumed by a
// single goroutine, either via Run or by a host event loop calling Next.
type Loop struct {
	mu     sync.Mutex
	tasks  []func()
	signal chan struct{}
}

// NewLoop returns an empty loop.
func NewLoop() *Loop {
	return &Loop{signal: make(chan struct{}, 1)}
}

// Post enqueues fn. It never blocks, so it is safe to call from a task.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.signal <- struct{}{}:
	default:
	}
}

// After posts fn once d has elapsed.
func (l *Loop) After(d time.Duration, fn func()) {
	time.AfterFunc(d, func() { l.Post(fn) })
}

// Go runs work on its own goroutine and posts the continuation.
func (l *Loop) Go(work func() func()) {
	go func() {
		if next := work(); next != nil {
			l.Post(next)
		}
	}()
}

// Next blocks until a task is available or ctx is done.
func (l *Loop) Next(ctx context.Context) (func(), bool) {
	for {
		l.mu.Lock()
		if len(l.tasks) > 0 {
			fn := l.tasks[0]
			l.tasks[0] = nil
			l.tasks = l.tasks[1:]
			l.mu.Unlock()
			return fn, true
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, false
		case <-l.signal:
		}
	}
}

// Run executes tasks until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	for {
		fn, ok := l.Next(ctx)
		if !ok {
			return
		}
		fn()
	}
}

package clock

import (
	"container/heap"
	"time"
)

// Virtual is a deterministic Scheduler for tests. Time only moves when the
// test calls Advance, and async jobs only complete when the test runs them,
// in whatever order it chooses.
type Virtual struct {
	now    time.Duration
	seq    uint64
	timers timerHeap
	jobs   []func() func()
}

// NewVirtual returns a virtual clock at time zero.
func NewVirtual() *Virtual {
	return &Virtual{}
}

type timer struct {
	at  time.Duration
	seq uint64
	fn  func()
}

type timerHeap []timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)   { *h = append(*h, x.(timer)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}

func (v *Virtual) schedule(at time.Duration, fn func()) {
	v.seq++
	heap.Push(&v.timers, timer{at: at, seq: v.seq, fn: fn})
}

// Post queues fn at the current virtual time.
func (v *Virtual) Post(fn func()) {
	if fn != nil {
		v.schedule(v.now, fn)
	}
}

// After queues fn at now+d.
func (v *Virtual) After(d time.Duration, fn func()) {
	if fn != nil {
		v.schedule(v.now+d, fn)
	}
}

// Go records work as a pending job.
func (v *Virtual) Go(work func() func()) {
	v.jobs = append(v.jobs, work)
}

// Now returns the elapsed virtual time.
func (v *Virtual) Now() time.Duration { return v.now }

// Jobs returns the number of pending async jobs.
func (v *Virtual) Jobs() int { return len(v.jobs) }

// Timers returns the number of queued tasks, due or not.
func (v *Virtual) Timers() int { return v.timers.Len() }

// RunReady runs every task due at the current time, including tasks they
// post in turn.
func (v *Virtual) RunReady() {
	for v.timers.Len() > 0 && v.timers[0].at <= v.now {
		t := heap.Pop(&v.timers).(timer)
		t.fn()
	}
}

// Advance moves time forward by d, running due tasks in time order.
func (v *Virtual) Advance(d time.Duration) {
	end := v.now + d
	v.RunReady()
	for v.timers.Len() > 0 && v.timers[0].at <= end {
		v.now = v.timers[0].at
		v.RunReady()
	}
	v.now = end
}

// RunJob completes the i-th pending job, posts its continuation and runs
// everything that became due.
func (v *Virtual) RunJob(i int) {
	work := v.jobs[i]
	v.jobs = append(v.jobs[:i:i], v.jobs[i+1:]...)
	if next := work(); next != nil {
		v.Post(next)
	}
	v.RunReady()
}

// Flush runs ready tasks and completes jobs oldest first until neither
// remain at the current time.
func (v *Virtual) Flush() {
	v.RunReady()
	for len(v.jobs) > 0 {
		v.RunJob(0)
	}
}

// Settle flushes and advances time until no task or job is left. limit
// bounds the number of rounds so an endless retry loop cannot hang a test.
func (v *Virtual) Settle(limit int) {
	for i := 0; i < limit; i++ {
		v.Flush()
		if v.timers.Len() == 0 {
			return
		}
		v.Advance(v.timers[0].at - v.now)
	}
}

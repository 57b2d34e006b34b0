// Package clock provides the single cooperative event loop the presentation
// engine runs on, with a real and a virtual implementation.
//
// Engine components never block and never touch their state from another
// goroutine: timers and async work post their continuation back to the loop.
package clock

import "time"

// Scheduler is the only way engine components defer work.
type Scheduler interface {
	// Post runs fn on the loop after the current task.
	Post(fn func())
	// After runs fn on the loop once d has elapsed. There is no cancellation;
	// superseded timers run to completion and must check their own relevance.
	After(d time.Duration, fn func())
	// Go runs work off the loop. If work returns a non-nil continuation it is
	// posted back to the loop.
	Go(work func() func())
}

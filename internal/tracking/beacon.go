// Package tracking sends clickstream events without holding up navigation
// and fans transport results out to registered callbacks.
package tracking

import (
	"context"
	"log/slog"
	"time"

	"github.com/tinytelemetry/edetail/internal/clock"
	"github.com/tinytelemetry/edetail/internal/model"
)

// Transport delivers one event and returns the receiver's result object.
type Transport interface {
	Send(ctx context.Context, ev *model.TrackEvent) (model.TrackResult, error)
}

// Deps wires a Beacon. A nil Transport keeps events local: callbacks still
// run through Deliver, nothing is sent.
type Deps struct {
	Scheduler clock.Scheduler
	Transport Transport
	Session   string
	Timeout   time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

// Beacon is the tracking front end.
type Beacon struct {
	sched     clock.Scheduler
	transport Transport
	session   string
	timeout   time.Duration
	log       *slog.Logger
	now       func() time.Time

	callbacks []func(model.TrackResult)
	sent      int
}

// New returns a Beacon.
func New(deps Deps) *Beacon {
	b := &Beacon{
		sched:     deps.Scheduler,
		transport: deps.Transport,
		session:   deps.Session,
		timeout:   deps.Timeout,
		log:       deps.Logger,
		now:       deps.Now,
	}
	if b.timeout <= 0 {
		b.timeout = 2 * time.Second
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	b.log = b.log.With("component", "tracking")
	return b
}

// Track builds the event on the loop and hands it to the transport off the
// loop. The call returns immediately; the transport result comes back to
// the loop and is passed to Deliver.
func (b *Beacon) Track(eventType, value, id string) {
	ev := &model.TrackEvent{
		Type:        eventType,
		Description: value,
		ID:          id,
		Session:     b.session,
		Timestamp:   b.now().UTC(),
	}
	b.sent++
	b.log.Debug("tracking: event", "type", eventType, "id", id)
	if b.transport == nil {
		return
	}

	transport, timeout, log := b.transport, b.timeout, b.log
	b.sched.Go(func() func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result, err := transport.Send(ctx, ev)
		if err != nil {
			log.Warn("tracking: send failed", "type", ev.Type, "id", ev.ID, "err", err)
			result = model.TrackResult{"success": false, "error": err.Error(), "id": ev.ID}
		}
		return func() { b.Deliver(result) }
	})
}

// AddCallback registers fn for every delivered result. Nil is ignored.
func (b *Beacon) AddCallback(fn func(model.TrackResult)) {
	if fn != nil {
		b.callbacks = append(b.callbacks, fn)
	}
}

// Deliver passes result to every callback in registration order. A
// panicking callback is not recovered.
func (b *Beacon) Deliver(result model.TrackResult) {
	for _, fn := range b.callbacks {
		fn(result)
	}
}

// Sent returns the number of events tracked.
func (b *Beacon) Sent() int { return b.sent }

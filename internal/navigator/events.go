package navigator

import "github.com/tinytelemetry/edetail/internal/model"

// State is the navigator's position in the load cycle.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateSwapping
	StateRetryPending
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateSwapping:
		return "swapping"
	case StateRetryPending:
		return "retry"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// EventKind identifies a navigator notification.
type EventKind int

const (
	EventStateChanged EventKind = iota
	EventSurfaces
	EventLoaded
	EventRetry
	EventAbandoned
	EventLock
)

// Event is delivered to subscribers on the scheduler loop.
type Event struct {
	Kind    EventKind
	State   State
	PageID  string
	Attempt int
	Err     error
}

// SurfaceState is one of the two rendering buffers.
type SurfaceState struct {
	PageID     string
	Content    string
	Transition model.Transition
	Tab        int
	Loading    bool
	Active     bool
	Hidden     bool
}

func (n *Navigator) emit(ev Event) {
	ev.State = n.state
	for _, fn := range n.subscribers {
		fn(ev)
	}
}

func (n *Navigator) setState(s State) {
	if n.state == s {
		return
	}
	n.state = s
	n.emit(Event{Kind: EventStateChanged, PageID: n.target})
}

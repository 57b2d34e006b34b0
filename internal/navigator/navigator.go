// Package navigator is the double-buffered page state machine. It resolves
// page ids through the sitemap registry, fetches fragments asynchronously,
// swaps the two surfaces with the configured timings and keeps the path
// cursor, drawer highlight and lock flag consistent.
//
// A Navigator is not safe for concurrent use. Every call, and every
// continuation it schedules, runs on the scheduler loop.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cenkalti/backoff/v5"

	"github.com/tinytelemetry/edetail/internal/clock"
	"github.com/tinytelemetry/edetail/internal/model"
	"github.com/tinytelemetry/edetail/internal/pathtrack"
	"github.com/tinytelemetry/edetail/internal/sitemap"
)

// Deps are the collaborators a Navigator drives. Registry, Tracker, Fetcher
// and Scheduler are required.
type Deps struct {
	Registry  *sitemap.Registry
	Tracker   *pathtrack.Tracker
	Fetcher   ContentFetcher
	Scheduler clock.Scheduler
	Menu      Menu
	Overlay   Overlay
	Beacon    Beacon
	Logger    *slog.Logger
}

type request struct {
	gen        uint64
	node       *sitemap.Node
	transition model.Transition
	attempt    int
	backoff    *backoff.ExponentialBackOff
}

// Navigator owns the two surfaces and the load cycle.
type Navigator struct {
	cfg     Config
	reg     *sitemap.Registry
	tracker *pathtrack.Tracker
	fetcher ContentFetcher
	sched   clock.Scheduler
	menu    Menu
	overlay Overlay
	beacon  Beacon
	log     *slog.Logger

	surfaces [2]SurfaceState
	current  int
	page     *sitemap.Node
	target   string
	locked   bool
	state    State
	gen      uint64
	// swaps counts completed swaps; swap timers act only for the latest one.
	swaps uint64

	onLoad      map[string]func()
	onVisible   map[string]func()
	subscribers []func(Event)
}

// New wires a navigator. Both surfaces start hidden and inactive.
func New(cfg Config, deps Deps) *Navigator {
	n := &Navigator{
		cfg:       cfg.withDefaults(),
		reg:       deps.Registry,
		tracker:   deps.Tracker,
		fetcher:   deps.Fetcher,
		sched:     deps.Scheduler,
		menu:      deps.Menu,
		overlay:   deps.Overlay,
		beacon:    deps.Beacon,
		log:       deps.Logger,
		onLoad:    make(map[string]func()),
		onVisible: make(map[string]func()),
	}
	if n.menu == nil {
		n.menu = nopMenu{}
	}
	if n.overlay == nil {
		n.overlay = nopOverlay{}
	}
	if n.beacon == nil {
		n.beacon = nopBeacon{}
	}
	if n.log == nil {
		n.log = slog.Default()
	}
	n.log = n.log.With("component", "navigator")
	for i := range n.surfaces {
		n.surfaces[i].Hidden = true
	}
	return n
}

// Load requests a page programmatically. It ignores the lock, and a
// successful load clears it.
func (n *Navigator) Load(id string, t model.Transition) error {
	return n.load(id, t, false)
}

// Navigate requests a page on behalf of the drawer or button bar. It is
// refused while locked when the lock affects navigation.
func (n *Navigator) Navigate(id string, t model.Transition) error {
	return n.load(id, t, true)
}

// Next advances along the active path with a right-to-left transition.
// It does nothing at the end of the path.
func (n *Navigator) Next() error {
	if n.locked {
		return model.ErrLocked
	}
	id, ok := n.tracker.Advance(n.locked)
	if !ok {
		return nil
	}
	return n.Load(id, model.TransitionR2L)
}

// Prev retreats along the active path with a left-to-right transition.
func (n *Navigator) Prev() error {
	if n.locked {
		return model.ErrLocked
	}
	id, ok := n.tracker.Retreat(n.locked)
	if !ok {
		return nil
	}
	return n.Load(id, model.TransitionL2R)
}

// inFlight reports whether a request is waiting on a fetch or a retry.
func (n *Navigator) inFlight() bool {
	return n.state == StateRequesting || n.state == StateRetryPending
}

// isSame compares against the pending target while a request is in flight
// and against the displayed page otherwise.
func (n *Navigator) isSame(id string) bool {
	key := sitemap.FormatID(id)
	if n.inFlight() {
		return n.target != "" && key == sitemap.FormatID(n.target)
	}
	return n.page != nil && key == n.page.Key()
}

// cancelPending drops the in-flight request when the displayed page is
// requested again; the screen already shows it.
func (n *Navigator) cancelPending(node *sitemap.Node) {
	n.gen++
	n.surfaces[1-n.current].Loading = false
	n.target = ""
	n.overlay.Hide()
	n.setState(StateIdle)
	if err := n.tracker.Resync(node.ID); err != nil {
		n.log.Error("navigator: path resync failed", "id", node.ID, "err", err)
	}
	n.log.Debug("navigator: pending request cancelled", "id", node.ID)
	n.emit(Event{Kind: EventSurfaces, PageID: node.ID})
}

func normalizeTransition(t model.Transition) model.Transition {
	parsed, err := model.ParseTransition(string(t))
	if err != nil {
		return model.TransitionNone
	}
	return parsed
}

func (n *Navigator) load(id string, t model.Transition, fromMenu bool) error {
	if !n.reg.Loaded() {
		return model.ErrNotReady
	}
	if n.isSame(id) {
		n.overlay.Hide()
		return model.ErrSamePage
	}
	if fromMenu && n.locked && n.cfg.LockNav {
		return model.ErrLocked
	}

	node, ok := n.reg.Lookup(id)
	if !ok {
		n.log.Debug("navigator: unknown page", "id", id)
		return &model.NotFoundError{ID: id}
	}
	if node.Kind == model.KindButton {
		return &model.NotFoundError{ID: id}
	}
	node = contentNode(node)
	if node == nil {
		return &model.NotFoundError{ID: id}
	}
	if n.isSame(node.ID) {
		n.overlay.Hide()
		return model.ErrSamePage
	}
	if n.inFlight() && n.page != nil && node.Key() == n.page.Key() {
		n.cancelPending(node)
		return nil
	}
	t = normalizeTransition(t)

	n.gen++
	req := &request{
		gen:        n.gen,
		node:       node,
		transition: t,
		backoff:    n.newBackOff(),
	}

	staged := &n.surfaces[1-n.current]
	staged.Transition = t
	staged.Loading = true
	n.target = node.ID
	n.setState(StateRequesting)
	n.emit(Event{Kind: EventSurfaces, PageID: node.ID})

	n.issue(req)
	return nil
}

// contentNode resolves entries without a fragment, such as headers, to
// their first descendant that has one.
func contentNode(node *sitemap.Node) *sitemap.Node {
	if node.ContentRef != "" {
		return node
	}
	var found *sitemap.Node
	sitemap.Walk(node.Children, func(c, _ *sitemap.Node, _ int) bool {
		if found != nil {
			return false
		}
		if c.ContentRef != "" {
			found = c
			return false
		}
		return true
	})
	return found
}

func (n *Navigator) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = n.cfg.RetryInitial
	b.MaxInterval = n.cfg.RetryMax
	b.Reset()
	return b
}

func (n *Navigator) issue(req *request) {
	ref := req.node.ContentRef
	timeout := n.cfg.FetchTimeout
	fetcher := n.fetcher
	n.sched.Go(func() func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		body, err := fetcher.Fetch(ctx, ref)
		return func() { n.complete(req, body, err) }
	})
}

func (n *Navigator) complete(req *request, body string, err error) {
	if req.gen != n.gen {
		n.log.Debug("navigator: dropping stale response", "id", req.node.ID)
		return
	}
	if err != nil {
		n.retry(req, err)
		return
	}
	if strings.TrimSpace(body) == "" {
		n.log.Warn("navigator: empty response", "id", req.node.ID, "ref", req.node.ContentRef)
		n.abandon(req, model.ErrEmptyResponse, StateIdle)
		return
	}
	n.swap(req, body)
}

func (n *Navigator) abandon(req *request, err error, next State) {
	n.surfaces[1-n.current].Loading = false
	n.target = ""
	n.setState(next)
	n.emit(Event{Kind: EventAbandoned, PageID: req.node.ID, Attempt: req.attempt, Err: err})
}

func (n *Navigator) retry(req *request, cause error) {
	req.attempt++
	if n.cfg.RetryLimit > 0 && req.attempt > n.cfg.RetryLimit {
		n.log.Error("navigator: giving up", "id", req.node.ID, "attempts", req.attempt, "err", cause)
		n.abandon(req, fmt.Errorf("%w: %w", model.ErrRetriesExhausted, cause), StateFailed)
		return
	}

	delay := req.backoff.NextBackOff()
	if n.cfg.RetryLimit == 0 {
		delay = 0
	}
	n.log.Warn("navigator: fetch failed, retrying", "id", req.node.ID, "attempt", req.attempt, "delay", delay, "err", cause)

	n.target = ""
	n.setState(StateRetryPending)
	n.emit(Event{Kind: EventRetry, PageID: req.node.ID, Attempt: req.attempt, Err: cause})

	n.sched.After(delay, func() {
		if req.gen != n.gen {
			return
		}
		n.target = req.node.ID
		n.setState(StateRequesting)
		n.issue(req)
	})
}

func (n *Navigator) swap(req *request, body string) {
	node := req.node
	n.setState(StateSwapping)

	n.overlay.Hide()
	n.menu.Hide()
	if n.locked {
		n.locked = false
		n.emit(Event{Kind: EventLock})
	}
	n.menu.Highlight(node.ID, n.reg.AncestorChain(node), node.HasChildren())
	n.menu.ClearButtonBar()

	n.swaps++
	swap := n.swaps
	old := n.current
	n.current = 1 - n.current
	next := &n.surfaces[n.current]
	next.PageID = node.ID
	next.Content = body
	next.Transition = req.transition
	next.Tab = 0
	n.page = node
	n.target = ""

	if fn, ok := n.onLoad[node.Key()]; ok {
		fn()
	}

	n.surfaces[old].Active = false
	next.Active = true
	next.Hidden = false

	revealed := n.current
	n.sched.After(n.cfg.RevealDelay, func() {
		if swap != n.swaps {
			return
		}
		n.surfaces[revealed].Loading = false
		n.emit(Event{Kind: EventSurfaces, PageID: node.ID})
	})

	visible, hasVisible := n.onVisible[node.Key()]
	if hasVisible {
		n.surfaces[old].Hidden = true
	}
	n.sched.After(n.cfg.SettleDelay, func() {
		if swap != n.swaps {
			return
		}
		n.surfaces[old].Hidden = true
		if hasVisible {
			visible()
		}
		if n.state == StateSwapping {
			n.setState(StateIdle)
		}
		n.emit(Event{Kind: EventSurfaces, PageID: node.ID})
	})

	if err := n.tracker.Resync(node.ID); err != nil {
		n.log.Error("navigator: path resync failed", "id", node.ID, "err", err)
	}
	n.beacon.Track("pageview", node.Title, node.ID)

	n.log.Debug("navigator: page loaded", "id", node.ID, "transition", req.transition, "attempts", req.attempt+1)
	n.emit(Event{Kind: EventLoaded, PageID: node.ID, Attempt: req.attempt})
	n.emit(Event{Kind: EventSurfaces, PageID: node.ID})
}

// Lock blocks path navigation, and drawer navigation when LockNav is set.
func (n *Navigator) Lock() {
	if !n.locked {
		n.locked = true
		n.emit(Event{Kind: EventLock})
	}
}

// Unlock clears the lock.
func (n *Navigator) Unlock() {
	if n.locked {
		n.locked = false
		n.emit(Event{Kind: EventLock})
	}
}

// Locked reports the lock flag.
func (n *Navigator) Locked() bool { return n.locked }

// OnLoad registers fn to run as soon as id's content is injected. A later
// registration for the same id replaces the earlier one; nil removes it.
func (n *Navigator) OnLoad(id string, fn func()) {
	register(n.onLoad, id, fn)
}

// OnVisible registers fn to run once id's surface has settled.
func (n *Navigator) OnVisible(id string, fn func()) {
	register(n.onVisible, id, fn)
}

func register(m map[string]func(), id string, fn func()) {
	key := sitemap.FormatID(id)
	if fn == nil {
		delete(m, key)
		return
	}
	m[key] = fn
}

// ShowTab selects a tab on the displayed surface.
func (n *Navigator) ShowTab(tab int) error {
	if n.locked {
		return model.ErrLocked
	}
	if n.page == nil {
		return model.ErrNotReady
	}
	if tab < 0 {
		return errors.New("navigator: negative tab")
	}
	n.surfaces[n.current].Tab = tab
	n.emit(Event{Kind: EventSurfaces, PageID: n.page.ID})
	return nil
}

// Subscribe registers fn for every navigator event.
func (n *Navigator) Subscribe(fn func(Event)) {
	n.subscribers = append(n.subscribers, fn)
}

// CurrentPage returns the displayed page id, or "" before the first load.
func (n *Navigator) CurrentPage() string {
	if n.page == nil {
		return ""
	}
	return n.page.ID
}

// Page returns the displayed sitemap node.
func (n *Navigator) Page() *sitemap.Node { return n.page }

// Target returns the id being requested, if any.
func (n *Navigator) Target() string { return n.target }

// Current returns the index of the displayed surface.
func (n *Navigator) Current() int { return n.current }

// Surfaces returns a copy of both surfaces.
func (n *Navigator) Surfaces() [2]SurfaceState { return n.surfaces }

// Displayed returns the surface holding the current page.
func (n *Navigator) Displayed() SurfaceState { return n.surfaces[n.current] }

// State returns the load cycle state.
func (n *Navigator) State() State { return n.state }

package navigator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/edetail/internal/clock"
	"github.com/tinytelemetry/edetail/internal/model"
	"github.com/tinytelemetry/edetail/internal/pathtrack"
	"github.com/tinytelemetry/edetail/internal/sitemap"
)

const fixture = `{"sitemap":{
  "pages":[
    {"id":"splash","title":"Splash","type":"hidden","file":"splash.html"},
    {"id":"intro","title":"Intro","file":"intro.html"},
    {"id":"moa","title":"Mechanism","type":"header","children":[
      {"id":"moa.overview","title":"Overview","file":"moa/overview.html"},
      {"id":"moa.detail","title":"Detail","file":"moa/detail.html","children":[
        {"id":"moa.detail.chart","title":"Chart","file":"moa/chart.html"}
      ]}
    ]},
    {"id":"summary","title":"Summary","file":"summary.html"}
  ],
  "paths":{"default":["intro","moa.overview","moa.detail","summary"]}
}}`

type fakeFetcher struct {
	calls  []string
	fail   map[string]int
	always map[string]bool
	bodies map[string]string
}

func (f *fakeFetcher) Fetch(_ context.Context, ref string) (string, error) {
	f.calls = append(f.calls, ref)
	if f.always[ref] {
		return "", errors.New("timeout")
	}
	if f.fail[ref] > 0 {
		f.fail[ref]--
		return "", errors.New("timeout")
	}
	if b, ok := f.bodies[ref]; ok {
		return b, nil
	}
	return "<p>" + ref + "</p>", nil
}

type highlight struct {
	id          string
	ancestors   []string
	hasChildren bool
}

type fakeMenu struct {
	hides       int
	clears      int
	highlighted []highlight
}

func (m *fakeMenu) Hide()           { m.hides++ }
func (m *fakeMenu) ClearButtonBar() { m.clears++ }
func (m *fakeMenu) Highlight(id string, ancestors []string, hasChildren bool) {
	m.highlighted = append(m.highlighted, highlight{id, ancestors, hasChildren})
}

type fakeOverlay struct{ hides int }

func (o *fakeOverlay) Hide() { o.hides++ }

type tracked struct{ typ, value, id string }

type fakeBeacon struct{ events []tracked }

func (b *fakeBeacon) Track(typ, value, id string) {
	b.events = append(b.events, tracked{typ, value, id})
}

type harness struct {
	v       *clock.Virtual
	nav     *Navigator
	fetch   *fakeFetcher
	menu    *fakeMenu
	overlay *fakeOverlay
	beacon  *fakeBeacon
	tracker *pathtrack.Tracker
	events  []Event
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	doc, err := sitemap.Parse([]byte(fixture))
	require.NoError(t, err)
	reg := sitemap.NewRegistry()
	reg.BuildIndex(doc.Pages)
	tracker := pathtrack.New(doc.Paths, "default")
	require.NoError(t, tracker.SetPath("default", ""))

	h := &harness{
		v:       clock.NewVirtual(),
		fetch:   &fakeFetcher{fail: map[string]int{}, always: map[string]bool{}, bodies: map[string]string{}},
		menu:    &fakeMenu{},
		overlay: &fakeOverlay{},
		beacon:  &fakeBeacon{},
		tracker: tracker,
	}
	h.nav = New(cfg, Deps{
		Registry:  reg,
		Tracker:   tracker,
		Fetcher:   h.fetch,
		Scheduler: h.v,
		Menu:      h.menu,
		Overlay:   h.overlay,
		Beacon:    h.beacon,
	})
	h.nav.Subscribe(func(ev Event) { h.events = append(h.events, ev) })
	return h
}

func (h *harness) loadAndSettle(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, h.nav.Load(id, model.TransitionFade))
	h.v.Settle(50)
	require.Equal(t, id, h.nav.CurrentPage())
}

func (h *harness) count(kind EventKind) int {
	n := 0
	for _, ev := range h.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func TestLoad_NotReady(t *testing.T) {
	v := clock.NewVirtual()
	nav := New(DefaultConfig(), Deps{
		Registry:  sitemap.NewRegistry(),
		Tracker:   pathtrack.New(nil, "default"),
		Fetcher:   &fakeFetcher{},
		Scheduler: v,
	})
	assert.ErrorIs(t, nav.Load("intro", model.TransitionFade), model.ErrNotReady)
	assert.Zero(t, v.Jobs())
}

func TestLoad_UnknownIDChangesNothing(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.loadAndSettle(t, "intro")
	before := h.nav.Surfaces()

	err := h.nav.Load("missing", model.TransitionR2L)

	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, []string{"intro.html"}, h.fetch.calls)
	assert.Zero(t, h.v.Jobs())
	assert.Equal(t, before, h.nav.Surfaces())
	assert.Equal(t, StateIdle, h.nav.State())
	assert.Empty(t, h.nav.Target())
}

func TestLoad_SwapTimings(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.loadAndSettle(t, "intro")
	require.Equal(t, 1, h.nav.Current())

	require.NoError(t, h.nav.Load("summary", model.TransitionR2L))
	assert.Equal(t, StateRequesting, h.nav.State())
	staged := h.nav.Surfaces()[0]
	assert.True(t, staged.Loading)
	assert.True(t, staged.Hidden)
	assert.Equal(t, model.TransitionR2L, staged.Transition)
	assert.Empty(t, staged.Content, "transition is staged before content exists")

	h.v.RunJob(0)
	s := h.nav.Surfaces()
	assert.Equal(t, 0, h.nav.Current())
	assert.Equal(t, "summary", s[0].PageID)
	assert.Equal(t, "<p>summary.html</p>", s[0].Content)
	assert.True(t, s[0].Active)
	assert.False(t, s[0].Hidden)
	assert.True(t, s[0].Loading)
	assert.False(t, s[1].Active)
	assert.False(t, s[1].Hidden)
	assert.Equal(t, StateSwapping, h.nav.State())

	h.v.Advance(10 * time.Millisecond)
	assert.False(t, h.nav.Surfaces()[0].Loading)
	assert.False(t, h.nav.Surfaces()[1].Hidden)

	h.v.Advance(489 * time.Millisecond)
	assert.False(t, h.nav.Surfaces()[1].Hidden)

	h.v.Advance(time.Millisecond)
	assert.True(t, h.nav.Surfaces()[1].Hidden)
	assert.Equal(t, StateIdle, h.nav.State())
}

func TestLoad_SamePage(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.loadAndSettle(t, "intro")
	hides := h.overlay.hides

	assert.ErrorIs(t, h.nav.Load("intro", model.TransitionR2L), model.ErrSamePage)
	assert.Equal(t, hides+1, h.overlay.hides)
	assert.Zero(t, h.v.Jobs())

	require.NoError(t, h.nav.Load("summary", model.TransitionR2L))
	assert.ErrorIs(t, h.nav.Navigate("summary", model.TransitionR2L), model.ErrSamePage)
	assert.Equal(t, 1, h.v.Jobs())
}

func TestLock(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.loadAndSettle(t, "intro")
	h.nav.Lock()
	require.True(t, h.nav.Locked())

	assert.ErrorIs(t, h.nav.Next(), model.ErrLocked)
	assert.ErrorIs(t, h.nav.Prev(), model.ErrLocked)
	assert.ErrorIs(t, h.nav.Navigate("summary", model.TransitionR2L), model.ErrLocked)
	assert.ErrorIs(t, h.nav.ShowTab(1), model.ErrLocked)
	cur, _ := h.tracker.Cursor()
	assert.Equal(t, 0, cur)

	require.NoError(t, h.nav.Load("summary", model.TransitionR2L))
	assert.True(t, h.nav.Locked(), "lock holds until the load succeeds")
	h.v.Settle(50)
	assert.False(t, h.nav.Locked())
	assert.Equal(t, "summary", h.nav.CurrentPage())
}

func TestNavigate_LockIgnoredWithoutLockNav(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LockNav = false
	h := newHarness(t, cfg)
	h.loadAndSettle(t, "intro")
	h.nav.Lock()

	require.NoError(t, h.nav.Navigate("summary", model.TransitionR2L))
	assert.ErrorIs(t, h.nav.Next(), model.ErrLocked)
}

func TestNextPrev_FollowPath(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.loadAndSettle(t, "intro")

	require.NoError(t, h.nav.Next())
	assert.Equal(t, model.TransitionR2L, h.nav.Surfaces()[0].Transition)
	h.v.Settle(50)
	assert.Equal(t, "moa.overview", h.nav.CurrentPage())

	require.NoError(t, h.nav.Prev())
	h.v.Settle(50)
	assert.Equal(t, "intro", h.nav.CurrentPage())
	assert.Equal(t, model.TransitionL2R, h.nav.Displayed().Transition)

	require.NoError(t, h.nav.Prev())
	assert.Zero(t, h.v.Jobs(), "start of path is a no-op")
}

func TestLoad_ResyncsCursor(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.loadAndSettle(t, "moa.detail")
	cur, _ := h.tracker.Cursor()
	assert.Equal(t, 2, cur)

	h.loadAndSettle(t, "moa.detail.chart")
	cur, _ = h.tracker.Cursor()
	assert.Equal(t, 0, cur, "page off the path resets to the default path")
}

func TestLoad_HighlightsMenuAndTracksPageview(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.loadAndSettle(t, "moa.detail.chart")

	require.NotEmpty(t, h.menu.highlighted)
	last := h.menu.highlighted[len(h.menu.highlighted)-1]
	assert.Equal(t, highlight{"moa.detail.chart", []string{"moa.detail", "moa"}, false}, last)
	assert.Equal(t, 1, h.menu.hides)
	assert.Equal(t, 1, h.menu.clears)
	assert.Equal(t, []tracked{{"pageview", "Chart", "moa.detail.chart"}}, h.beacon.events)

	h.loadAndSettle(t, "moa.detail")
	last = h.menu.highlighted[len(h.menu.highlighted)-1]
	assert.Equal(t, highlight{"moa.detail", []string{"moa"}, true}, last)
}

func TestLoad_HeaderResolvesToFirstChild(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.nav.Navigate("moa", model.TransitionFade))
	h.v.Settle(50)
	assert.Equal(t, "moa.overview", h.nav.CurrentPage())
}

func TestCallbacks(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.loadAndSettle(t, "intro")

	var order []string
	h.nav.OnLoad("moa.overview", func() {
		order = append(order, "first")
	})
	h.nav.OnLoad("moa-overview", func() {
		assert.Equal(t, "<p>moa/overview.html</p>", h.nav.Displayed().Content)
		order = append(order, "load")
	})
	h.nav.OnVisible("moa.overview", func() { order = append(order, "visible") })

	require.NoError(t, h.nav.Load("moa.overview", model.TransitionR2L))
	h.v.RunJob(0)
	assert.Equal(t, []string{"load"}, order)
	assert.True(t, h.nav.Surfaces()[1].Hidden, "old surface hides at once when a visible callback exists")

	h.v.Advance(499 * time.Millisecond)
	assert.Equal(t, []string{"load"}, order)
	h.v.Advance(time.Millisecond)
	assert.Equal(t, []string{"load", "visible"}, order)
}

func TestCallbackPanicPropagates(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.nav.OnLoad("intro", func() { panic("boom") })
	require.NoError(t, h.nav.Load("intro", model.TransitionFade))
	assert.PanicsWithValue(t, "boom", func() { h.v.RunJob(0) })
}

func TestRetry_ThenSuccess(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.fetch.fail["intro.html"] = 2

	require.NoError(t, h.nav.Load("intro", model.TransitionFade))
	h.v.RunJob(0)
	assert.Equal(t, StateRetryPending, h.nav.State())
	assert.Empty(t, h.nav.Target())

	h.v.Settle(50)
	assert.Equal(t, "intro", h.nav.CurrentPage())
	assert.Equal(t, []string{"intro.html", "intro.html", "intro.html"}, h.fetch.calls)
	assert.Equal(t, 2, h.count(EventRetry))
	assert.Equal(t, StateIdle, h.nav.State())
}

func TestRetry_LimitMarksFailed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryLimit = 2
	h := newHarness(t, cfg)
	h.loadAndSettle(t, "intro")
	h.fetch.always["summary.html"] = true

	require.NoError(t, h.nav.Load("summary", model.TransitionR2L))
	h.v.Settle(50)

	assert.Equal(t, StateFailed, h.nav.State())
	assert.Equal(t, "intro", h.nav.CurrentPage())
	assert.False(t, h.nav.Surfaces()[0].Loading)
	assert.Len(t, h.fetch.calls, 4)

	last := h.events[len(h.events)-1]
	assert.Equal(t, EventAbandoned, last.Kind)
	assert.ErrorIs(t, last.Err, model.ErrRetriesExhausted)

	h.fetch.always["summary.html"] = false
	h.loadAndSettle(t, "summary")
}

func TestRetry_UnboundedWhenLimitZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryLimit = 0
	h := newHarness(t, cfg)
	h.fetch.fail["intro.html"] = 20

	require.NoError(t, h.nav.Load("intro", model.TransitionFade))
	h.v.Flush()
	assert.Equal(t, "intro", h.nav.CurrentPage())
	assert.Len(t, h.fetch.calls, 21)
	assert.Zero(t, h.v.Now(), "unbounded retry does not wait")
}

func TestLoad_EmptyResponseClearsMarker(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.loadAndSettle(t, "intro")
	h.fetch.bodies["summary.html"] = "  \n"

	require.NoError(t, h.nav.Load("summary", model.TransitionR2L))
	h.v.Settle(50)

	assert.Equal(t, "intro", h.nav.CurrentPage())
	assert.False(t, h.nav.Surfaces()[0].Loading)
	assert.Empty(t, h.nav.Target())
	assert.Equal(t, StateIdle, h.nav.State())
	assert.Equal(t, 1, h.count(EventAbandoned))
}

func TestLoad_LatestRequestWins(t *testing.T) {
	for _, order := range [][2]int{{0, 0}, {1, 0}} {
		h := newHarness(t, DefaultConfig())
		h.loadAndSettle(t, "intro")

		require.NoError(t, h.nav.Load("moa.overview", model.TransitionR2L))
		require.NoError(t, h.nav.Load("summary", model.TransitionR2L))
		require.Equal(t, 2, h.v.Jobs())

		h.v.RunJob(order[0])
		h.v.RunJob(order[1])
		h.v.Settle(50)

		assert.Equal(t, "summary", h.nav.CurrentPage())
		assert.Equal(t, "<p>summary.html</p>", h.nav.Displayed().Content)
		assert.Len(t, h.beacon.events, 2)
	}
}

func TestLoad_DisplayedPageCancelsPending(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.loadAndSettle(t, "intro")

	require.NoError(t, h.nav.Load("moa.overview", model.TransitionR2L))
	require.NoError(t, h.nav.Load("intro", model.TransitionL2R))

	assert.Equal(t, StateIdle, h.nav.State())
	assert.Empty(t, h.nav.Target())
	assert.False(t, h.nav.Surfaces()[0].Loading)

	h.v.Settle(50)
	assert.Equal(t, "intro", h.nav.CurrentPage())
	assert.Equal(t, []string{"intro.html", "moa/overview.html"}, h.fetch.calls)
	assert.Len(t, h.beacon.events, 1)
}

func TestNextPrev_QuickReturnKeepsDisplayedPage(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.loadAndSettle(t, "intro")

	require.NoError(t, h.nav.Next())
	require.NoError(t, h.nav.Prev())
	h.v.Settle(50)

	assert.Equal(t, "intro", h.nav.CurrentPage())
	cursor, ok := h.tracker.Cursor()
	require.True(t, ok)
	assert.Equal(t, 0, cursor)
}

func TestLoad_ButtonIsNotAPage(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.nav.reg.BuildIndex([]*sitemap.Node{{ID: "pi", Title: "PI", Kind: model.KindButton, ContentRef: "docs/pi.html"}})
	h.loadAndSettle(t, "intro")

	var nf *model.NotFoundError
	require.ErrorAs(t, h.nav.Load("pi", model.TransitionR2L), &nf)
	assert.Equal(t, "pi", nf.ID)
	assert.Equal(t, []string{"intro.html"}, h.fetch.calls)
	assert.Equal(t, "intro", h.nav.CurrentPage())
}

func TestLoad_NormalizesTransition(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	require.NoError(t, h.nav.Load("intro", ""))
	h.v.Settle(50)
	assert.Equal(t, model.TransitionNone, h.nav.Displayed().Transition)

	require.NoError(t, h.nav.Load("summary", model.Transition("sideways")))
	h.v.Settle(50)
	assert.Equal(t, model.TransitionNone, h.nav.Displayed().Transition)

	require.NoError(t, h.nav.Load("moa.overview", model.Transition("r2l")))
	h.v.Settle(50)
	assert.Equal(t, model.TransitionR2L, h.nav.Displayed().Transition)
}

func TestSwapTimers_OnlyLatestSwapActs(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.loadAndSettle(t, "intro")

	require.NoError(t, h.nav.Load("summary", model.TransitionR2L))
	h.v.RunJob(0)
	require.Equal(t, 0, h.nav.Current())

	h.v.Advance(2 * time.Millisecond)
	require.NoError(t, h.nav.Load("moa.overview", model.TransitionR2L))
	h.v.RunJob(0)
	require.Equal(t, 1, h.nav.Current())

	require.NoError(t, h.nav.Load("moa.detail", model.TransitionR2L))
	require.True(t, h.nav.Surfaces()[0].Loading)

	// First swap's reveal.
	h.v.Advance(8 * time.Millisecond)
	assert.True(t, h.nav.Surfaces()[0].Loading, "re-staged surface keeps its marker")
	assert.True(t, h.nav.Surfaces()[1].Loading)

	h.v.Advance(2 * time.Millisecond)
	assert.False(t, h.nav.Surfaces()[1].Loading)

	// First swap's settle.
	h.v.Advance(488 * time.Millisecond)
	assert.False(t, h.nav.Surfaces()[0].Hidden)

	h.v.Advance(2 * time.Millisecond)
	assert.True(t, h.nav.Surfaces()[0].Hidden)
	assert.False(t, h.nav.Surfaces()[1].Hidden)
	assert.Equal(t, StateRequesting, h.nav.State())
}

func TestShowTab(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	assert.ErrorIs(t, h.nav.ShowTab(1), model.ErrNotReady)
	h.loadAndSettle(t, "intro")

	require.NoError(t, h.nav.ShowTab(2))
	assert.Equal(t, 2, h.nav.Displayed().Tab)

	h.loadAndSettle(t, "summary")
	assert.Zero(t, h.nav.Displayed().Tab)
}

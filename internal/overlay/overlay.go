// Package overlay is the single modal content surface shown above the page
// surfaces.
package overlay

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/tinytelemetry/edetail/internal/clock"
	"github.com/tinytelemetry/edetail/internal/model"
)

// ErrElementNotFound is returned by an inline Show whose element id is not
// present on the displayed surface.
var ErrElementNotFound = errors.New("overlay: element not found")

// Mode selects where Show takes its content from.
type Mode string

const (
	ModePassed Mode = "passed"
	ModeInline Mode = "inline"
	ModeAjax   Mode = "ajax"
	ModeImage  Mode = "image"
)

// ParseMode accepts the short and descriptive spellings. Anything unknown
// shows the content as passed.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inline", "inline-reference":
		return ModeInline
	case "ajax", "remote", "remote-fetch":
		return ModeAjax
	case "image":
		return ModeImage
	}
	return ModePassed
}

// Fetcher loads remote overlay content.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (string, error)
}

// Source exposes the markup of the displayed surface for inline lookups.
type Source interface {
	Markup() string
}

// SourceFunc adapts a function to Source.
type SourceFunc func() string

func (f SourceFunc) Markup() string { return f() }

// Drawer is closed whenever the overlay is shown.
type Drawer interface {
	Hide()
}

// Deps wires a Controller. Scheduler is required; Fetcher and Source are
// only needed by the ajax and inline modes.
type Deps struct {
	Scheduler clock.Scheduler
	Fetcher   Fetcher
	Source    Source
	Drawer    Drawer
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Controller holds the overlay's visibility, style class and content.
type Controller struct {
	sched   clock.Scheduler
	fetcher Fetcher
	source  Source
	drawer  Drawer
	timeout time.Duration
	log     *slog.Logger

	visible  bool
	class    string
	content  string
	gen      uint64
	onChange func()
}

// New returns a hidden overlay.
func New(deps Deps) *Controller {
	c := &Controller{
		sched:   deps.Scheduler,
		fetcher: deps.Fetcher,
		source:  deps.Source,
		drawer:  deps.Drawer,
		timeout: deps.Timeout,
		log:     deps.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = model.DefaultFetchTimeout
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.log = c.log.With("component", "overlay")
	return c
}

// SetDrawer attaches the drawer after construction.
func (c *Controller) SetDrawer(d Drawer) { c.drawer = d }

// OnChange registers fn to run after every visible change.
func (c *Controller) OnChange(fn func()) { c.onChange = fn }

// Show displays content according to mode with class as the extra style
// class. Ajax content is applied when the fetch completes; a failed fetch
// leaves the overlay as it was.
func (c *Controller) Show(content string, mode Mode, class string) error {
	if c.drawer != nil {
		c.drawer.Hide()
	}
	c.gen++

	switch mode {
	case ModeAjax:
		if c.fetcher == nil {
			return errors.New("overlay: no fetcher for remote content")
		}
		c.fetch(c.gen, content, class)
		return nil
	case ModeImage:
		c.apply(`<img src="`+html.EscapeString(content)+`" alt="">`, class)
	case ModeInline:
		var markup string
		if c.source != nil {
			markup = c.source.Markup()
		}
		inner, ok := ElementInner(markup, content)
		if !ok {
			c.log.Debug("overlay: inline element missing", "id", content)
			return ErrElementNotFound
		}
		c.apply(inner, class)
	default:
		c.apply(content, class)
	}
	return nil
}

func (c *Controller) fetch(gen uint64, ref, class string) {
	fetcher, timeout := c.fetcher, c.timeout
	c.sched.Go(func() func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		body, err := fetcher.Fetch(ctx, ref)
		return func() {
			if gen != c.gen {
				return
			}
			if err != nil {
				c.log.Warn("overlay: remote content failed", "ref", ref, "err", err)
				return
			}
			c.apply(body, class)
		}
	})
}

func (c *Controller) apply(content, class string) {
	c.content = content
	c.class = strings.TrimSpace(class + " active")
	c.visible = true
	c.changed()
}

// Hide clears the class, visibility and content. Pending remote content is
// discarded.
func (c *Controller) Hide() {
	c.gen++
	if !c.visible && c.content == "" && c.class == "" {
		return
	}
	c.visible = false
	c.class = ""
	c.content = ""
	c.changed()
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

// Visible reports whether the overlay is shown.
func (c *Controller) Visible() bool { return c.visible }

// Content returns the injected markup.
func (c *Controller) Content() string { return c.content }

// Class returns the style class, including the "active" marker when shown.
func (c *Controller) Class() string { return c.class }

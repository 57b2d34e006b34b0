// Package session wires one presentation: the sitemap index, the path
// tracker, the navigator and the drawer, overlay and tracking components
// that share its scheduler loop.
package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tinytelemetry/edetail/internal/clock"
	"github.com/tinytelemetry/edetail/internal/menu"
	"github.com/tinytelemetry/edetail/internal/model"
	"github.com/tinytelemetry/edetail/internal/navigator"
	"github.com/tinytelemetry/edetail/internal/overlay"
	"github.com/tinytelemetry/edetail/internal/pathtrack"
	"github.com/tinytelemetry/edetail/internal/sitemap"
	"github.com/tinytelemetry/edetail/internal/tracking"
)

// Config holds the per-session settings and engine timings.
type Config struct {
	Settings     model.Settings
	Navigator    navigator.Config
	FetchTimeout time.Duration
}

// Fetcher serves page fragments and remote overlay content.
type Fetcher interface {
	navigator.ContentFetcher
	overlay.Fetcher
}

// Deps are the session's external collaborators.
type Deps struct {
	Scheduler clock.Scheduler
	Fetcher   Fetcher
	Transport tracking.Transport
	Logger    *slog.Logger
}

// Session is the per-presentation context object.
type Session struct {
	ID       string
	Settings model.Settings

	Doc       *sitemap.Document
	Registry  *sitemap.Registry
	Paths     *pathtrack.Tracker
	Navigator *navigator.Navigator
	Menu      *menu.Menu
	Overlay   *overlay.Controller
	Beacon    *tracking.Beacon

	log *slog.Logger
}

// New indexes doc and wires the components. A missing default path is a
// ConfigurationError.
func New(doc *sitemap.Document, cfg Config, deps Deps) (*Session, error) {
	if doc == nil {
		return nil, &model.ConfigurationError{Reason: "no sitemap document"}
	}
	settings := cfg.Settings
	if err := settings.Validate(); err != nil {
		return nil, &model.ConfigurationError{Reason: "settings", Err: err}
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Session{
		ID:       uuid.NewString(),
		Settings: settings,
		Doc:      doc,
		Registry: sitemap.NewRegistry(),
	}
	s.log = log.With("session", s.ID)

	skipped := s.Registry.BuildIndex(doc.Pages)
	skipped = append(skipped, s.Registry.BuildIndex(doc.Buttons)...)
	if len(skipped) > 0 {
		s.log.Warn("session: duplicate sitemap ids ignored", "ids", skipped)
	}

	s.Paths = pathtrack.New(doc.Paths, settings.SwipePath)
	if err := s.Paths.SetPath(settings.SwipePath, ""); err != nil {
		return nil, err
	}

	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = model.DefaultFetchTimeout
	}

	s.Menu = menu.New(settings.LockNav)
	s.Overlay = overlay.New(overlay.Deps{
		Scheduler: deps.Scheduler,
		Fetcher:   deps.Fetcher,
		Source:    overlay.SourceFunc(func() string { return s.Navigator.Displayed().Content }),
		Drawer:    s.Menu,
		Timeout:   timeout,
		Logger:    s.log,
	})
	s.Beacon = tracking.New(tracking.Deps{
		Scheduler: deps.Scheduler,
		Transport: deps.Transport,
		Session:   s.ID,
		Logger:    s.log,
	})

	navCfg := cfg.Navigator
	navCfg.LockNav = settings.LockNav
	navCfg.FetchTimeout = timeout
	s.Navigator = navigator.New(navCfg, navigator.Deps{
		Registry:  s.Registry,
		Tracker:   s.Paths,
		Fetcher:   deps.Fetcher,
		Scheduler: deps.Scheduler,
		Menu:      s.Menu,
		Overlay:   s.Overlay,
		Beacon:    s.Beacon,
		Logger:    s.log,
	})
	s.Menu.Bind(s.Navigator)

	s.log.Info("session: ready", "pages", s.Registry.Len(), "path", s.Paths.Name(), "primary", settings.Primary)
	return s, nil
}

// Start loads the primary page with a fade.
func (s *Session) Start() error {
	if err := s.Navigator.Load(s.Settings.Primary, model.TransitionFade); err != nil {
		return fmt.Errorf("load primary page %q: %w", s.Settings.Primary, err)
	}
	return nil
}

// SetPath switches the active path, keeping the cursor on the displayed
// page when it is part of the new path.
func (s *Session) SetPath(name string) error {
	return s.Paths.SetPath(name, s.Navigator.CurrentPage())
}

// Open handles a drawer or button bar selection. Headers toggle their
// accordion entry while the drawer is open, buttons show their document in
// the overlay, everything else navigates.
func (s *Session) Open(id string) error {
	node, ok := s.Registry.Lookup(id)
	if !ok {
		return &model.NotFoundError{ID: id}
	}
	switch {
	case node.Kind == model.KindHeader && s.Menu.IsOpen():
		s.Menu.ItemToggle(node.ID)
		return nil
	case node.Kind == model.KindButton:
		if node.ContentRef == "" {
			return &model.NotFoundError{ID: id}
		}
		if err := s.Overlay.Show(node.ContentRef, overlay.ModeAjax, "button"); err != nil {
			return err
		}
		s.Menu.SetActiveButton(node.ID)
		return nil
	}
	return s.Navigator.Navigate(node.ID, s.Settings.Transition)
}

// Buttons returns the button bar entries shown to the user.
func (s *Session) Buttons() []*sitemap.Node {
	var out []*sitemap.Node
	for _, b := range s.Doc.Buttons {
		if b != nil && b.Kind == model.KindButton {
			out = append(out, b)
		}
	}
	return out
}

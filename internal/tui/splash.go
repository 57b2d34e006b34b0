package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/edetail/internal/model"
	"github.com/tinytelemetry/edetail/internal/session"
	"github.com/tinytelemetry/edetail/internal/sitemap"
)

// SplashID is the page id of the bootstrap screen.
const SplashID = "splash"

// SplashConfig wires the bootstrap screen.
type SplashConfig struct {
	Ctx    context.Context
	Loader session.DocumentLoader
	Policy session.RetryPolicy
	// Build creates the session once the sitemap has loaded.
	Build func(doc *sitemap.Document) (*session.Session, error)
	// Next is the page shown after a successful bootstrap.
	Next string
}

type bootstrapDoneMsg struct {
	sess *session.Session
	err  error
}

// SplashPage fetches the sitemap and builds the session. A configuration
// error stays on screen until the user quits.
type SplashPage struct {
	cfg  SplashConfig
	keys KeyMap
	spin spinner.Model
	err  error
}

// NewSplashPage returns the bootstrap page.
func NewSplashPage(cfg SplashConfig) *SplashPage {
	if cfg.Ctx == nil {
		cfg.Ctx = context.Background()
	}
	if cfg.Next == "" {
		cfg.Next = PresenterID
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorBlue)
	return &SplashPage{cfg: cfg, keys: DefaultKeyMap(), spin: sp}
}

func (p *SplashPage) ID() string { return SplashID }

func (p *SplashPage) Init() tea.Cmd {
	return tea.Batch(p.spin.Tick, p.bootstrap())
}

func (p *SplashPage) bootstrap() tea.Cmd {
	cfg := p.cfg
	return func() tea.Msg {
		doc, err := session.Bootstrap(cfg.Ctx, cfg.Loader, cfg.Policy)
		if err != nil {
			return bootstrapDoneMsg{err: err}
		}
		sess, err := cfg.Build(doc)
		return bootstrapDoneMsg{sess: sess, err: err}
	}
}

// Err returns the fatal bootstrap error, if any.
func (p *SplashPage) Err() error { return p.err }

func (p *SplashPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case bootstrapDoneMsg:
		if msg.err != nil {
			p.err = msg.err
			return nil, nil
		}
		return nil, &PageNav{PageID: p.cfg.Next, Params: msg.sess}
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return tea.Quit, nil
		}
	case spinner.TickMsg:
		if p.err != nil {
			return nil, nil
		}
		var cmd tea.Cmd
		p.spin, cmd = p.spin.Update(msg)
		return cmd, nil
	}
	return nil, nil
}

func (p *SplashPage) View(width, height int) string {
	var body string
	if p.err != nil {
		title := "Startup failed"
		var cfgErr *model.ConfigurationError
		if errors.As(p.err, &cfgErr) {
			title = "Configuration error"
		}
		body = lipgloss.JoinVertical(lipgloss.Center,
			errorStyle.Bold(true).Render(title),
			"",
			lipgloss.NewStyle().Width(max(20, width-10)).Align(lipgloss.Center).Render(p.err.Error()),
			"",
			mutedStyle.Render("press q to quit"),
		)
	} else {
		path := p.cfg.Policy.Path
		if path == "" {
			path = model.DefaultSitemapPath
		}
		body = lipgloss.JoinVertical(lipgloss.Center,
			headerStyle.Render("edetail"),
			"",
			fmt.Sprintf("%s loading %s", p.spin.View(), path),
		)
	}
	if width <= 0 || height <= 0 {
		return body
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}

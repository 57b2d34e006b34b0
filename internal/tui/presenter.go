package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tinytelemetry/edetail/internal/clock"
	"github.com/tinytelemetry/edetail/internal/model"
	"github.com/tinytelemetry/edetail/internal/navigator"
	"github.com/tinytelemetry/edetail/internal/session"
)

// PresenterID is the page id of the slide presenter.
const PresenterID = "presenter"

// PresenterConfig wires the presenter to the engine loop.
type PresenterConfig struct {
	Ctx    context.Context
	Loop   *clock.Loop
	Debug  bool
	Logger *slog.Logger
}

// PresenterPage shows the displayed surface with the drawer, button bar,
// overlay and a status line. All engine calls happen inside Update.
type PresenterPage struct {
	cfg  PresenterConfig
	log  *slog.Logger
	keys KeyMap
	sess *session.Session

	spin     spinner.Model
	content  viewport.Model
	modalVP  viewport.Model
	frag     *fragmentRenderer
	overlayR *fragmentRenderer

	width, height int
	cursor        int
	showHelp      bool
	buttonIdx     int

	status    string
	statusErr bool
	lastTrack model.TrackResult
}

// NewPresenterPage returns an empty presenter; Enter attaches the session.
func NewPresenterPage(cfg PresenterConfig) *PresenterPage {
	if cfg.Ctx == nil {
		cfg.Ctx = context.Background()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(ColorYellow).Background(ColorNavy)
	return &PresenterPage{
		cfg:      cfg,
		log:      cfg.Logger.With("component", "tui"),
		keys:     DefaultKeyMap(),
		spin:     sp,
		content:  viewport.New(0, 0),
		modalVP:  viewport.New(0, 0),
		frag:     newFragmentRenderer(),
		overlayR: newFragmentRenderer(),
	}
}

func (p *PresenterPage) ID() string { return PresenterID }

func (p *PresenterPage) Init() tea.Cmd { return nil }

// Session returns the attached session, or nil.
func (p *PresenterPage) Session() *session.Session { return p.sess }

// Enter attaches the session built by the splash page and loads the
// primary page.
func (p *PresenterPage) Enter(params any) tea.Cmd {
	sess, ok := params.(*session.Session)
	if !ok || sess == nil {
		p.setStatus(errors.New("no session"), true)
		return nil
	}
	p.sess = sess
	sess.Navigator.Subscribe(p.onEvent)
	sess.Beacon.AddCallback(func(r model.TrackResult) { p.lastTrack = r })

	if err := sess.Start(); err != nil {
		p.setStatus(err, true)
	}
	return tea.Batch(waitForTask(p.cfg.Ctx, p.cfg.Loop), p.spin.Tick)
}

func (p *PresenterPage) onEvent(ev navigator.Event) {
	switch ev.Kind {
	case navigator.EventAbandoned:
		if ev.Err != nil {
			p.setStatus(fmt.Errorf("load %s: %w", ev.PageID, ev.Err), true)
		}
	case navigator.EventRetry:
		p.setStatus(fmt.Errorf("retrying %s (attempt %d)", ev.PageID, ev.Attempt), false)
	case navigator.EventLoaded:
		p.status, p.statusErr = "", false
		p.content.GotoTop()
	}
}

func (p *PresenterPage) setStatus(err error, isErr bool) {
	if err == nil {
		p.status, p.statusErr = "", false
		return
	}
	p.status, p.statusErr = err.Error(), isErr
}

// report turns the result of a user action into a status message. Refusals
// are expected outcomes and are not shown as errors.
func (p *PresenterPage) report(err error) {
	var nf *model.NotFoundError
	switch {
	case err == nil:
		p.setStatus(nil, false)
	case errors.Is(err, model.ErrSamePage):
		p.setStatus(errors.New("already on that page"), false)
	case errors.Is(err, model.ErrLocked):
		p.setStatus(errors.New("navigation is locked"), false)
	case errors.As(err, &nf):
		p.setStatus(err, false)
	default:
		p.setStatus(err, true)
	}
}

func (p *PresenterPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case loopTaskMsg:
		msg.fn()
		return waitForTask(p.cfg.Ctx, p.cfg.Loop), nil
	case loopClosedMsg:
		return nil, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spin, cmd = p.spin.Update(msg)
		return cmd, nil
	case tea.WindowSizeMsg:
		p.width, p.height = msg.Width, msg.Height
		return nil, nil
	case tea.MouseMsg:
		var cmd tea.Cmd
		if p.showHelp || (p.sess != nil && p.sess.Overlay.Visible()) {
			p.modalVP, cmd = p.modalVP.Update(msg)
		} else {
			p.content, cmd = p.content.Update(msg)
		}
		return cmd, nil
	case tea.KeyMsg:
		return p.handleKey(msg), nil
	}
	return nil, nil
}

func (p *PresenterPage) handleKey(msg tea.KeyMsg) tea.Cmd {
	k := p.keys
	if key.Matches(msg, k.ForceQuit) {
		return tea.Quit
	}

	if p.showHelp {
		switch {
		case key.Matches(msg, k.Escape), key.Matches(msg, k.Help), key.Matches(msg, k.Quit):
			p.showHelp = false
		default:
			var cmd tea.Cmd
			p.modalVP, cmd = p.modalVP.Update(msg)
			return cmd
		}
		return nil
	}
	if key.Matches(msg, k.Help) {
		p.showHelp = true
		p.modalVP.GotoTop()
		return nil
	}
	if key.Matches(msg, k.Quit) {
		return tea.Quit
	}
	if p.sess == nil {
		return nil
	}

	switch {
	case p.sess.Overlay.Visible():
		return p.handleOverlayKey(msg)
	case p.sess.Menu.IsOpen():
		return p.handleDrawerKey(msg)
	}
	return p.handleSlideKey(msg)
}

func (p *PresenterPage) handleOverlayKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, p.keys.Escape) {
		p.sess.Overlay.Hide()
		p.sess.Menu.ClearButtonBar()
		return nil
	}
	var cmd tea.Cmd
	p.modalVP, cmd = p.modalVP.Update(msg)
	return cmd
}

func (p *PresenterPage) handleDrawerKey(msg tea.KeyMsg) tea.Cmd {
	k := p.keys
	rows := drawerRows(p.sess.Doc.Pages, p.sess.Menu)
	switch {
	case key.Matches(msg, k.Escape), key.Matches(msg, k.Drawer):
		p.sess.Menu.Hide()
	case key.Matches(msg, k.Up):
		p.cursor = clampCursor(p.cursor-1, len(rows))
	case key.Matches(msg, k.Down):
		p.cursor = clampCursor(p.cursor+1, len(rows))
	case key.Matches(msg, k.Enter):
		if len(rows) == 0 {
			return nil
		}
		p.cursor = clampCursor(p.cursor, len(rows))
		p.report(p.sess.Open(rows[p.cursor].node.ID))
	}
	return nil
}

func (p *PresenterPage) handleSlideKey(msg tea.KeyMsg) tea.Cmd {
	k := p.keys
	nav := p.sess.Navigator
	switch {
	case key.Matches(msg, k.Next):
		p.report(nav.Next())
	case key.Matches(msg, k.Prev):
		p.report(nav.Prev())
	case key.Matches(msg, k.Tab):
		n, _ := strconv.Atoi(msg.String())
		p.report(nav.ShowTab(n - 1))
	case key.Matches(msg, k.Path):
		p.report(p.sess.SetPath(p.nextPathName()))
	case key.Matches(msg, k.Lock):
		if nav.Locked() {
			nav.Unlock()
		} else {
			nav.Lock()
		}
	case key.Matches(msg, k.Drawer):
		if p.sess.Menu.Toggle() {
			p.cursor = p.activeRow()
		} else if nav.Locked() && !p.sess.Menu.IsOpen() {
			p.report(model.ErrLocked)
		}
	case key.Matches(msg, k.Button):
		buttons := p.sess.Buttons()
		if len(buttons) == 0 {
			return nil
		}
		b := buttons[p.buttonIdx%len(buttons)]
		p.buttonIdx++
		p.modalVP.GotoTop()
		p.report(p.sess.Open(b.ID))
	default:
		var cmd tea.Cmd
		p.content, cmd = p.content.Update(msg)
		return cmd
	}
	return nil
}

// nextPathName cycles through the sitemap's paths in name order.
func (p *PresenterPage) nextPathName() string {
	names := make([]string, 0, len(p.sess.Doc.Paths))
	for name := range p.sess.Doc.Paths {
		names = append(names, name)
	}
	slices.Sort(names)
	if len(names) == 0 {
		return p.sess.Paths.Name()
	}
	i := slices.Index(names, p.sess.Paths.Name())
	return names[(i+1)%len(names)]
}

func (p *PresenterPage) activeRow() int {
	active := p.sess.Menu.Active()
	for i, row := range drawerRows(p.sess.Doc.Pages, p.sess.Menu) {
		if row.node.Key() == active {
			return i
		}
	}
	return 0
}

func (p *PresenterPage) View(width, height int) string {
	if width <= 0 || height <= 0 {
		return "Initializing presenter..."
	}
	if width < 40 || height < 10 {
		return "Terminal too small. Resize to at least 40x10."
	}
	if p.showHelp {
		return renderModal(&p.modalVP, "Keys", helpContent(p.keys), "↑/↓: Scroll | ESC/?: Close", width, height)
	}
	if p.sess == nil {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, errorStyle.Render(p.status))
	}
	if p.sess.Overlay.Visible() {
		body := p.overlayR.Render(p.sess.Overlay.Content(), width-16)
		title := "Overlay"
		if c := p.sess.Overlay.Class(); c != "" {
			title += " · " + c
		}
		return renderModal(&p.modalVP, title, body, "↑/↓: Scroll | ESC: Close", width, height)
	}

	header := p.renderHeader(width)
	status := p.renderStatus(width)
	buttons := renderButtonBar(p.sess.Buttons(), p.sess.Menu.ActiveButton())

	bodyHeight := height - lipgloss.Height(header) - lipgloss.Height(status)
	if buttons != "" {
		bodyHeight--
	}

	contentWidth := width
	var drawer string
	if p.sess.Menu.IsOpen() {
		rows := drawerRows(p.sess.Doc.Pages, p.sess.Menu)
		p.cursor = clampCursor(p.cursor, len(rows))
		drawer = renderDrawer(rows, p.sess.Menu, p.cursor, bodyHeight-2)
		contentWidth -= lipgloss.Width(drawer)
	}

	body := p.renderSurface(contentWidth, bodyHeight)
	if drawer != "" {
		body = lipgloss.JoinHorizontal(lipgloss.Top, drawer, body)
	}

	parts := []string{header, body}
	if buttons != "" {
		parts = append(parts, buttons)
	}
	parts = append(parts, status)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (p *PresenterPage) renderHeader(width int) string {
	title := "-"
	if pg := p.sess.Navigator.Page(); pg != nil {
		title = pg.Title
		if title == "" {
			title = pg.ID
		}
	}

	pos := "-"
	if i, ok := p.sess.Paths.Cursor(); ok {
		pos = fmt.Sprintf("%d/%d", i+1, p.sess.Paths.Len())
	}
	right := fmt.Sprintf("%s %s", p.sess.Paths.Name(), pos)
	if p.sess.Navigator.Locked() {
		right = "🔒 " + right
	}

	gap := width - lipgloss.Width(title) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return headerStyle.Width(width).Render(title + strings.Repeat(" ", gap) + right)
}

func (p *PresenterPage) renderSurface(width, height int) string {
	surf := p.sess.Navigator.Displayed()
	if surf.Loading || surf.PageID == "" {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			mutedStyle.Italic(true).Render(p.spin.View()+" Loading..."))
	}

	text := p.frag.Render(surf.Content, width-2)
	if surf.Tab > 0 {
		text = mutedStyle.Render(fmt.Sprintf("tab %d", surf.Tab+1)) + "\n\n" + text
	}
	p.content.Width = width
	p.content.Height = height
	p.content.SetContent(text)
	return p.content.View()
}

func (p *PresenterPage) renderStatus(width int) string {
	nav := p.sess.Navigator
	state := nav.State().String()
	stateText := lipgloss.NewStyle().
		Background(ColorNavy).
		Foreground(stateColor(state)).
		Bold(true).
		Render(" " + state + " ")

	items := []string{stateText}
	if state == "requesting" || state == "retry" {
		items = append(items, p.spin.View())
	}
	if t := nav.Displayed().Transition; t != "" {
		items = append(items, t.Arrow())
	}
	if p.status != "" {
		st := lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorWhite)
		if p.statusErr {
			st = st.Foreground(ColorRed)
		}
		items = append(items, st.Render(p.status))
	}
	if p.cfg.Debug {
		items = append(items, fmt.Sprintf("tracked:%d", p.sess.Beacon.Sent()))
		if p.lastTrack != nil {
			items = append(items, fmt.Sprintf("last:%v", p.lastTrack["success"]))
		}
	}
	items = append(items, mutedStyle.Background(ColorNavy).Render("?: help"))

	return statusStyle.Width(width).Render(strings.Join(items, " "))
}

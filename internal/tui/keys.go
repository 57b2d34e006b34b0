package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all presenter key bindings with built-in help text.
type KeyMap struct {
	// Global
	Quit      key.Binding
	ForceQuit key.Binding
	Help      key.Binding
	Escape    key.Binding

	// Slides
	Next key.Binding
	Prev key.Binding
	Tab  key.Binding
	Path key.Binding
	Lock key.Binding

	// Drawer and button bar
	Drawer key.Binding
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Button key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close overlay/drawer"),
		),

		Next: key.NewBinding(
			key.WithKeys("right", "l", " "),
			key.WithHelp("→/l/space", "next slide"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous slide"),
		),
		Tab: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "show tab"),
		),
		Path: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "next swipe path"),
		),
		Lock: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "lock/unlock navigation"),
		),

		Drawer: key.NewBinding(
			key.WithKeys("m", "tab"),
			key.WithHelp("m/tab", "toggle menu"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open menu entry"),
		),
		Button: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "next button bar document"),
		),
	}
}

// Groups returns the bindings by section for the help modal.
func (k KeyMap) Groups() []struct {
	Title    string
	Bindings []key.Binding
} {
	return []struct {
		Title    string
		Bindings []key.Binding
	}{
		{"Slides", []key.Binding{k.Next, k.Prev, k.Tab, k.Path, k.Lock}},
		{"Menu", []key.Binding{k.Drawer, k.Up, k.Down, k.Enter, k.Button}},
		{"General", []key.Binding{k.Escape, k.Help, k.Quit, k.ForceQuit}},
	}
}

// Package menu holds the open/closed and highlight state of the navigation
// drawer, its accordion items and the button bar.
package menu

import (
	"sort"

	"github.com/tinytelemetry/edetail/internal/sitemap"
)

// LockState exposes the navigator's lock flag.
type LockState interface {
	Locked() bool
}

// ItemState is the visual state of one drawer entry.
type ItemState struct {
	Active bool
	Open   bool
}

// Menu is the drawer state. Item ids are formatted with sitemap.FormatID.
type Menu struct {
	lock    LockState
	lockNav bool

	open         bool
	items        map[string]*ItemState
	activeButton string
}

// New returns a closed drawer. lockNav makes Show a no-op while locked.
func New(lockNav bool) *Menu {
	return &Menu{lockNav: lockNav, items: make(map[string]*ItemState)}
}

// Bind attaches the lock owner. Until bound the drawer is never locked.
func (m *Menu) Bind(lock LockState) { m.lock = lock }

func (m *Menu) locked() bool {
	return m.lockNav && m.lock != nil && m.lock.Locked()
}

// Toggle opens a closed drawer and closes an open one. It reports whether
// the drawer is open afterwards.
func (m *Menu) Toggle() bool {
	if m.open {
		m.Hide()
	} else {
		m.Show()
	}
	return m.open
}

// Show opens the drawer unless navigation is locked.
func (m *Menu) Show() bool {
	if m.locked() {
		return false
	}
	m.open = true
	return true
}

// Hide closes the drawer.
func (m *Menu) Hide() { m.open = false }

// IsOpen reports whether the drawer is open.
func (m *Menu) IsOpen() bool { return m.open }

func (m *Menu) item(id string) *ItemState {
	key := sitemap.FormatID(id)
	st, ok := m.items[key]
	if !ok {
		st = &ItemState{}
		m.items[key] = st
	}
	return st
}

// ItemToggle is the accordion: an open item closes, otherwise every other
// open marker is cleared before the item opens.
func (m *Menu) ItemToggle(id string) {
	st := m.item(id)
	if st.Open {
		st.Open = false
		return
	}
	for _, other := range m.items {
		other.Open = false
	}
	st.Open = true
}

// Highlight marks id as the active entry and opens its ancestors, and the
// entry itself when it has children. All previous markers are cleared.
func (m *Menu) Highlight(id string, ancestors []string, hasChildren bool) {
	for _, st := range m.items {
		st.Active = false
		st.Open = false
	}
	st := m.item(id)
	st.Active = true
	st.Open = hasChildren
	for _, a := range ancestors {
		m.item(a).Open = true
	}
}

// Item returns the state of one entry.
func (m *Menu) Item(id string) ItemState {
	if st, ok := m.items[sitemap.FormatID(id)]; ok {
		return *st
	}
	return ItemState{}
}

// Active returns the formatted id of the active entry, if any.
func (m *Menu) Active() string {
	for key, st := range m.items {
		if st.Active {
			return key
		}
	}
	return ""
}

// OpenItems returns the formatted ids of open entries in sorted order.
func (m *Menu) OpenItems() []string {
	var out []string
	for key, st := range m.items {
		if st.Open {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// SetActiveButton highlights a button bar entry.
func (m *Menu) SetActiveButton(id string) { m.activeButton = sitemap.FormatID(id) }

// ClearButtonBar clears the active button bar entry.
func (m *Menu) ClearButtonBar() { m.activeButton = "" }

// ActiveButton returns the formatted id of the active button, if any.
func (m *Menu) ActiveButton() string { return m.activeButton }

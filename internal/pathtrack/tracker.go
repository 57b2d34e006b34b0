// Package pathtrack tracks the active segmentation path and the cursor within it.
package pathtrack

import (
	"fmt"

	"github.com/tinytelemetry/edetail/internal/model"
)

// Tracker holds the named paths, the active one and the cursor into it.
type Tracker struct {
	paths       map[string][]string
	defaultName string

	name   string
	path   []string
	cursor int
	set    bool
}

// New returns a tracker over paths with defaultName as the fallback path.
// No path is active until SetPath succeeds.
func New(paths map[string][]string, defaultName string) *Tracker {
	return &Tracker{paths: paths, defaultName: defaultName}
}

// SetPath activates the named path, falling back to the default path when
// name is unknown. The cursor moves to the first occurrence of currentPage,
// or to the start of the path when the page is not on it (the visible page
// does not change in that case, only the position).
func (t *Tracker) SetPath(name, currentPage string) error {
	path, ok := t.paths[name]
	if !ok {
		name = t.defaultName
		path, ok = t.paths[name]
	}
	if !ok {
		return &model.ConfigurationError{
			Reason: fmt.Sprintf("path %q and default path %q are not defined", name, t.defaultName),
			Err:    model.ErrNoPath,
		}
	}
	if len(path) == 0 {
		return &model.ConfigurationError{
			Reason: fmt.Sprintf("path %q is empty", name),
			Err:    model.ErrNoPath,
		}
	}

	t.name = name
	t.path = path
	t.set = true
	t.cursor = 0
	if i := t.indexOf(currentPage); i >= 0 {
		t.cursor = i
	}
	return nil
}

// Advance moves the cursor one step forward and returns the page id at the
// new position. It does nothing while locked or at the end of the path.
func (t *Tracker) Advance(locked bool) (string, bool) {
	if locked || !t.set || t.cursor >= len(t.path)-1 {
		return "", false
	}
	t.cursor++
	return t.path[t.cursor], true
}

// Retreat moves the cursor one step back and returns the page id at the new
// position. It does nothing while locked or at the start of the path.
func (t *Tracker) Retreat(locked bool) (string, bool) {
	if locked || !t.set || t.cursor <= 0 {
		return "", false
	}
	t.cursor--
	return t.path[t.cursor], true
}

// Resync realigns the cursor after pageID became the displayed page. When the
// page is not on the active path the default path is selected again.
func (t *Tracker) Resync(pageID string) error {
	if !t.set {
		return t.SetPath(t.defaultName, pageID)
	}
	if t.path[t.cursor] == pageID {
		return nil
	}
	if i := t.indexOf(pageID); i >= 0 {
		t.cursor = i
		return nil
	}
	return t.SetPath(t.defaultName, pageID)
}

// Name returns the active path name.
func (t *Tracker) Name() string { return t.name }

// Active returns a copy of the active path.
func (t *Tracker) Active() []string {
	out := make([]string, len(t.path))
	copy(out, t.path)
	return out
}

// Cursor returns the cursor, or false before any path is set.
func (t *Tracker) Cursor() (int, bool) {
	if !t.set {
		return 0, false
	}
	return t.cursor, true
}

// Len returns the length of the active path.
func (t *Tracker) Len() int { return len(t.path) }

func (t *Tracker) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, p := range t.path {
		if p == id {
			return i
		}
	}
	return -1
}

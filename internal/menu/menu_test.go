package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeLock bool

func (l *fakeLock) Locked() bool { return bool(*l) }

func TestItemToggle_Accordion(t *testing.T) {
	m := New(true)

	m.ItemToggle("nav-a")
	m.ItemToggle("nav-b")

	assert.True(t, m.Item("nav-b").Open)
	assert.False(t, m.Item("nav-a").Open)
	assert.Equal(t, []string{"nav-b"}, m.OpenItems())

	m.ItemToggle("nav-b")
	assert.Empty(t, m.OpenItems())
}

func TestShow_GatedByLock(t *testing.T) {
	lock := fakeLock(true)
	m := New(true)
	m.Bind(&lock)

	assert.False(t, m.Show())
	assert.False(t, m.Toggle())
	assert.False(t, m.IsOpen())

	lock = false
	assert.True(t, m.Show())
	assert.True(t, m.IsOpen())
	assert.False(t, m.Toggle())
}

func TestShow_LockIgnoredWithoutLockNav(t *testing.T) {
	lock := fakeLock(true)
	m := New(false)
	m.Bind(&lock)
	assert.True(t, m.Show())
}

func TestHideAlwaysCloses(t *testing.T) {
	lock := fakeLock(false)
	m := New(true)
	m.Bind(&lock)
	m.Show()
	lock = true
	m.Hide()
	assert.False(t, m.IsOpen())
}

func TestHighlight(t *testing.T) {
	m := New(true)
	m.ItemToggle("other")
	m.Highlight("moa.detail", []string{"moa"}, true)

	assert.Equal(t, "moa-detail", m.Active())
	assert.Equal(t, ItemState{Active: true, Open: true}, m.Item("moa.detail"))
	assert.Equal(t, ItemState{Open: true}, m.Item("moa"))
	assert.False(t, m.Item("other").Open)

	m.Highlight("moa.intro", []string{"moa"}, false)
	assert.Equal(t, ItemState{Active: true}, m.Item("moa-intro"))
	assert.False(t, m.Item("moa.detail").Active)
	assert.Equal(t, []string{"moa"}, m.OpenItems())
}

func TestButtonBar(t *testing.T) {
	m := New(true)
	m.SetActiveButton("pi.doc")
	assert.Equal(t, "pi-doc", m.ActiveButton())
	m.ClearButtonBar()
	assert.Empty(t, m.ActiveButton())
}

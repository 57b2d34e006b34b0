package sitemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinytelemetry/edetail/internal/model"
)

const sampleJSON = `{
  "sitemap": {
    "pages": [
      {"id": "splash", "title": "Splash", "type": "hidden", "file": "pages/splash.html"},
      {"id": "moa", "title": "Mechanism", "type": "header", "children": [
        {"id": "moa.intro", "title": "Intro", "type": "slide", "file": "pages/moa/intro.html"},
        {"id": "moa.detail", "title": "Detail", "type": "page", "file": "pages/moa/detail.html", "children": [
          {"id": "moa.detail.chart", "title": "Chart", "file": "pages/moa/chart.html"}
        ]}
      ]}
    ],
    "buttonbar": [
      {"id": "pi", "title": "Prescribing Info", "type": "button", "file": "pi.pdf"}
    ],
    "paths": {
      "default": ["splash", "moa.intro", "moa.detail", "moa.detail.chart"]
    }
  }
}`

func loadSample(t *testing.T) (*Document, *Registry) {
	t.Helper()
	doc, err := Parse([]byte(sampleJSON))
	require.NoError(t, err)
	reg := NewRegistry()
	require.Empty(t, reg.BuildIndex(doc.Pages))
	return doc, reg
}

func TestBuildIndex_AncestorChainMatchesDepth(t *testing.T) {
	doc, reg := loadSample(t)

	Walk(doc.Pages, func(n, _ *Node, depth int) bool {
		got, ok := reg.Lookup(n.ID)
		require.True(t, ok, "lookup %s", n.ID)
		assert.Same(t, n, got)
		assert.Len(t, reg.AncestorChain(n), depth, "ancestor chain of %s", n.ID)
		return true
	})

	chart, _ := reg.Lookup("moa.detail.chart")
	assert.Equal(t, []string{"moa.detail", "moa"}, reg.AncestorChain(chart))

	splash, _ := reg.Lookup("splash")
	assert.Empty(t, reg.AncestorChain(splash))
	assert.Nil(t, splash.Parent())
}

func TestLookup_NormalizesDots(t *testing.T) {
	_, reg := loadSample(t)

	byDots, ok := reg.Lookup("moa.detail")
	require.True(t, ok)
	byDashes, ok := reg.Lookup("moa-detail")
	require.True(t, ok)
	assert.Same(t, byDots, byDashes)

	_, ok = reg.Lookup("missing-id")
	assert.False(t, ok)
}

func TestBuildIndex_DuplicateGuard(t *testing.T) {
	doc, reg := loadSample(t)
	before := reg.Len()

	// Re-indexing the same tree is harmless.
	assert.Empty(t, reg.BuildIndex(doc.Pages))
	assert.Equal(t, before, reg.Len())

	// A different node that collides after normalization is skipped.
	impostor := &Node{ID: "moa-intro", Title: "Impostor", Kind: model.KindPage, ContentRef: "x.html"}
	skipped := reg.BuildIndex([]*Node{impostor})
	assert.Equal(t, []string{"moa-intro"}, skipped)

	got, _ := reg.Lookup("moa.intro")
	assert.Equal(t, "Intro", got.Title)
}

func TestBuildIndex_ParentAssignedOnce(t *testing.T) {
	doc, reg := loadSample(t)
	intro, _ := reg.Lookup("moa.intro")
	original := intro.Parent()
	require.NotNil(t, original)

	other := &Node{ID: "other", Kind: model.KindHeader, Children: []*Node{intro}}
	reg.BuildIndex([]*Node{other})

	assert.Same(t, original, intro.Parent())
	assert.Equal(t, "moa", doc.Pages[1].ID)
}

func TestRegistry_LoadedFlag(t *testing.T) {
	reg := NewRegistry()
	assert.False(t, reg.Loaded())
	reg.BuildIndex(nil)
	assert.True(t, reg.Loaded())
}

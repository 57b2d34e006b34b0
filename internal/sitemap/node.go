// Package sitemap holds the declarative page tree and its reverse-lookup index.
package sitemap

import (
	"strings"

	"github.com/tinytelemetry/edetail/internal/model"
)

// Node is one sitemap entry: a slide, hidden slide, menu header or external button.
type Node struct {
	ID         string     `json:"id" yaml:"id"`
	Title      string     `json:"title" yaml:"title"`
	Kind       model.Kind `json:"type" yaml:"type"`
	ContentRef string     `json:"file,omitempty" yaml:"file,omitempty"`
	Children   []*Node    `json:"children,omitempty" yaml:"children,omitempty"`

	parent *Node
}

// Parent returns the node's parent, or nil for roots and nodes that were
// never indexed.
func (n *Node) Parent() *Node { return n.parent }

// HasChildren reports whether the node has at least one child.
func (n *Node) HasChildren() bool { return len(n.Children) > 0 }

// Key is the normalized lookup key of the node.
func (n *Node) Key() string { return FormatID(n.ID) }

// FormatID replaces periods with dashes. Dotted ids are a display form only;
// the registry is keyed by the formatted id.
func FormatID(id string) string {
	return strings.ReplaceAll(id, ".", "-")
}

// VisitFunc is called for every node in depth-first order. parent is nil for
// roots. Returning false skips the node's children.
type VisitFunc func(n, parent *Node, depth int) bool

// Walk traverses roots depth-first, visiting each reachable node once per
// occurrence in the tree.
func Walk(roots []*Node, fn VisitFunc) {
	walk(roots, nil, 0, fn)
}

func walk(nodes []*Node, parent *Node, depth int, fn VisitFunc) {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if fn(n, parent, depth) {
			walk(n.Children, n, depth+1, fn)
		}
	}
}

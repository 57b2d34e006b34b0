package sitemap

// Registry is the flat reverse-lookup index over a page tree.
//
// It is built once from the loaded configuration. Lookups assume the index
// is complete; there is no partial rebuild.
type Registry struct {
	index  map[string]*Node
	loaded bool
}

// NewRegistry returns an empty, not yet loaded registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]*Node)}
}

// BuildIndex indexes every node under roots by its formatted id and assigns
// parent references. A node whose key is already indexed is left untouched
// so a second initialization cannot clobber existing entries; a parent is
// only ever assigned once. The keys of skipped duplicates are returned.
func (r *Registry) BuildIndex(roots []*Node) []string {
	var skipped []string
	Walk(roots, func(n, parent *Node, _ int) bool {
		key := n.Key()
		if existing, ok := r.index[key]; !ok {
			r.index[key] = n
		} else if existing != n {
			skipped = append(skipped, key)
		}
		if parent != nil && n.parent == nil {
			n.parent = parent
		}
		return true
	})
	r.loaded = true
	return skipped
}

// Lookup returns the node for id, formatting it first.
func (r *Registry) Lookup(id string) (*Node, bool) {
	n, ok := r.index[FormatID(id)]
	return n, ok
}

// AncestorChain returns the ids of n's ancestors, immediate parent first and
// root last. Roots have an empty chain.
func (r *Registry) AncestorChain(n *Node) []string {
	if n == nil {
		return nil
	}
	var chain []string
	seen := map[*Node]bool{n: true}
	for p := n.parent; p != nil && !seen[p]; p = p.parent {
		seen[p] = true
		chain = append(chain, p.ID)
	}
	return chain
}

// Loaded reports whether BuildIndex has run.
func (r *Registry) Loaded() bool { return r.loaded }

// Len returns the number of indexed entries.
func (r *Registry) Len() int { return len(r.index) }

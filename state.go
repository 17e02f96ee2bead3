package statemachine

/******* State *******/

// node is one state in the built graph: its action lists, its optional
// parent and default substate, and the ordered transition candidates per
// event. Nodes are immutable once the Definition is built.
type node[S, E comparable] struct {
	key         S
	parent      *node[S, E]
	initial     *node[S, E]
	entry       []Action
	exit        []Action
	transitions map[E][]*transition[S, E]
	declared    []*transition[S, E]
}

func (n *node[S, E]) depth() int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// lca returns the lowest common ancestor of a and b, or nil when the two
// chains only meet above the root. Parent links are acyclic by
// construction, validated at build time.
func lca[S, E comparable](a, b *node[S, E]) *node[S, E] {
	for a.depth() > b.depth() {
		a = a.parent
	}
	for b.depth() > a.depth() {
		b = b.parent
	}
	for a != b {
		a = a.parent
		b = b.parent
	}
	return a
}

// pathUp lists the states from 'from' (inclusive) up to 'to' (exclusive),
// in child-to-ancestor order. A nil 'to' walks to the root.
func pathUp[S, E comparable](from, to *node[S, E]) []*node[S, E] {
	var out []*node[S, E]
	for n := from; n != nil && n != to; n = n.parent {
		out = append(out, n)
	}
	return out
}

// pathDown lists the states from 'from' (exclusive) down to 'to'
// (inclusive), in ancestor-to-child order.
func pathDown[S, E comparable](from, to *node[S, E]) []*node[S, E] {
	var out []*node[S, E]
	for n := to; n != nil && n != from; n = n.parent {
		out = append([]*node[S, E]{n}, out...)
	}
	return out
}

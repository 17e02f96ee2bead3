package statemachine

import (
	"fmt"
	"strings"
)

/******* Builder *******/

// Builder declares the state graph a machine runs on. States are created
// lazily the first time they are named, so hierarchy and targets may be
// declared in any order. Build validates the graph and freezes it into a
// Definition.
type Builder[S, E comparable] struct {
	specs map[S]*stateSpec[S, E]
	order []S
}

type stateSpec[S, E comparable] struct {
	key         S
	parent      *S
	initial     *S
	entry       []Action
	exit        []Action
	transitions []*transitionSpec[S, E]
}

type transitionSpec[S, E comparable] struct {
	event   E
	guard   Guard[S, E]
	actions []Action
	target  *S
}

// Define starts declaring a state graph.
func Define[S, E comparable]() *Builder[S, E] {
	return &Builder[S, E]{specs: map[S]*stateSpec[S, E]{}}
}

func (b *Builder[S, E]) spec(state S) *stateSpec[S, E] {
	spec, ok := b.specs[state]
	if !ok {
		spec = &stateSpec[S, E]{key: state}
		b.specs[state] = spec
		b.order = append(b.order, state)
	}
	return spec
}

// In begins (or resumes) configuring a state.
func (b *Builder[S, E]) In(state S) *StateBuilder[S, E] {
	return &StateBuilder[S, E]{builder: b, spec: b.spec(state)}
}

// StateBuilder configures one state's actions, hierarchy and transitions.
type StateBuilder[S, E comparable] struct {
	builder *Builder[S, E]
	spec    *stateSpec[S, E]
}

// ExecuteOnEntry appends entry actions, kept in declaration order.
func (s *StateBuilder[S, E]) ExecuteOnEntry(actions ...Action) *StateBuilder[S, E] {
	s.spec.entry = append(s.spec.entry, actions...)
	return s
}

// ExecuteOnExit appends exit actions, kept in declaration order.
func (s *StateBuilder[S, E]) ExecuteOnExit(actions ...Action) *StateBuilder[S, E] {
	s.spec.exit = append(s.spec.exit, actions...)
	return s
}

// SubstateOf declares this state a child of parent.
func (s *StateBuilder[S, E]) SubstateOf(parent S) *StateBuilder[S, E] {
	s.builder.spec(parent)
	p := parent
	s.spec.parent = &p
	return s
}

// WithInitial declares the substate entered by default when this state is
// the target of a transition.
func (s *StateBuilder[S, E]) WithInitial(substate S) *StateBuilder[S, E] {
	s.builder.spec(substate)
	c := substate
	s.spec.initial = &c
	return s
}

// On declares a transition candidate for an event. Candidates for the same
// (state, event) pair are evaluated in declaration order; the first whose
// guard is satisfied wins. Without Goto the transition is internal: its
// actions run with no state change.
func (s *StateBuilder[S, E]) On(event E) *TransitionBuilder[S, E] {
	spec := &transitionSpec[S, E]{event: event}
	s.spec.transitions = append(s.spec.transitions, spec)
	return &TransitionBuilder[S, E]{state: s, spec: spec}
}

// TransitionBuilder configures one transition candidate.
type TransitionBuilder[S, E comparable] struct {
	state *StateBuilder[S, E]
	spec  *transitionSpec[S, E]
}

// If attaches the guard predicate.
func (t *TransitionBuilder[S, E]) If(guard Guard[S, E]) *TransitionBuilder[S, E] {
	t.spec.guard = guard
	return t
}

// Goto sets the target state.
func (t *TransitionBuilder[S, E]) Goto(target S) *TransitionBuilder[S, E] {
	t.state.builder.spec(target)
	tgt := target
	t.spec.target = &tgt
	return t
}

// Execute appends transition actions, kept in declaration order.
func (t *TransitionBuilder[S, E]) Execute(actions ...Action) *TransitionBuilder[S, E] {
	t.spec.actions = append(t.spec.actions, actions...)
	return t
}

// On declares another transition on the same state.
func (t *TransitionBuilder[S, E]) On(event E) *TransitionBuilder[S, E] {
	return t.state.On(event)
}

/******* Definition *******/

// Definition is the frozen state graph. It holds no runtime state and may
// be shared by any number of machines.
type Definition[S, E comparable] struct {
	nodes map[S]*node[S, E]
	order []S
}

// Build validates the declared graph and returns its Definition. It
// rejects parent cycles, and initial substates that are not children of
// the state declaring them.
func (b *Builder[S, E]) Build() (*Definition[S, E], error) {
	nodes := make(map[S]*node[S, E], len(b.specs))
	for _, key := range b.order {
		spec := b.specs[key]
		nodes[key] = &node[S, E]{
			key:         key,
			entry:       spec.entry,
			exit:        spec.exit,
			transitions: map[E][]*transition[S, E]{},
		}
	}
	for _, key := range b.order {
		spec := b.specs[key]
		n := nodes[key]
		if spec.parent != nil {
			n.parent = nodes[*spec.parent]
		}
		for _, ts := range spec.transitions {
			tr := &transition[S, E]{
				source:  key,
				event:   ts.event,
				guard:   ts.guard,
				actions: ts.actions,
			}
			if ts.target != nil {
				tr.target = *ts.target
			} else {
				tr.internal = true
				tr.target = key
			}
			n.transitions[ts.event] = append(n.transitions[ts.event], tr)
			n.declared = append(n.declared, tr)
		}
	}
	for _, key := range b.order {
		if err := checkAcyclic(nodes[key]); err != nil {
			return nil, err
		}
	}
	for _, key := range b.order {
		spec := b.specs[key]
		if spec.initial == nil {
			continue
		}
		child := nodes[*spec.initial]
		if child.parent != nodes[key] {
			return nil, definitionErrorf("initial substate %v of %v is not its child", *spec.initial, key)
		}
		nodes[key].initial = child
	}
	return &Definition[S, E]{nodes: nodes, order: b.order}, nil
}

// checkAcyclic walks the parent chain and rejects cycles.
func checkAcyclic[S, E comparable](n *node[S, E]) error {
	seen := map[*node[S, E]]struct{}{}
	for p := n; p != nil; p = p.parent {
		if _, ok := seen[p]; ok {
			return definitionErrorf("state %v is its own ancestor", p.key)
		}
		seen[p] = struct{}{}
	}
	return nil
}

// Report renders the graph as plain text for logs and debugging. States
// appear in declaration order.
func (d *Definition[S, E]) Report() string {
	var sb strings.Builder
	for _, key := range d.order {
		n := d.nodes[key]
		fmt.Fprintf(&sb, "state %v", key)
		if n.parent != nil {
			fmt.Fprintf(&sb, " (substate of %v)", n.parent.key)
		}
		if n.initial != nil {
			fmt.Fprintf(&sb, " (initial %v)", n.initial.key)
		}
		fmt.Fprintf(&sb, ": %d entry, %d exit\n", len(n.entry), len(n.exit))
		for _, tr := range n.declared {
			if tr.internal {
				fmt.Fprintf(&sb, "  on %v internal", tr.event)
			} else {
				fmt.Fprintf(&sb, "  on %v -> %v", tr.event, tr.target)
			}
			if tr.guard != nil {
				sb.WriteString(" [guarded]")
			}
			fmt.Fprintf(&sb, " (%d actions)\n", len(tr.actions))
		}
	}
	return sb.String()
}

package statemachine

import (
	"context"
	"fmt"
	"sync/atomic"
)

/******* Lifecycle *******/

type status int32

const (
	statusUninitialized status = iota
	statusInitialized
	statusStarted
	statusStopped
)

// fireRequest is one accepted Fire call waiting to be processed.
type fireRequest[E comparable] struct {
	event    E
	argument any
}

/******* Core *******/

// core implements transition execution. It is owned by exactly one worker
// at a time (the passive engine's drain goroutine, or the synchronous
// engine's single in-flight Fire), so the current-state field and the
// context's error accumulator need no locking. The worker republishes the
// state through published after every change so that accessors on other
// goroutines read a consistent snapshot.
type core[S, E comparable] struct {
	def        *Definition[S, E]
	current    *node[S, E]
	published  atomic.Pointer[node[S, E]]
	extensions *extensionHost[S, E]
	completed  []func(*TransitionContext[S, E])
	exceptions []func(*TransitionContext[S, E], error)
}

func newCore[S, E comparable](def *Definition[S, E]) *core[S, E] {
	return &core[S, E]{
		def:        def,
		extensions: &extensionHost[S, E]{},
	}
}

// initialize assigns the initial state directly. No entry actions run.
func (c *core[S, E]) initialize(state S) error {
	n, ok := c.def.nodes[state]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUndefinedState, state)
	}
	c.current = n
	c.published.Store(n)
	c.extensions.ForEach(func(ext Extension[S, E]) {
		ext.MachineInitialized(state)
	})
	return nil
}

// enterInitial runs the entry actions for the initialized state on first
// start: every state from the root down to it, then its initial-substate
// descent. Failures are collected and notified like any transition's.
func (c *core[S, E]) enterInitial(ctx context.Context) {
	var zero E
	tctx := newTransitionContext[S, E](zero, nil, c.current.key)
	for _, n := range pathDown[S, E](nil, c.current) {
		c.runActions(ctx, tctx, n.entry)
	}
	c.descend(ctx, tctx)
	c.published.Store(c.current)
	tctx.target = c.current.key
	c.notify(tctx)
}

// handle processes one fired event to completion: resolve, run the action
// pipeline, update state, notify. This is the only place current is
// written.
func (c *core[S, E]) handle(ctx context.Context, event E, argument any) {
	tctx := newTransitionContext[S, E](event, argument, c.current.key)
	tr := c.resolve(tctx)
	if tr == nil {
		c.extensions.ForEach(func(ext Extension[S, E]) {
			ext.EventDeclined(tctx)
		})
		return
	}
	c.extensions.ForEach(func(ext Extension[S, E]) {
		ext.TransitionBegin(tctx)
	})
	if tr.internal {
		c.runActions(ctx, tctx, tr.actions)
	} else {
		c.execute(ctx, tctx, tr)
		c.published.Store(c.current)
	}
	c.extensions.ForEach(func(ext Extension[S, E]) {
		ext.TransitionEnd(tctx)
	})
	c.notify(tctx)
}

// resolve selects the transition for the fired event: candidates of the
// current state in declaration order, then its ancestors, first satisfied
// guard wins.
func (c *core[S, E]) resolve(tctx *TransitionContext[S, E]) *transition[S, E] {
	for n := c.current; n != nil; n = n.parent {
		for _, candidate := range n.transitions[tctx.event] {
			satisfied := candidate.guard == nil || candidate.guard(tctx)
			c.extensions.ForEach(func(ext Extension[S, E]) {
				ext.GuardEvaluated(tctx, candidate.target, satisfied)
			})
			if satisfied {
				return candidate
			}
		}
	}
	return nil
}

// execute performs a state-changing transition: exit actions from the
// current state up to the lowest common ancestor, the transition's own
// actions, entry actions down to the target, then the initial-substate
// descent. The state is switched even if every action fails.
func (c *core[S, E]) execute(ctx context.Context, tctx *TransitionContext[S, E], tr *transition[S, E]) {
	target := c.def.nodes[tr.target]
	tctx.target = tr.target
	ancestor := lca(c.current, target)
	if c.current == target {
		// a self transition leaves and re-enters its state
		ancestor = target.parent
	}
	for _, n := range pathUp(c.current, ancestor) {
		c.runActions(ctx, tctx, n.exit)
	}
	c.runActions(ctx, tctx, tr.actions)
	for _, n := range pathDown(ancestor, target) {
		c.runActions(ctx, tctx, n.entry)
	}
	c.current = target
	c.descend(ctx, tctx)
	tctx.target = c.current.key
}

// descend follows configured initial substates from the current state to a
// leaf, running entry actions on the way down.
func (c *core[S, E]) descend(ctx context.Context, tctx *TransitionContext[S, E]) {
	for c.current.initial != nil {
		c.current = c.current.initial
		c.runActions(ctx, tctx, c.current.entry)
	}
}

// runActions attempts every action in the list exactly once, in declaration
// order, awaiting each before the next. Failures are collected, never
// propagated: a failing action does not abort its siblings or later lists.
func (c *core[S, E]) runActions(ctx context.Context, tctx *TransitionContext[S, E], actions []Action) {
	for _, a := range actions {
		if err := a.invoke(ctx, tctx.argument); err != nil {
			tctx.errs = append(tctx.errs, err)
			c.extensions.ForEach(func(ext Extension[S, E]) {
				ext.ActionExceptionCaught(tctx, err)
			})
		}
	}
}

// notify reports each collected failure to the exception subscribers, one
// notification per failure in occurrence order, then the completion
// subscribers.
func (c *core[S, E]) notify(tctx *TransitionContext[S, E]) {
	for _, err := range tctx.errs {
		for _, handler := range c.exceptions {
			handler(tctx, err)
		}
	}
	for _, handler := range c.completed {
		handler(tctx)
	}
}

// snapshot returns the most recently published state, safe to read from
// any goroutine.
func (c *core[S, E]) snapshot() *node[S, E] {
	return c.published.Load()
}

// canFire reports whether the event has a satisfied candidate anywhere in
// from's ancestor chain. Extension hooks are not dispatched.
func (c *core[S, E]) canFire(from *node[S, E], event E, argument any) bool {
	tctx := newTransitionContext[S, E](event, argument, from.key)
	for n := from; n != nil; n = n.parent {
		for _, candidate := range n.transitions[event] {
			if candidate.guard == nil || candidate.guard(tctx) {
				return true
			}
		}
	}
	return false
}

// permittedEvents lists the events with a satisfied candidate from the
// given state, deduplicated across the ancestor chain.
func (c *core[S, E]) permittedEvents(from *node[S, E]) []E {
	var out []E
	seen := map[E]struct{}{}
	for n := from; n != nil; n = n.parent {
		for _, tr := range n.declared {
			if _, ok := seen[tr.event]; ok {
				continue
			}
			if c.canFire(from, tr.event, nil) {
				seen[tr.event] = struct{}{}
				out = append(out, tr.event)
			}
		}
	}
	return out
}

package statemachine

import (
	"github.com/google/uuid"
)

/******* Transition *******/

// transition is one guarded edge out of a state. An internal transition
// runs its actions without a state change.
type transition[S, E comparable] struct {
	source   S
	event    E
	guard    Guard[S, E]
	actions  []Action
	target   S
	internal bool
}

/******* TransitionContext *******/

// TransitionContext carries one fired event through transition processing.
// It is created per firing, mutated only by the engine's single worker and
// discarded once the transition (or decline) completes.
type TransitionContext[S, E comparable] struct {
	id       uuid.UUID
	event    E
	argument any
	source   S
	target   S
	errs     []error
}

func newTransitionContext[S, E comparable](event E, argument any, source S) *TransitionContext[S, E] {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &TransitionContext[S, E]{
		id:       id,
		event:    event,
		argument: argument,
		source:   source,
		target:   source,
	}
}

// ID identifies this firing for correlation across extensions and logs.
func (c *TransitionContext[S, E]) ID() uuid.UUID {
	return c.id
}

// Event returns the fired event key.
func (c *TransitionContext[S, E]) Event() E {
	return c.event
}

// Argument returns the fired event's argument, or nil.
func (c *TransitionContext[S, E]) Argument() any {
	return c.argument
}

// Source returns the state the machine was in when the event fired.
func (c *TransitionContext[S, E]) Source() S {
	return c.source
}

// Target returns the computed target state. Until a transition is resolved,
// and for internal transitions and declines, it equals Source.
func (c *TransitionContext[S, E]) Target() S {
	return c.target
}

// Errors returns the failures collected so far, in occurrence order.
func (c *TransitionContext[S, E]) Errors() []error {
	return c.errs
}

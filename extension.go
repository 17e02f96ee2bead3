package statemachine

/******* Extension *******/

// Extension observes transition processing without influencing it. Hooks
// are invoked synchronously in registration order; the engine catches
// nothing an extension panics with, since extensions are trusted observers
// supplied by the integrator.
//
// All hooks except EventQueued run on the engine's single worker. In the
// passive engine EventQueued runs on the producer's goroutine.
type Extension[S, E comparable] interface {
	// MachineInitialized is invoked when Initialize assigns the initial
	// state. No actions have run at this point.
	MachineInitialized(state S)

	// EventQueued is invoked after a fire request is accepted.
	EventQueued(event E, argument any)

	// TransitionBegin is invoked once a transition has been selected,
	// before any action runs.
	TransitionBegin(ctx *TransitionContext[S, E])

	// GuardEvaluated is invoked per candidate transition considered for
	// the fired event, with the candidate's target and the evaluation
	// result. An unguarded candidate evaluates to true.
	GuardEvaluated(ctx *TransitionContext[S, E], target S, satisfied bool)

	// ActionExceptionCaught is invoked at the point an action failure is
	// collected.
	ActionExceptionCaught(ctx *TransitionContext[S, E], err error)

	// TransitionEnd is invoked after all action lists have been attempted
	// and the current state has been updated.
	TransitionEnd(ctx *TransitionContext[S, E])

	// EventDeclined is invoked when no candidate's guard matched for the
	// fired event anywhere in the ancestor chain.
	EventDeclined(ctx *TransitionContext[S, E])
}

// ExtensionBase is a no-op Extension for embedding, so implementers only
// override the hooks they care about.
type ExtensionBase[S, E comparable] struct{}

func (ExtensionBase[S, E]) MachineInitialized(S)                                   {}
func (ExtensionBase[S, E]) EventQueued(E, any)                                     {}
func (ExtensionBase[S, E]) TransitionBegin(*TransitionContext[S, E])               {}
func (ExtensionBase[S, E]) GuardEvaluated(*TransitionContext[S, E], S, bool)       {}
func (ExtensionBase[S, E]) ActionExceptionCaught(*TransitionContext[S, E], error)  {}
func (ExtensionBase[S, E]) TransitionEnd(*TransitionContext[S, E])                 {}
func (ExtensionBase[S, E]) EventDeclined(*TransitionContext[S, E])                 {}

// extensionHost broadcasts hook notifications to registered extensions.
// Registration is expected before Start and is not safe concurrently with
// dispatch.
type extensionHost[S, E comparable] struct {
	extensions []Extension[S, E]
}

func (h *extensionHost[S, E]) Add(ext Extension[S, E]) {
	h.extensions = append(h.extensions, ext)
}

// ForEach invokes fn once per registered extension, in registration order.
func (h *extensionHost[S, E]) ForEach(fn func(Extension[S, E])) {
	for _, ext := range h.extensions {
		fn(ext)
	}
}

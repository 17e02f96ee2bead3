package statemachine

// Guard decides whether a candidate transition applies to the fired event.
// A nil guard always applies. Guards must not mutate the context.
type Guard[S, E comparable] func(ctx *TransitionContext[S, E]) bool

// GuardWith adapts a predicate over the declared argument type to a Guard.
// An argument of the wrong dynamic type fails the guard.
func GuardWith[S, E comparable, T any](fn func(arg T) bool) Guard[S, E] {
	return func(ctx *TransitionContext[S, E]) bool {
		v, err := argAs[T](ctx.Argument())
		if err != nil {
			return false
		}
		return fn(v)
	}
}

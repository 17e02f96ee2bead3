// Package statemachine is an embeddable hierarchical state machine engine.
//
// A machine runs over a Definition: a graph of states with entry/exit
// actions, guarded transitions with their own actions, and optional
// parent/initial-substate links for hierarchy. Firing an event selects the
// first transition whose guard is satisfied (declaration order, walking
// the ancestor chain), runs exit actions from the current state up to the
// lowest common ancestor, the transition's actions, and entry actions down
// to the target. Action failures are collected, never propagated: every
// declared action is attempted exactly once per firing, and each collected
// failure is reported through the exception notification after the
// transition completes.
//
// Declare a graph with the builder:
//
//	b := statemachine.Define[State, Event]()
//	b.In(StateA).
//	    ExecuteOnEntry(statemachine.Do(enter)).
//	    On(EventX).If(guard).Goto(StateB).Execute(statemachine.Do(work))
//	def, err := b.Build()
//
// Actions come in four shapes: Do, DoWith (typed argument), Await
// (suspending) and AwaitWith.
//
// Two engine variants share the same execution core. The passive machine
// queues fire requests and drains them on its own worker, one at a time:
//
//	m := statemachine.NewPassive(ctx, def)
//	m.Initialize(StateA)
//	m.Start()
//	m.Fire(EventX, argument)
//
// The synchronous machine processes each Fire inline on the caller's
// goroutine. Both guarantee at most one in-flight transition.
//
// Extensions observe processing (transition begin/end, guard evaluations,
// caught failures, declines) without influencing it; see LoggingExtension
// and pkg/telemetry for slog and OpenTelemetry backed implementations.
package statemachine

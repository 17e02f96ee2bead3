package statemachine

import (
	"context"
	"fmt"
)

/******* Action *******/

type actionKind uint8

const (
	actionRun actionKind = iota
	actionRunArg
	actionAwait
	actionAwaitArg
)

// Action is a unit of work attached to a state's entry or exit list or to a
// transition. It is a closed variant over four shapes: with or without a
// declared argument, run-to-completion or suspending. The engine invokes
// exactly one variant per action and never mutates it.
type Action struct {
	kind     actionKind
	run      func() error
	runArg   func(arg any) error
	await    func(ctx context.Context) error
	awaitArg func(ctx context.Context, arg any) error
}

// Do declares a run-to-completion action without an argument.
func Do(fn func() error) Action {
	return Action{kind: actionRun, run: fn}
}

// DoWith declares a run-to-completion action receiving the fired event's
// argument. An argument of the wrong dynamic type is an action failure.
func DoWith[T any](fn func(arg T) error) Action {
	return Action{kind: actionRunArg, runArg: func(arg any) error {
		v, err := argAs[T](arg)
		if err != nil {
			return err
		}
		return fn(v)
	}}
}

// Await declares a suspending action. The engine waits for it to return
// before invoking the next action in the same list.
func Await(fn func(ctx context.Context) error) Action {
	return Action{kind: actionAwait, await: fn}
}

// AwaitWith declares a suspending action receiving the fired event's
// argument.
func AwaitWith[T any](fn func(ctx context.Context, arg T) error) Action {
	return Action{kind: actionAwaitArg, awaitArg: func(ctx context.Context, arg any) error {
		v, err := argAs[T](arg)
		if err != nil {
			return err
		}
		return fn(ctx, v)
	}}
}

// invoke runs the action's variant. Panics are recovered into a PanicError
// so a misbehaving action cannot abort its siblings.
func (a Action) invoke(ctx context.Context, arg any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	switch a.kind {
	case actionRun:
		return a.run()
	case actionRunArg:
		return a.runArg(arg)
	case actionAwait:
		return a.await(ctx)
	case actionAwaitArg:
		return a.awaitArg(ctx, arg)
	}
	return nil
}

// argAs converts an erased event argument to the declared type. A nil
// argument yields the zero value so argument-less firings still reach
// typed actions.
func argAs[T any](arg any) (T, error) {
	var zero T
	if arg == nil {
		return zero, nil
	}
	v, ok := arg.(T)
	if !ok {
		return zero, &ArgumentError{Want: fmt.Sprintf("%T", zero), Got: arg}
	}
	return v, nil
}

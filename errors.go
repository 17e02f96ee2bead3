package statemachine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when Fire, Start or State is called
	// before Initialize.
	ErrNotInitialized = errors.New("statemachine: not initialized")

	// ErrAlreadyInitialized is returned when Initialize is called more
	// than once.
	ErrAlreadyInitialized = errors.New("statemachine: already initialized")

	// ErrAlreadyStarted is returned when Start is called on a running
	// machine.
	ErrAlreadyStarted = errors.New("statemachine: already started")

	// ErrNotStarted is returned when Stop is called on a machine that is
	// not running.
	ErrNotStarted = errors.New("statemachine: not started")

	// ErrUndefinedState is returned when a state key does not exist in
	// the definition.
	ErrUndefinedState = errors.New("statemachine: undefined state")
)

// DefinitionError reports an invalid graph detected while building a
// Definition.
type DefinitionError struct {
	Message string
}

func (e *DefinitionError) Error() string {
	return "statemachine: invalid definition: " + e.Message
}

func definitionErrorf(format string, args ...any) *DefinitionError {
	return &DefinitionError{Message: fmt.Sprintf(format, args...)}
}

// ArgumentError reports an event argument whose dynamic type does not match
// the type an action or guard was declared with. It is collected like any
// other action failure.
type ArgumentError struct {
	Want string
	Got  any
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("statemachine: argument %v (%T) does not match declared type %s", e.Got, e.Got, e.Want)
}

// PanicError wraps a value recovered from a panicking action so it can be
// collected alongside returned errors.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("statemachine: action panicked: %v", e.Value)
}

package statemachine

import (
	"context"
	"sync"
)

/******* Synchronous engine *******/

// SyncStateMachine processes fire requests inline on the caller's
// goroutine, without a worker. A Fire that starts the drain returns only
// after the pending queue is empty; fires issued while a drain is active,
// from inside actions or from another goroutine, return once queued and
// are processed by the active drain, preserving the at-most-one in-flight
// transition guarantee.
type SyncStateMachine[S, E comparable] struct {
	core    *core[S, E]
	ctx     context.Context
	mu      sync.Mutex
	pending []fireRequest[E]
	firing  bool
	status  status
	entered bool
}

// NewSync creates a synchronous machine over a built definition. ctx is
// handed to suspending actions.
func NewSync[S, E comparable](ctx context.Context, def *Definition[S, E]) *SyncStateMachine[S, E] {
	return &SyncStateMachine[S, E]{
		core: newCore(def),
		ctx:  ctx,
	}
}

// AddExtension registers an extension. Must happen before Start.
func (m *SyncStateMachine[S, E]) AddExtension(ext Extension[S, E]) {
	m.core.extensions.Add(ext)
}

// OnTransitionException subscribes to action-failure notifications.
func (m *SyncStateMachine[S, E]) OnTransitionException(handler func(ctx *TransitionContext[S, E], err error)) {
	m.core.exceptions = append(m.core.exceptions, handler)
}

// OnTransitionCompleted subscribes to completion notifications.
func (m *SyncStateMachine[S, E]) OnTransitionCompleted(handler func(ctx *TransitionContext[S, E])) {
	m.core.completed = append(m.core.completed, handler)
}

// Initialize sets the current state without running any action.
func (m *SyncStateMachine[S, E]) Initialize(state S) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != statusUninitialized {
		return ErrAlreadyInitialized
	}
	if err := m.core.initialize(state); err != nil {
		return err
	}
	m.status = statusInitialized
	return nil
}

// Start runs the entry actions for the initialized state (first start
// only) and processes any requests fired before Start.
func (m *SyncStateMachine[S, E]) Start() error {
	m.mu.Lock()
	switch m.status {
	case statusUninitialized:
		m.mu.Unlock()
		return ErrNotInitialized
	case statusStarted:
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	if !m.entered {
		m.core.enterInitial(m.ctx)
		m.entered = true
	}
	m.status = statusStarted
	m.mu.Unlock()
	m.pump()
	return nil
}

// Fire enqueues the event and drains the pending queue on the calling
// goroutine. When no other drain is active the event is fully processed
// before Fire returns; when one is, Fire returns after enqueuing and the
// active drain processes the event in order. Before Start the request
// queues; after Stop it queues for a later Start.
func (m *SyncStateMachine[S, E]) Fire(event E, argument ...any) error {
	m.mu.Lock()
	if m.status == statusUninitialized {
		m.mu.Unlock()
		return ErrNotInitialized
	}
	var arg any
	if len(argument) > 0 {
		arg = argument[0]
	}
	m.core.extensions.ForEach(func(ext Extension[S, E]) {
		ext.EventQueued(event, arg)
	})
	m.pending = append(m.pending, fireRequest[E]{event: event, argument: arg})
	m.mu.Unlock()
	m.pump()
	return nil
}

// Stop prevents further processing; pending requests are retained for a
// later Start.
func (m *SyncStateMachine[S, E]) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != statusStarted {
		return ErrNotStarted
	}
	m.status = statusStopped
	return nil
}

// State returns the current state as last published by the draining
// goroutine. Safe to call while another goroutine's Fire is processing.
func (m *SyncStateMachine[S, E]) State() (S, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == statusUninitialized {
		var zero S
		return zero, ErrNotInitialized
	}
	return m.core.snapshot().key, nil
}

// IsStarted reports whether the machine processes fires.
func (m *SyncStateMachine[S, E]) IsStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == statusStarted
}

// CanFire reports whether the event has a satisfied transition from the
// current state.
func (m *SyncStateMachine[S, E]) CanFire(event E, argument ...any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == statusUninitialized {
		return false
	}
	var arg any
	if len(argument) > 0 {
		arg = argument[0]
	}
	return m.core.canFire(m.core.snapshot(), event, arg)
}

// PermittedEvents lists the events with a satisfied transition from the
// current state.
func (m *SyncStateMachine[S, E]) PermittedEvents() []E {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == statusUninitialized {
		return nil
	}
	return m.core.permittedEvents(m.core.snapshot())
}

// pump drains pending requests one at a time. Only one caller pumps at a
// time; re-entrant fires land in pending and are picked up by the active
// pump, in enqueue order.
func (m *SyncStateMachine[S, E]) pump() {
	m.mu.Lock()
	if m.firing || m.status != statusStarted {
		m.mu.Unlock()
		return
	}
	m.firing = true
	for {
		if len(m.pending) == 0 || m.status != statusStarted {
			m.firing = false
			m.mu.Unlock()
			return
		}
		req := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()

		m.core.handle(m.ctx, req.event, req.argument)

		m.mu.Lock()
	}
}

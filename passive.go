package statemachine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/SEPTEMBER998767/statemachine/queue"
)

/******* Passive engine *******/

// PassiveStateMachine queues fire requests and drains them on its own
// worker goroutine, one request to completion at a time. Producers may
// call Fire concurrently; requests are processed in enqueue order, so at
// most one transition is ever in flight.
type PassiveStateMachine[S, E comparable] struct {
	core    *core[S, E]
	queue   *queue.Queue[fireRequest[E]]
	ctx     context.Context
	status  atomic.Int32
	entered bool
	mu      sync.Mutex
	wg      sync.WaitGroup
}

// NewPassive creates a passive machine over a built definition. ctx is
// handed to suspending actions; the engine itself never cancels an
// in-flight transition.
func NewPassive[S, E comparable](ctx context.Context, def *Definition[S, E]) *PassiveStateMachine[S, E] {
	return &PassiveStateMachine[S, E]{
		core:  newCore(def),
		queue: queue.New[fireRequest[E]](),
		ctx:   ctx,
	}
}

// AddExtension registers an extension. Must happen before Start.
func (m *PassiveStateMachine[S, E]) AddExtension(ext Extension[S, E]) {
	m.core.extensions.Add(ext)
}

// OnTransitionException subscribes to action-failure notifications, raised
// once per collected failure after the owning transition completes.
func (m *PassiveStateMachine[S, E]) OnTransitionException(handler func(ctx *TransitionContext[S, E], err error)) {
	m.core.exceptions = append(m.core.exceptions, handler)
}

// OnTransitionCompleted subscribes to completion notifications, raised
// after a transition's pipeline and exception notifications.
func (m *PassiveStateMachine[S, E]) OnTransitionCompleted(handler func(ctx *TransitionContext[S, E])) {
	m.core.completed = append(m.core.completed, handler)
}

// Initialize sets the current state without running any action. Valid
// exactly once, before Start.
func (m *PassiveStateMachine[S, E]) Initialize(state S) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status(m.status.Load()) != statusUninitialized {
		return ErrAlreadyInitialized
	}
	if err := m.core.initialize(state); err != nil {
		return err
	}
	m.status.Store(int32(statusInitialized))
	return nil
}

// Start runs the entry actions for the initialized state (first start
// only), then begins draining the queue. Start after Stop resumes
// draining.
func (m *PassiveStateMachine[S, E]) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch status(m.status.Load()) {
	case statusUninitialized:
		return ErrNotInitialized
	case statusStarted:
		return ErrAlreadyStarted
	}
	if !m.entered {
		// the worker is not running yet, so entry actions execute here
		m.core.enterInitial(m.ctx)
		m.entered = true
	}
	m.queue.Open()
	m.status.Store(int32(statusStarted))
	m.wg.Add(1)
	go m.drain()
	return nil
}

// Fire enqueues an event and returns once the request is accepted. Before
// Start the request queues but is not processed.
func (m *PassiveStateMachine[S, E]) Fire(event E, argument ...any) error {
	if status(m.status.Load()) == statusUninitialized {
		return ErrNotInitialized
	}
	var arg any
	if len(argument) > 0 {
		arg = argument[0]
	}
	m.core.extensions.ForEach(func(ext Extension[S, E]) {
		ext.EventQueued(event, arg)
	})
	m.queue.Push(fireRequest[E]{event: event, argument: arg})
	return nil
}

// Stop halts further dequeuing and waits for the in-flight request, if
// any, to run to completion. Queued requests are retained. Stop must not
// be called from inside an action: it waits for the worker that runs the
// action.
func (m *PassiveStateMachine[S, E]) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status(m.status.Load()) != statusStarted {
		return ErrNotStarted
	}
	m.queue.Close()
	m.wg.Wait()
	m.status.Store(int32(statusStopped))
	return nil
}

// State returns the current state as last published by the worker. Safe
// to call while a transition runs; it reports the state on the far side
// of whichever transition published most recently.
func (m *PassiveStateMachine[S, E]) State() (S, error) {
	if status(m.status.Load()) == statusUninitialized {
		var zero S
		return zero, ErrNotInitialized
	}
	return m.core.snapshot().key, nil
}

// IsStarted reports whether the worker is draining.
func (m *PassiveStateMachine[S, E]) IsStarted() bool {
	return status(m.status.Load()) == statusStarted
}

// CanFire reports whether the event has a satisfied transition from the
// current state.
func (m *PassiveStateMachine[S, E]) CanFire(event E, argument ...any) bool {
	if status(m.status.Load()) == statusUninitialized {
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
func (m *PassiveStateMachine[S, E]) PermittedEvents() []E {
	if status(m.status.Load()) == statusUninitialized {
		return nil
	}
	return m.core.permittedEvents(m.core.snapshot())
}

func (m *PassiveStateMachine[S, E]) drain() {
	defer m.wg.Done()
	for {
		req, ok := m.queue.Pop()
		if !ok {
			return
		}
		m.core.handle(m.ctx, req.event, req.argument)
	}
}

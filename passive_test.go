package statemachine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sm "github.com/SEPTEMBER998767/statemachine"
)

// completions signals once per finished transition so tests can wait for
// the worker without polling.
type completions struct {
	ch chan struct{}
}

func newCompletions() *completions {
	return &completions{ch: make(chan struct{}, 16)}
}

func (c *completions) handler(*sm.TransitionContext[state, event]) {
	c.ch <- struct{}{}
}

func (c *completions) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.ch:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for transition to complete")
		}
	}
}

func TestPassiveProcessesSyncAndSuspendingExitActions(t *testing.T) {
	var syncFlag, suspendFlag bool
	b := sm.Define[state, event]()
	b.In(stateA).ExecuteOnExit(
		sm.Do(func() error { syncFlag = true; return nil }),
		sm.Await(func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			suspendFlag = true
			return nil
		}),
	)
	b.In(stateA).On(eventGo).Goto(stateB)
	def, err := b.Build()
	require.NoError(t, err)

	machine := sm.NewPassive(context.Background(), def)
	done := newCompletions()
	machine.OnTransitionCompleted(done.handler)
	require.NoError(t, machine.Initialize(stateA))
	require.NoError(t, machine.Start())
	done.wait(t, 1) // start-time entry
	require.NoError(t, machine.Fire(eventGo))
	done.wait(t, 1)
	require.NoError(t, machine.Stop())

	assert.True(t, syncFlag)
	assert.True(t, suspendFlag)
	current, err := machine.State()
	require.NoError(t, err)
	assert.Equal(t, stateB, current)
}

func TestPassiveProcessesEventsInFireOrder(t *testing.T) {
	var order []event
	b := sm.Define[state, event]()
	b.In(stateA).On(eventGo).Goto(stateB).Execute(sm.Do(func() error {
		order = append(order, eventGo)
		time.Sleep(20 * time.Millisecond) // hold the worker so the second fire must queue
		return nil
	}))
	b.In(stateB).On(eventOther).Goto(stateC).Execute(sm.Do(func() error {
		order = append(order, eventOther)
		return nil
	}))
	def, err := b.Build()
	require.NoError(t, err)

	machine := sm.NewPassive(context.Background(), def)
	done := newCompletions()
	machine.OnTransitionCompleted(done.handler)
	require.NoError(t, machine.Initialize(stateA))
	require.NoError(t, machine.Start())
	done.wait(t, 1)

	require.NoError(t, machine.Fire(eventGo))
	require.NoError(t, machine.Fire(eventOther))
	done.wait(t, 2)
	require.NoError(t, machine.Stop())

	assert.Equal(t, []event{eventGo, eventOther}, order)
	current, err := machine.State()
	require.NoError(t, err)
	assert.Equal(t, stateC, current)
}

func TestPassiveFireBeforeStartQueues(t *testing.T) {
	var ran bool
	b := sm.Define[state, event]()
	b.In(stateA).On(eventGo).Goto(stateB).Execute(sm.Do(func() error {
		ran = true
		return nil
	}))
	def, err := b.Build()
	require.NoError(t, err)

	machine := sm.NewPassive(context.Background(), def)
	done := newCompletions()
	machine.OnTransitionCompleted(done.handler)
	require.NoError(t, machine.Initialize(stateA))
	require.NoError(t, machine.Fire(eventGo))

	assert.False(t, ran)
	current, err := machine.State()
	require.NoError(t, err)
	assert.Equal(t, stateA, current)

	require.NoError(t, machine.Start())
	done.wait(t, 2) // start-time entry, then the queued fire
	require.NoError(t, machine.Stop())

	assert.True(t, ran)
	current, err = machine.State()
	require.NoError(t, err)
	assert.Equal(t, stateB, current)
}

func TestPassiveConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 25

	var count int
	b := sm.Define[state, event]()
	b.In(stateA).On(eventStay).Execute(sm.Do(func() error {
		count++ // worker-only write, no lock needed
		return nil
	}))
	def, err := b.Build()
	require.NoError(t, err)

	machine := sm.NewPassive(context.Background(), def)
	done := newCompletions()
	machine.OnTransitionCompleted(done.handler)
	require.NoError(t, machine.Initialize(stateA))
	require.NoError(t, machine.Start())
	done.wait(t, 1)

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				assert.NoError(t, machine.Fire(eventStay))
			}
		}()
	}
	wg.Wait()
	done.wait(t, producers*perProducer)
	require.NoError(t, machine.Stop())

	assert.Equal(t, producers*perProducer, count)
}

func TestPassiveStopHaltsDequeuingAndStartResumes(t *testing.T) {
	var ran int
	b := sm.Define[state, event]()
	b.In(stateA).On(eventStay).Execute(sm.Do(func() error {
		ran++
		return nil
	}))
	def, err := b.Build()
	require.NoError(t, err)

	machine := sm.NewPassive(context.Background(), def)
	done := newCompletions()
	machine.OnTransitionCompleted(done.handler)
	require.NoError(t, machine.Initialize(stateA))
	require.NoError(t, machine.Start())
	done.wait(t, 1)
	require.NoError(t, machine.Stop())
	assert.False(t, machine.IsStarted())

	// accepted while stopped, processed after the next Start
	require.NoError(t, machine.Fire(eventStay))
	assert.Zero(t, ran)

	require.NoError(t, machine.Start())
	done.wait(t, 1)
	require.NoError(t, machine.Stop())
	assert.Equal(t, 1, ran)
}

func TestPassiveExceptionNotificationsInOrder(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")
	b := sm.Define[state, event]()
	b.In(stateA).ExecuteOnExit(
		sm.Do(func() error { return errA }),
		sm.Await(func(context.Context) error { return errB }),
	)
	b.In(stateA).On(eventGo).Goto(stateB)
	def, err := b.Build()
	require.NoError(t, err)

	machine := sm.NewPassive(context.Background(), def)
	var notified []error
	machine.OnTransitionException(func(_ *sm.TransitionContext[state, event], err error) {
		notified = append(notified, err)
	})
	done := newCompletions()
	machine.OnTransitionCompleted(done.handler)
	require.NoError(t, machine.Initialize(stateA))
	require.NoError(t, machine.Start())
	done.wait(t, 1)
	require.NoError(t, machine.Fire(eventGo))
	done.wait(t, 1)
	require.NoError(t, machine.Stop())

	require.Len(t, notified, 2)
	assert.Same(t, errA, notified[0])
	assert.Same(t, errB, notified[1])
}

func TestPassiveLifecycleErrors(t *testing.T) {
	b := sm.Define[state, event]()
	b.In(stateA)
	def, err := b.Build()
	require.NoError(t, err)

	machine := sm.NewPassive(context.Background(), def)
	require.ErrorIs(t, machine.Fire(eventGo), sm.ErrNotInitialized)
	require.ErrorIs(t, machine.Start(), sm.ErrNotInitialized)
	require.ErrorIs(t, machine.Stop(), sm.ErrNotStarted)

	require.NoError(t, machine.Initialize(stateA))
	require.ErrorIs(t, machine.Initialize(stateA), sm.ErrAlreadyInitialized)
	require.NoError(t, machine.Start())
	require.ErrorIs(t, machine.Start(), sm.ErrAlreadyStarted)
	require.NoError(t, machine.Stop())
	require.ErrorIs(t, machine.Stop(), sm.ErrNotStarted)
}

func TestPassiveStateReadableWhileWorkerTransitions(t *testing.T) {
	b := sm.Define[state, event]()
	b.In(stateA).On(eventGo).Goto(stateB)
	b.In(stateB).On(eventGo).Goto(stateA)
	def, err := b.Build()
	require.NoError(t, err)

	machine := sm.NewPassive(context.Background(), def)
	done := newCompletions()
	machine.OnTransitionCompleted(done.handler)
	require.NoError(t, machine.Initialize(stateA))
	require.NoError(t, machine.Start())
	done.wait(t, 1)

	stop := make(chan struct{})
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			current, err := machine.State()
			assert.NoError(t, err)
			assert.Contains(t, []state{stateA, stateB}, current)
			machine.CanFire(eventGo)
			machine.PermittedEvents()
		}
	}()

	const fires = 200
	for i := 0; i < fires; i++ {
		require.NoError(t, machine.Fire(eventGo))
	}
	done.wait(t, fires)
	close(stop)
	readers.Wait()
	require.NoError(t, machine.Stop())

	current, err := machine.State()
	require.NoError(t, err)
	assert.Equal(t, stateA, current)
}

func TestPassiveStopWaitsForInFlightAction(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	b := sm.Define[state, event]()
	b.In(stateA).On(eventGo).Goto(stateB).Execute(sm.Await(func(ctx context.Context) error {
		close(entered)
		<-release
		return nil
	}))
	b.In(stateB)
	def, err := b.Build()
	require.NoError(t, err)

	machine := sm.NewPassive(context.Background(), def)
	done := newCompletions()
	machine.OnTransitionCompleted(done.handler)
	require.NoError(t, machine.Initialize(stateA))
	require.NoError(t, machine.Start())
	done.wait(t, 1)
	require.NoError(t, machine.Fire(eventGo))
	<-entered

	stopped := make(chan error, 1)
	go func() { stopped <- machine.Stop() }()
	select {
	case <-stopped:
		t.Fatal("Stop returned while an action was still running")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	require.NoError(t, <-stopped)

	current, err := machine.State()
	require.NoError(t, err)
	assert.Equal(t, stateB, current)
}

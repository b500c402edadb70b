package core

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Event is a completion that can be waited on, possibly owned by another
// runtime.
type Event interface {
	Wait(ctx context.Context) error
}

// Completion is the done event of one task submitted to a Queue.
type Completion struct {
	done chan struct{}
	err  error
}

// Wait blocks until the task finished or ctx is done.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed when the task finished.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Queue is an in-order task queue. Every task starts after the previous one
// has completed, so work submitted in program order completes in that order.
//
// The first failure of an asynchronous task is latched and returned by the
// next Wait.
type Queue struct {
	mu   sync.Mutex
	tail *Completion
	err  error

	deps     []Event
	tracking bool
	done     []*Completion
}

// Submit enqueues task and returns its completion. Failures of async tasks
// are latched; synchronous callers observe them through the completion.
func (q *Queue) Submit(task func() error, async bool) *Completion {
	q.mu.Lock()
	defer q.mu.Unlock()

	prev := q.tail
	deps := q.deps
	q.deps = nil

	c := &Completion{done: make(chan struct{})}
	go func() {
		defer close(c.done)
		if prev != nil {
			<-prev.done
		}
		if len(deps) > 0 {
			if err := waitAll(deps); err != nil {
				c.err = err
				q.fail(err, async)
				return
			}
		}
		if err := run(task); err != nil {
			c.err = err
			q.fail(err, async)
		}
	}()

	q.tail = c
	if q.tracking {
		q.done = append(q.done, c)
	}
	return c
}

// Run submits task and blocks until it completes.
func (q *Queue) Run(task func() error) error {
	c := q.Submit(task, false)
	<-c.done
	return c.err
}

// Wait blocks until all submitted tasks have completed and returns the
// first latched asynchronous failure, if any.
func (q *Queue) Wait() error {
	q.mu.Lock()
	tail := q.tail
	q.mu.Unlock()

	if tail != nil {
		<-tail.done
	}

	q.mu.Lock()
	err := q.err
	q.err = nil
	q.mu.Unlock()
	return err
}

// Barrier merges the completions recorded so far into a single one.
func (q *Queue) Barrier() {
	q.mu.Lock()
	n := len(q.done)
	q.mu.Unlock()
	if n <= 1 {
		return
	}

	c := q.Submit(func() error { return nil }, true)

	q.mu.Lock()
	q.done = []*Completion{c}
	q.mu.Unlock()
}

// SetDepEvents makes the next task wait for events and starts recording
// completions.
func (q *Queue) SetDepEvents(events []Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deps = append([]Event(nil), events...)
	q.tracking = true
	q.done = nil
}

// DoneEvents returns the completions recorded since SetDepEvents and stops
// recording. Dependencies no task consumed are dropped.
func (q *Queue) DoneEvents() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	events := make([]Event, 0, len(q.done))
	for _, c := range q.done {
		events = append(events, c)
	}
	q.deps = nil
	q.tracking = false
	q.done = nil
	return events
}

func (q *Queue) fail(err error, async bool) {
	if !async {
		return
	}
	q.mu.Lock()
	if q.err == nil {
		q.err = err
	}
	q.mu.Unlock()
}

// SingleEvent reduces the done events of one submission to at most one.
// More than one event means a barrier is missing, which is an invariant
// violation and panics with a LogicError.
func SingleEvent(events []Event) Event {
	switch len(events) {
	case 0:
		return nil
	case 1:
		return events[0]
	default:
		panic(LogicError{Message: "missing barrier after filter kernels"})
	}
}

func waitAll(events []Event) error {
	g, ctx := errgroup.WithContext(context.Background())
	for _, ev := range events {
		g.Go(func() error {
			return ev.Wait(ctx)
		})
	}
	return g.Wait()
}

// errUnknownPanic is reported for tasks that panic with a non-error value.
var errUnknownPanic = errors.New("unknown exception caught")

func run(task func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = errUnknownPanic
			}
		}
	}()
	return task()
}

package engine

import (
	"sync"
	"sync/atomic"
)

// updateQueueSize bounds how many mutators can be waiting before
// submitters start blocking. Per-session update traffic is small
// (periodic ticks plus occasional approval callbacks), so a modest
// buffer is plenty.
const updateQueueSize = 64

type stateUpdate[T any] struct {
	fn    func(T) T
	reply chan T
}

// SerializedState serializes all mutation of a value through a single
// consumer goroutine. Snapshot never blocks and returns the last
// committed value; Update enqueues a mutator that runs after every
// previously submitted mutator, so no update can observe a value
// written by a later submission and no two mutators run concurrently.
//
// Mutators must be pure: compute the next value from the given one and
// return it. Side effects belong to the caller, after the returned
// channel resolves.
type SerializedState[T any] struct {
	current atomic.Pointer[T]
	updates chan stateUpdate[T]
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewSerializedState creates a serialized container holding initial and
// starts its consumer goroutine. Call Close when done with it.
func NewSerializedState[T any](initial T) *SerializedState[T] {
	s := &SerializedState[T]{
		updates: make(chan stateUpdate[T], updateQueueSize),
		done:    make(chan struct{}),
	}
	v := initial
	s.current.Store(&v)
	go s.run()
	return s
}

func (s *SerializedState[T]) run() {
	defer close(s.done)
	for u := range s.updates {
		next := u.fn(*s.current.Load())
		s.current.Store(&next)
		u.reply <- next
	}
}

// Snapshot returns the last committed value. It is safe to call from
// any goroutine, including rendering paths, and never blocks on
// in-flight updates.
func (s *SerializedState[T]) Snapshot() T {
	return *s.current.Load()
}

// Update enqueues fn and returns a channel that resolves with the value
// fn produced once it has run. Updates submitted after Close resolve
// immediately with the final value, without applying fn.
func (s *SerializedState[T]) Update(fn func(T) T) <-chan T {
	reply := make(chan T, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		reply <- s.Snapshot()
		return reply
	}
	// Sending under the lock defines submission order when several
	// goroutines race to submit.
	s.updates <- stateUpdate[T]{fn: fn, reply: reply}
	s.mu.Unlock()

	return reply
}

// Close stops accepting updates, waits for already-queued mutators to
// finish, and releases the consumer goroutine. Idempotent.
func (s *SerializedState[T]) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.updates)
	}
	s.mu.Unlock()
	<-s.done
}

package provider

import (
	"context"
	"sync"
)

// Subscription is a single-consumer stream of values. The producer delivers
// with Send and finishes with Close; the consumer reads C and may call
// Unsubscribe any number of times.
//
// Only the producer closes C. After Unsubscribe the producer observes
// Context().Done(), stops sending, and closes.
type Subscription[T any] struct {
	C <-chan T

	ch        chan T
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	sendMu sync.Mutex // serializes Send with Close
	closed bool

	mu  sync.Mutex
	err error
}

// NewSubscription creates a subscription whose context derives from ctx.
func NewSubscription[T any](ctx context.Context, bufSize int) *Subscription[T] {
	ch := make(chan T, bufSize)
	sctx, cancel := context.WithCancel(ctx)

	return &Subscription[T]{
		C:      ch,
		ch:     ch,
		ctx:    sctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Context is cancelled when the consumer unsubscribes or the parent context ends.
func (s *Subscription[T]) Context() context.Context { return s.ctx }

// Send delivers v, blocking until it is buffered or the subscription is
// cancelled. It reports whether v was delivered. Send after Close is a no-op.
func (s *Subscription[T]) Send(v T) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.closed || s.ctx.Err() != nil {
		return false
	}

	select {
	case s.ch <- v:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// Close ends the stream with an optional error and closes C. Only the first
// call has an effect.
func (s *Subscription[T]) Close(err error) {
	s.closeOnce.Do(func() {
		// Cancel first so a blocked Send gives up the lock.
		s.cancel()

		s.mu.Lock()
		s.err = err
		s.mu.Unlock()

		s.sendMu.Lock()
		s.closed = true
		close(s.ch)
		s.sendMu.Unlock()

		close(s.done)
	})
}

// Unsubscribe asks the producer to stop. It is safe to call repeatedly and
// after the stream has ended.
func (s *Subscription[T]) Unsubscribe() {
	s.cancel()
}

// Done is closed once the producer has closed the stream.
func (s *Subscription[T]) Done() <-chan struct{} { return s.done }

// Err returns the error the stream ended with, if any.
func (s *Subscription[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

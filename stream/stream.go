package stream

import (
	"context"
	"sync"
)

// Event is one delivery on a Stream: either a snapshot value or a terminal error.
type Event[T any] struct {
	Value T
	Err   error
}

// Stream is a live, cancellable sequence of typed snapshots.
// Events are delivered in production order and the channel is closed once the
// producer stops.
type Stream[T any] struct {
	events chan Event[T]
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// New starts run in its own goroutine. run publishes snapshots through emit,
// which reports false once the stream has been cancelled. A non-nil error
// returned by run is delivered as the final event unless the stream was
// cancelled first.
func New[T any](parent context.Context, run func(ctx context.Context, emit func(T) bool) error) *Stream[T] {
	ctx, cancel := context.WithCancel(parent)
	s := &Stream[T]{
		events: make(chan Event[T]),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.events)

		emit := func(v T) bool {
			select {
			case s.events <- Event[T]{Value: v}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if err := run(ctx, emit); err != nil && ctx.Err() == nil {
			select {
			case s.events <- Event[T]{Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return s
}

// Fail returns a stream that delivers err and closes.
func Fail[T any](err error) *Stream[T] {
	return New(context.Background(), func(context.Context, func(T) bool) error {
		return err
	})
}

func (s *Stream[T]) Events() <-chan Event[T] { return s.events }

// Done is closed when the producer has stopped.
func (s *Stream[T]) Done() <-chan struct{} { return s.done }

// Cancel stops the producer and waits for it to exit. After Cancel returns no
// further events are produced. Safe to call more than once.
func (s *Stream[T]) Cancel() {
	s.once.Do(s.cancel)
	<-s.done
}

// Map converts every value of src with f. A conversion error ends the stream.
// Cancelling the returned stream cancels src.
func Map[A, B any](src *Stream[A], f func(A) (B, error)) *Stream[B] {
	return New(context.Background(), func(ctx context.Context, emit func(B) bool) error {
		defer src.Cancel()
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-src.Events():
				if !ok {
					return nil
				}
				if ev.Err != nil {
					return ev.Err
				}
				v, err := f(ev.Value)
				if err != nil {
					return err
				}
				if !emit(v) {
					return nil
				}
			}
		}
	})
}

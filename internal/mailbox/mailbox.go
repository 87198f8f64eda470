// Package mailbox provides an unbounded, single-consumer FIFO used as the
// inbox of a rank. Producers never block, which keeps Send non-blocking for
// the sender while Receive blocks until a value or a close arrives.
package mailbox

import (
	"context"
	"errors"
	"sync"

	"github.com/gammazero/deque"
)

// ErrClosed is returned by Pop once the mailbox has been closed without a
// specific cause and drained.
var ErrClosed = errors.New("mailbox closed")

// Mailbox is an unbounded FIFO with a single consumer.
type Mailbox[T any] struct {
	mu     sync.Mutex
	queue  deque.Deque[T]
	wake   chan struct{}
	closed bool
	cause  error
}

// New creates an empty, open mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{wake: make(chan struct{}, 1)}
}

// Push appends v. It fails only when the mailbox is closed.
func (m *Mailbox[T]) Push(v T) error {
	m.mu.Lock()
	if m.closed {
		err := m.cause
		m.mu.Unlock()
		return err
	}
	m.queue.PushBack(v)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes the oldest value, blocking until one is available, the mailbox
// is closed, or ctx is done. A closed mailbox returns its cause immediately,
// discarding anything still queued: a close means the run is being torn down.
func (m *Mailbox[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	for {
		m.mu.Lock()
		if m.closed {
			err := m.cause
			m.mu.Unlock()
			return zero, err
		}
		if m.queue.Len() > 0 {
			v := m.queue.PopFront()
			m.mu.Unlock()
			return v, nil
		}
		m.mu.Unlock()

		select {
		case <-m.wake:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Len reports the number of queued values.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

// Close closes the mailbox with cause (ErrClosed when nil). Only the first
// close takes effect.
func (m *Mailbox[T]) Close(cause error) {
	if cause == nil {
		cause = ErrClosed
	}
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		m.cause = cause
	}
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

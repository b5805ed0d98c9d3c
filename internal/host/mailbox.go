package host

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("mailbox closed")

// Mailbox is an unbounded FIFO queue. Writers never block; a reader can
// drain it without blocking or wait for the next item.
type Mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	notify chan struct{}
}

func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{notify: make(chan struct{}, 1)}
}

// Put appends v. It returns false once the mailbox is closed.
func (m *Mailbox[T]) Put(v T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items = append(m.items, v)
	ch := m.notify
	m.mu.Unlock()
	signal(ch)
	return true
}

// Drain removes and returns everything queued.
func (m *Mailbox[T]) Drain() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.items
	m.items = nil
	return out
}

func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close stops further writes. Items already queued can still be read.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	ch := m.notify
	m.mu.Unlock()
	signal(ch)
}

func (m *Mailbox[T]) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Next waits for the oldest item. It returns ErrClosed once the mailbox is
// closed and empty.
func (m *Mailbox[T]) Next(ctx context.Context) (T, error) {
	for {
		m.mu.Lock()
		if len(m.items) > 0 {
			v := m.items[0]
			m.items = m.items[1:]
			m.mu.Unlock()
			return v, nil
		}
		closed, ch := m.closed, m.notify
		m.mu.Unlock()
		if closed {
			var zero T
			return zero, ErrClosed
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-ch:
		}
	}
}

// wakeWith makes Put and Close signal ch instead of the mailbox's own
// channel, so one reader can watch several mailboxes.
func (m *Mailbox[T]) wakeWith(ch chan struct{}) {
	m.mu.Lock()
	m.notify = ch
	m.mu.Unlock()
	if m.Len() > 0 || m.Closed() {
		signal(ch)
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

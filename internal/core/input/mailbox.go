package input

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrMailboxFull   = errors.New("input mailbox is full")
	ErrMailboxClosed = errors.New("input mailbox is closed")
)

const DefaultMailboxSize = 64

// Mailbox is the only hand-off between the I/O goroutine and the tick.
// Post may be called from any goroutine; Drain only from the tick.
type Mailbox struct {
	ch       chan Command
	blocking bool

	closeOnce sync.Once
	closed    chan struct{}
}

// NewMailbox creates a mailbox of the given capacity. In blocking mode Post
// waits for room until ctx is done; otherwise it fails fast with
// ErrMailboxFull.
func NewMailbox(size int, blocking bool) *Mailbox {
	if size <= 0 {
		size = DefaultMailboxSize
	}
	return &Mailbox{
		ch:       make(chan Command, size),
		blocking: blocking,
		closed:   make(chan struct{}),
	}
}

func (m *Mailbox) Post(ctx context.Context, cmd Command) error {
	select {
	case <-m.closed:
		return ErrMailboxClosed
	default:
	}

	if !m.blocking {
		select {
		case m.ch <- cmd:
			return nil
		default:
			return ErrMailboxFull
		}
	}

	select {
	case m.ch <- cmd:
		return nil
	case <-m.closed:
		return ErrMailboxClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain hands every queued command to fn in arrival order without blocking
// and returns how many were delivered.
func (m *Mailbox) Drain(fn func(Command)) int {
	n := 0
	for {
		select {
		case cmd := <-m.ch:
			fn(cmd)
			n++
		default:
			return n
		}
	}
}

func (m *Mailbox) Len() int { return len(m.ch) }

// Close rejects further posts. Queued commands can still be drained.
func (m *Mailbox) Close() {
	m.closeOnce.Do(func() { close(m.closed) })
}

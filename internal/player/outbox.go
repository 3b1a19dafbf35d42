package player

import (
	"errors"
	"sync"
)

var (
	ErrOutboxClosed = errors.New("outbox closed")
	ErrOutboxFull   = errors.New("outbox full")
)

// Outbox is a player's bounded outbound line queue. Send never blocks, and is
// safe to call concurrently with Close.
type Outbox struct {
	ch   chan string
	done chan struct{}
	once sync.Once
}

// NewOutbox creates an outbox holding up to size pending lines.
func NewOutbox(size int) *Outbox {
	if size < 1 {
		size = 1
	}
	return &Outbox{
		ch:   make(chan string, size),
		done: make(chan struct{}),
	}
}

// Send queues line for delivery.
func (o *Outbox) Send(line string) error {
	select {
	case <-o.done:
		return ErrOutboxClosed
	default:
	}
	select {
	case o.ch <- line:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Lines is drained by the connection's writer.
func (o *Outbox) Lines() <-chan string { return o.ch }

// Done is closed by Close.
func (o *Outbox) Done() <-chan struct{} { return o.done }

// Close stops accepting lines. The channel itself is never closed, so late
// senders cannot panic; the writer stops on Done.
func (o *Outbox) Close() {
	o.once.Do(func() { close(o.done) })
}

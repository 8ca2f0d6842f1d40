package messaging

import (
	"context"
	"sync"
	"time"
)

// Noop accepts and drops every message.
type Noop struct{}

// NewNoop returns a Publisher that discards messages.
func NewNoop() *Noop {
	return &Noop{}
}

// Publish discards msg.
func (*Noop) Publish(ctx context.Context, destination string, _ OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}

	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}

// Close is a no-op.
func (*Noop) Close() error {
	return nil
}

// Published is a message captured by Memory.
type Published struct {
	Destination string
	Message     OutgoingMessage
}

// Memory keeps published messages in order. It is safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	msgs   []Published
	err    error
	closed bool
}

// NewMemory returns an empty in-process Publisher.
func NewMemory() *Memory {
	return &Memory{}
}

// FailWith makes subsequent Publish calls return err.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Publish records msg.
func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return PublishResult{}, ErrClosed
	}
	if m.err != nil {
		return PublishResult{}, m.err
	}
	m.msgs = append(m.msgs, Published{Destination: destination, Message: msg})

	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}

// Messages returns a copy of everything published so far.
func (m *Memory) Messages() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Published(nil), m.msgs...)
}

// Close rejects further publishes.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	return nil
}

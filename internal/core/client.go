package core

import (
	"context"
	"sync"
)

// DefaultClientBuffer is the event buffer used when none is configured.
const DefaultClientBuffer = 256

// Client is a relay connection as seen by the core layer.
type Client struct {
	ID       string
	Name     string
	Commands chan *Command
	Events   chan *Event

	// canvas is the room the client is admitted to. Owned by the hub goroutine.
	canvas string

	done     chan struct{}
	doneOnce sync.Once
}

// NewClient constructs a client with initialized channels. A non-positive buffer
// uses DefaultClientBuffer.
func NewClient(id, name string, buffer int) *Client {
	if name == "" {
		name = id
	}
	if buffer <= 0 {
		buffer = DefaultClientBuffer
	}
	return &Client{
		ID:       id,
		Name:     name,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, buffer),
		done:     make(chan struct{}),
	}
}

// Done is closed once the hub has unregistered the client.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) close() {
	c.doneOnce.Do(func() { close(c.done) })
}

// deliver queues ev without blocking. A full buffer drops the event.
func (c *Client) deliver(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}

// deliverWait blocks until ev is queued, the client goes away or ctx ends.
func (c *Client) deliverWait(ctx context.Context, ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	case <-c.done:
		return false
	case <-ctx.Done():
		return false
	}
}

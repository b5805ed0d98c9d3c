package host

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ross1116/pokebattle/internal/battle"
	"github.com/ross1116/pokebattle/internal/protocol"
)

// Conn joins one participant to a host. The participant calls Send, Recv and
// Close; the host reads the inbox on its ticks and writes the outbox.
type Conn struct {
	ID   string
	Name string

	inbox  *Mailbox[protocol.ClientMessage]
	outbox *Mailbox[protocol.ServerMessage]
}

var _ protocol.Endpoint = (*Conn)(nil)

func NewConn(name string) *Conn {
	return &Conn{
		ID:     uuid.NewString(),
		Name:   name,
		inbox:  NewMailbox[protocol.ClientMessage](),
		outbox: NewMailbox[protocol.ServerMessage](),
	}
}

func (c *Conn) Send(m protocol.ClientMessage) error {
	if !c.inbox.Put(m) {
		return battle.ErrDisconnected
	}
	return nil
}

// Recv returns the next message from the host. After the host has sent End
// and the outbox is empty it returns ErrClosed.
func (c *Conn) Recv(ctx context.Context) (protocol.ServerMessage, error) {
	return c.outbox.Next(ctx)
}

// Pending takes every message the host has queued so far without waiting.
func (c *Conn) Pending() []protocol.ServerMessage {
	return c.outbox.Drain()
}

// Close disconnects the participant. The host forfeits its side on the next
// tick.
func (c *Conn) Close() {
	c.inbox.Close()
}

func (c *Conn) Disconnected() bool { return c.inbox.Closed() }

func (c *Conn) deliver(m protocol.ServerMessage) {
	c.outbox.Put(m)
}

func (c *Conn) hangUp() {
	c.outbox.Close()
}

// IsClosed reports whether err means the host has finished with the
// connection.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

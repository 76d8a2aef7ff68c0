// internal/room/conn.go
package room

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// Conn is a participant's transient connection handle. Identity inside a
// room is always the display name; the Conn only carries frames and is
// replaced wholesale on reconnect.
type Conn struct {
	ID      uuid.UUID
	Cancel  context.CancelFunc
	OutChan chan map[string]interface{}
}

// NewConn allocates a connection handle with a buffered outbound channel.
func NewConn(cancel context.CancelFunc) *Conn {
	return &Conn{
		ID:      uuid.New(),
		Cancel:  cancel,
		OutChan: make(chan map[string]interface{}, 16),
	}
}

// Write pushes a message onto the connection's OutChan non-blockingly.
// A full or closed channel drops the message; the write pump or reconnect
// will resynchronize the client with the next snapshot.
func (c *Conn) Write(msg map[string]interface{}) {
	select {
	case c.OutChan <- msg:
	default:
		msgType, _ := msg["type"].(string)
		log.Printf("room: OutChan for conn %s full or retired, dropped %q", c.ID, msgType)
	}
}

// retire stops the handle's pumps via context cancellation. The out channel
// is deliberately left open: another participant record (or another room) may
// still hold this handle, and a send to a closed channel panics the sender
// regardless of Write's default case. Once the write pump has exited,
// further writes just drop.
func (c *Conn) retire() {
	if c.Cancel != nil {
		c.Cancel()
	}
}

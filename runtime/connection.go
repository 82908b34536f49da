// Package runtime owns the live-connection registry and message routing.
// It orchestrates delivery without containing business logic or domain rules.
package runtime

import (
	"time"

	"github.com/google/uuid"

	"github.com/javascriptisbest/pbl4-sub001/contract"
	"github.com/javascriptisbest/pbl4-sub001/domain/event"
)

// Connection is one live transport connection bound to a verified user.
// It never outlives its transport: the gateway deregisters it in the same
// step that detects the close. A reconnect always creates a new Connection,
// never resurrects an old one.
type Connection struct {
	id        uuid.UUID
	userID    string
	createdAt time.Time
	sink      contract.EventSink
}

func NewConnection(userID string, sink contract.EventSink) *Connection {
	return &Connection{
		id:        uuid.New(),
		userID:    userID,
		createdAt: time.Now().UTC(),
		sink:      sink,
	}
}

func (c *Connection) ConnID() uuid.UUID    { return c.id }
func (c *Connection) UserID() string       { return c.userID }
func (c *Connection) CreatedAt() time.Time { return c.createdAt }

func (c *Connection) Consume(e event.DomainEvent) error {
	return c.sink.Consume(e)
}

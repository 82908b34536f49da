// Package event defines the outbound wire events pushed to live connections.
package event

import (
	"github.com/javascriptisbest/pbl4-sub001/domain"
)

// Wire event names. These two strings are part of the client contract.
const (
	NameNewMessage      = "newMessage"
	NamePresenceChanged = "presenceChanged"
)

type DomainEvent interface {
	Event() string
}

// NewMessage carries a freshly persisted message to a live connection.
type NewMessage struct {
	Message domain.Message `json:"message"`
}

func (NewMessage) Event() string { return NameNewMessage }

// PresenceChanged carries the full snapshot of online users, in stable
// sorted order so that consecutive snapshots are diffable.
type PresenceChanged struct {
	Online []string `json:"online"`
}

func (PresenceChanged) Event() string { return NamePresenceChanged }

// Envelope is the JSON frame written to the transport.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func Wrap(e DomainEvent) Envelope {
	return Envelope{Event: e.Event(), Data: e}
}

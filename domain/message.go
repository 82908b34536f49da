// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable and validated by the domain.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event.
// It is created by the persistence layer and never mutated afterwards;
// routing treats it as read-only input.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Sender    string    `json:"sender"`
	Target    Target    `json:"target"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"github.com/google/uuid"

	"github.com/javascriptisbest/pbl4-sub001/domain"
	"github.com/javascriptisbest/pbl4-sub001/domain/event"
)

// EventSink is one consumer of outbound events. Consume must not block;
// a slow consumer drops rather than stalls the producer.
type EventSink interface {
	Consume(e event.DomainEvent) error
}

// Conn is one live, authenticated connection. A user may hold several
// at once (multiple devices or tabs).
type Conn interface {
	EventSink
	ConnID() uuid.UUID
	UserID() string
}

// IPresence is the process-wide registry of live connections.
// Entry existence is exactly the online/offline predicate:
// a user with zero live connections has no entry at all.
type IPresence interface {
	Register(c Conn)
	Deregister(c Conn)
	ConnectionsFor(userID string) []Conn
	OnlineUsers() []string
}

// SessionVerifier validates a handshake token and yields the user identity.
// Failure is errors.ErrAuthRejected, possibly wrapped.
type SessionVerifier interface {
	Verify(token string) (string, error)
}

// GroupResolver yields the current member identities of a group.
type GroupResolver interface {
	Members(groupID string) ([]string, error)
}

// IRouter pushes a persisted message to its live target connections and
// reports how many were actually reached. Zero is a normal outcome.
type IRouter interface {
	Deliver(msg domain.Message, exclude uuid.UUID) int
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

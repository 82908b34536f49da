package runtime

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/javascriptisbest/pbl4-sub001/contract"
	"github.com/javascriptisbest/pbl4-sub001/domain/event"
)

type connSet map[uuid.UUID]contract.Conn

// Registry is the single authority for presence: a process-wide mapping
// from user identity to the set of live connections for that user.
// An entry exists exactly while the user has at least one live connection;
// the entry is removed, never kept empty, when the last connection closes.
//
// All mutations happen under one mutex, so reads used for delivery never
// observe an entry mid-mutation.
type Registry struct {
	mu    sync.Mutex
	users map[string]connSet
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]connSet),
	}
}

// Register adds a connection under its user's entry, creating the entry if
// absent, and notifies every registered connection with the new presence
// snapshot.
func (r *Registry) Register(c contract.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[c.UserID()]
	if !ok {
		set = make(connSet)
		r.users[c.UserID()] = set
	}
	set[c.ConnID()] = c

	r.broadcastPresence()
}

// Deregister removes a connection from its user's entry and drops the entry
// entirely once it empties. Deregistering an unknown or already-removed
// connection is a no-op: transports may signal closure more than once.
func (r *Registry) Deregister(c contract.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.users[c.UserID()]
	if !ok {
		return
	}
	if _, ok = set[c.ConnID()]; !ok {
		return
	}
	delete(set, c.ConnID())
	if len(set) == 0 {
		delete(r.users, c.UserID())
	}

	r.broadcastPresence()
}

// ConnectionsFor returns the live connections of a user.
// Absence is represented by emptiness, never by an error.
func (r *Registry) ConnectionsFor(userID string) []contract.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	return lo.Values(r.users[userID])
}

// OnlineUsers returns the identities holding at least one live connection,
// sorted so consecutive snapshots are diffable and testable.
func (r *Registry) OnlineUsers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.onlineSnapshot()
}

func (r *Registry) onlineSnapshot() []string {
	online := lo.Keys(r.users)
	sort.Strings(online)
	return online
}

// broadcastPresence pushes the current snapshot to every registered
// connection. Caller must hold the mutex; sinks are non-blocking, so the
// lock is never held across network I/O.
func (r *Registry) broadcastPresence() {
	snapshot := event.PresenceChanged{Online: r.onlineSnapshot()}
	for _, set := range r.users {
		for _, c := range set {
			_ = c.Consume(snapshot)
		}
	}
}

package runtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/javascriptisbest/pbl4-sub001/domain/event"
)

// captureSink records every event pushed to a connection.
type captureSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *captureSink) Consume(e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) presenceSnapshots() []event.PresenceChanged {
	s.mu.Lock()
	defer s.mu.Unlock()
	var snapshots []event.PresenceChanged
	for _, e := range s.events {
		if p, ok := e.(event.PresenceChanged); ok {
			snapshots = append(snapshots, p)
		}
	}
	return snapshots
}

func (s *captureSink) newMessages() []event.NewMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var messages []event.NewMessage
	for _, e := range s.events {
		if m, ok := e.(event.NewMessage); ok {
			messages = append(messages, m)
		}
	}
	return messages
}

func TestRegistry_Register_One_User_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink := &captureSink{}

	// Given no user is connected
	req.Empty(registry.OnlineUsers())

	// When a connection registers
	conn := NewConnection("alice", sink)
	registry.Register(conn)

	// Then the user is online with exactly that connection
	req.Equal([]string{"alice"}, registry.OnlineUsers())
	req.Len(registry.ConnectionsFor("alice"), 1)
	req.Equal(conn.ConnID(), registry.ConnectionsFor("alice")[0].ConnID())

	// And the connection received the presence snapshot
	snapshots := sink.presenceSnapshots()
	req.Len(snapshots, 1)
	req.Equal([]string{"alice"}, snapshots[0].Online)
}

func TestRegistry_Register_One_User_Multiple_Devices(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// When the same user registers from two devices
	registry.Register(NewConnection("alice", &captureSink{}))
	registry.Register(NewConnection("alice", &captureSink{}))

	// Then there is one presence entry holding both connections
	req.Equal([]string{"alice"}, registry.OnlineUsers())
	req.Len(registry.ConnectionsFor("alice"), 2)
}

func TestRegistry_OnlineUsers_Sorted_Snapshot(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// When users register in arbitrary order
	registry.Register(NewConnection("carol", &captureSink{}))
	registry.Register(NewConnection("alice", &captureSink{}))
	registry.Register(NewConnection("bob", &captureSink{}))

	// Then the snapshot is stable sorted
	req.Equal([]string{"alice", "bob", "carol"}, registry.OnlineUsers())
}

func TestRegistry_Presence_Broadcast_Reaches_All_Connections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	aliceSink := &captureSink{}

	// Given alice is already connected
	registry.Register(NewConnection("alice", aliceSink))

	// When bob joins
	registry.Register(NewConnection("bob", &captureSink{}))

	// Then alice observed both snapshots, in order
	snapshots := aliceSink.presenceSnapshots()
	req.Len(snapshots, 2)
	req.Equal([]string{"alice"}, snapshots[0].Online)
	req.Equal([]string{"alice", "bob"}, snapshots[1].Online)
}

func TestRegistry_Deregister_Last_Connection_Removes_Entry(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := NewConnection("alice", &captureSink{})

	// Given a registered connection
	registry.Register(conn)

	// When it deregisters
	registry.Deregister(conn)

	// Then the entry is gone entirely, not kept empty
	req.Empty(registry.OnlineUsers())
	req.Empty(registry.ConnectionsFor("alice"))
}

func TestRegistry_Deregister_Keeps_Other_Devices(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	device1 := NewConnection("alice", &captureSink{})
	device2 := NewConnection("alice", &captureSink{})
	registry.Register(device1)
	registry.Register(device2)

	// When one device disconnects
	registry.Deregister(device1)

	// Then the user stays online through the other device
	req.Equal([]string{"alice"}, registry.OnlineUsers())
	req.Len(registry.ConnectionsFor("alice"), 1)
	req.Equal(device2.ConnID(), registry.ConnectionsFor("alice")[0].ConnID())
}

func TestRegistry_Deregister_Twice_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	observer := &captureSink{}
	conn := NewConnection("alice", &captureSink{})
	registry.Register(NewConnection("bob", observer))
	registry.Register(conn)
	registry.Deregister(conn)
	snapshotsAfterFirst := len(observer.presenceSnapshots())

	// When the transport signals closure a second time
	registry.Deregister(conn)

	// Then nothing changed and no extra broadcast happened
	req.Equal([]string{"bob"}, registry.OnlineUsers())
	req.Len(observer.presenceSnapshots(), snapshotsAfterFirst)
}

func TestRegistry_Deregister_Unknown_Connection_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register(NewConnection("alice", &captureSink{}))

	// When a never-registered connection deregisters
	registry.Deregister(NewConnection("ghost", &captureSink{}))

	// Then the registry is untouched
	req.Equal([]string{"alice"}, registry.OnlineUsers())
}

func TestRegistry_ConnectionsFor_Unknown_User_Is_Empty(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Absence is emptiness, never an error
	req.Empty(registry.ConnectionsFor("nobody"))
}

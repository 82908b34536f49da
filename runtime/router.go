package runtime

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/javascriptisbest/pbl4-sub001/contract"
	"github.com/javascriptisbest/pbl4-sub001/domain"
	"github.com/javascriptisbest/pbl4-sub001/domain/event"
)

// Router pushes persisted messages to the live connections that should see
// them. Delivery is best-effort and fire-and-forget: persistence owns
// durability, so an offline target simply means zero connections reached.
type Router struct {
	log      *slog.Logger
	presence contract.IPresence
	groups   contract.GroupResolver
}

func NewRouter(log *slog.Logger, presence contract.IPresence, groups contract.GroupResolver) *Router {
	return &Router{log: log, presence: presence, groups: groups}
}

// Deliver emits a newMessage event to every live connection of the target
// set and returns the count of connections actually reached.
//
// The sender's own other devices are included, so multi-device state stays
// consistent. The originating connection is the caller's business: pass its
// id as exclude to avoid a duplicate local echo, or uuid.Nil to echo
// everywhere.
//
// Deliveries are independent: a failing connection never blocks or rolls
// back delivery to the others.
func (r *Router) Deliver(msg domain.Message, exclude uuid.UUID) int {
	members, err := r.resolveMembers(msg)
	if err != nil {
		r.log.Warn("Target resolution failed, message stays persisted only",
			"target", msg.Target.ID, "error", err)
		return 0
	}

	evt := event.NewMessage{Message: msg}
	delivered := 0
	for _, member := range members {
		for _, conn := range r.presence.ConnectionsFor(member) {
			if conn.ConnID() == exclude {
				continue
			}
			if err := conn.Consume(evt); err != nil {
				r.log.Warn("Delivery to connection failed",
					"user", member, "connection", conn.ConnID(), "error", err)
				continue
			}
			delivered++
		}
	}

	if delivered == 0 {
		r.log.Debug(fmt.Sprintf("No live connection reached for message %s", msg.ID))
	}
	return delivered
}

// resolveMembers computes the user identities whose connections form the
// delivery target set. Never cached: presence is too volatile.
func (r *Router) resolveMembers(msg domain.Message) ([]string, error) {
	switch msg.Target.Kind {
	case domain.TargetGroup:
		members, err := r.groups.Members(msg.Target.ID)
		if err != nil {
			return nil, err
		}
		// Sender devices receive the echo even when membership listings
		// lag behind; dedupe in case the resolver already includes them.
		return lo.Uniq(append(members, msg.Sender)), nil
	default:
		return []string{msg.Target.ID}, nil
	}
}

// Package gateway bridges inbound transport connections to the presence
// registry and the message router.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/javascriptisbest/pbl4-sub001/contract"
	"github.com/javascriptisbest/pbl4-sub001/domain"
	"github.com/javascriptisbest/pbl4-sub001/errors"
	"github.com/javascriptisbest/pbl4-sub001/runtime"
	"github.com/javascriptisbest/pbl4-sub001/services"
)

var validate = validator.New()

// State of one connection. Transitions only move forward:
// Unauthenticated -> Registered -> Closed. A reconnect is a new Session.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateRegistered      State = "registered"
	StateClosed          State = "closed"
)

// Transport is the I/O half of a connection: an event sink the registry and
// router push into, plus a Close. Kept as an interface so the session state
// machine is testable without a websocket runtime.
type Transport interface {
	contract.EventSink
	Close() error
}

// SendMessageRequest is the only inbound wire event accepted from clients.
// The sender is never part of it: identity comes from the handshake binding.
type SendMessageRequest struct {
	Target  string `json:"target" validate:"required"`
	Kind    string `json:"kind" validate:"omitempty,oneof=user group"`
	Content string `json:"content" validate:"required,max=4096"`
}

// Session is the per-connection state machine of the gateway.
type Session struct {
	log      *slog.Logger
	verifier contract.SessionVerifier
	presence contract.IPresence
	chat     services.IChatService

	transport Transport

	mu    sync.Mutex
	state State
	conn  *runtime.Connection
}

func NewSession(log *slog.Logger, verifier contract.SessionVerifier,
	presence contract.IPresence, chat services.IChatService, transport Transport) *Session {
	return &Session{
		log:       log,
		verifier:  verifier,
		presence:  presence,
		chat:      chat,
		transport: transport,
		state:     StateUnauthenticated,
	}
}

// Handshake authenticates the supplied token and, on success, registers a
// fresh connection handle bound to the verified identity. On failure the
// transport is closed and nothing is ever registered: verification completes
// or fails before registration is attempted.
func (s *Session) Handshake(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUnauthenticated {
		return errors.ErrSessionClosed
	}

	userID, err := s.verifier.Verify(token)
	if err != nil {
		s.state = StateClosed
		_ = s.transport.Close()
		return fmt.Errorf("%w: %v", errors.ErrAuthRejected, err)
	}

	s.conn = runtime.NewConnection(userID, s.transport)
	s.presence.Register(s.conn)
	s.state = StateRegistered

	s.log.Info("Connection registered", "user", userID, "connection", s.conn.ConnID())
	return nil
}

// HandleInbound processes one send-message event from the client. A
// malformed payload is dropped with ErrInvalidPayload and the session stays
// open. The sender identity is always the one bound at handshake time.
func (s *Session) HandleInbound(ctx context.Context, raw []byte) error {
	s.mu.Lock()
	if s.state != StateRegistered {
		s.mu.Unlock()
		return errors.ErrSessionClosed
	}
	conn := s.conn
	s.mu.Unlock()

	var req SendMessageRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}

	target := domain.UserTarget(req.Target)
	if req.Kind == string(domain.TargetGroup) {
		target = domain.GroupTarget(req.Target)
	}

	// The originating connection is excluded from the echo: the client
	// already renders its own message locally.
	_, _, err := s.chat.SendMessage(ctx, conn.UserID(), target, req.Content, conn.ConnID())
	return err
}

// Close deregisters unconditionally and closes the transport. Safe to call
// at any time and any number of times, including before registration ever
// completed: double deregistration is a registry no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.presence.Deregister(s.conn)
	}
	if s.state != StateClosed {
		s.state = StateClosed
		_ = s.transport.Close()
	}
}

// State reports the current lifecycle state. Mostly for tests.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UserID returns the identity bound at handshake time, or "" before it.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ""
	}
	return s.conn.UserID()
}

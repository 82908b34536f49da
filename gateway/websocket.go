package gateway

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/javascriptisbest/pbl4-sub001/contract"
	"github.com/javascriptisbest/pbl4-sub001/domain/event"
	"github.com/javascriptisbest/pbl4-sub001/errors"
	"github.com/javascriptisbest/pbl4-sub001/services"
)

const (
	maxMessageSize = 8 * 1024
	readTimeout    = 60 * time.Second
	pingInterval   = 25 * time.Second
	outboundBuffer = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades HTTP to websocket, runs the handshake with the token
// taken from the `token` query parameter, and pumps inbound events into the
// session until the transport closes.
func Handler(log *slog.Logger, verifier contract.SessionVerifier,
	presence contract.IPresence, chat services.IChatService) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("Websocket upgrade failed", "error", err)
			return
		}

		transport := newWSTransport(ws)
		go transport.writeLoop()

		session := NewSession(log, verifier, presence, chat, transport)
		if err := session.Handshake(r.URL.Query().Get("token")); err != nil {
			log.Warn("Handshake rejected", "remote", r.RemoteAddr, "error", err)
			return
		}
		defer session.Close()

		ws.SetReadLimit(maxMessageSize)
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(readTimeout))
		})

		for {
			_, raw, err := ws.ReadMessage()
			if err != nil {
				// Transport closed; deferred Close deregisters exactly once.
				return
			}
			if err := session.HandleInbound(r.Context(), raw); err != nil {
				log.Warn("Dropping inbound event",
					"user", session.UserID(), "error", err)
			}
		}
	}
}

// wsTransport adapts one gorilla connection to the Transport interface.
// A single writer goroutine drains the outbound queue, which gives FIFO
// delivery per connection for free.
type wsTransport struct {
	ws   *websocket.Conn
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func newWSTransport(ws *websocket.Conn) *wsTransport {
	return &wsTransport{
		ws:   ws,
		out:  make(chan []byte, outboundBuffer),
		done: make(chan struct{}),
	}
}

// Consume queues one event frame. It never blocks: a full buffer means the
// client is too slow and the event is dropped, reported as a miss.
func (t *wsTransport) Consume(e event.DomainEvent) error {
	frame, err := json.Marshal(event.Wrap(e))
	if err != nil {
		return err
	}
	select {
	case <-t.done:
		return errors.ErrSessionClosed
	case t.out <- frame:
		return nil
	default:
		return fmt.Errorf("outbound buffer full, frame dropped")
	}
}

func (t *wsTransport) Close() error {
	t.once.Do(func() {
		close(t.done)
	})
	return nil
}

func (t *wsTransport) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer t.ws.Close()

	for {
		select {
		case frame := <-t.out:
			if err := t.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := t.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-t.done:
			// Drain what is already queued, then say goodbye properly.
			for {
				select {
				case frame := <-t.out:
					_ = t.ws.WriteMessage(websocket.TextMessage, frame)
				default:
					_ = t.ws.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/javascriptisbest/pbl4-sub001/auth"
	"github.com/javascriptisbest/pbl4-sub001/gateway"
	"github.com/javascriptisbest/pbl4-sub001/repositories"
	"github.com/javascriptisbest/pbl4-sub001/runtime"
	"github.com/javascriptisbest/pbl4-sub001/services"
)

// wireFrame mirrors the outbound envelope with the payload left raw so each
// scenario can decode the event it expects.
type wireFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// BaseChatSuite boots the whole stack in-process: BadgerDB in a temp dir,
// presence registry, router, services and the HTTP surface behind an
// httptest server. Scenarios talk to it exactly like a real client would.
type BaseChatSuite struct {
	suite.Suite
	Config Config

	server *httptest.Server
	db     *badger.DB
}

func (s *BaseChatSuite) SetupSuite() {
	cfg, err := LoadConfig()
	s.Require().NoError(err)
	s.Config = cfg
}

func (s *BaseChatSuite) SetupTest() {
	log := slog.Default()

	db, err := badger.Open(badger.DefaultOptions(s.T().TempDir()).
		WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)
	s.db = db

	messageRepository := repositories.NewMessageRepository(db, log, nil)
	userRepository := repositories.NewUserRepository(db)
	groupRepository := repositories.NewGroupRepository(db)

	registry := runtime.NewRegistry()
	router := runtime.NewRouter(log, registry, groupRepository)

	chatService := services.NewChatService(log, messageRepository, router)
	authService := services.NewAuthService(userRepository, time.Hour)
	verifier := auth.NewTokenVerifier()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gateway.Handler(log, verifier, registry, chatService))
	mux.HandleFunc("POST /api/register", gateway.RegisterHandler(log, authService))
	mux.HandleFunc("POST /api/login", gateway.LoginHandler(log, authService))
	mux.HandleFunc("POST /api/groups", gateway.CreateGroupHandler(log, verifier, groupRepository))
	mux.HandleFunc("GET /api/history", gateway.HistoryHandler(log, verifier, chatService))

	s.server = httptest.NewServer(mux)
}

func (s *BaseChatSuite) TearDownTest() {
	s.server.Close()
	s.Require().NoError(s.db.Close())
}

// RegisterUser creates an account and returns the session token plus the
// user ID bound inside it.
func (s *BaseChatSuite) RegisterUser(email, password string) (token, userID string) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post(s.server.URL+"/api/register", "application/json", bytes.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var out struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))

	claims, err := auth.ValidateToken(out.Token)
	s.Require().NoError(err)
	return out.Token, claims.UserID
}

// Dial opens a websocket connection authenticated by the given token.
func (s *BaseChatSuite) Dial(token string) *websocket.Conn {
	wsURL := strings.Replace(s.server.URL, "http", "ws", 1) + "/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	s.Require().NoError(err)
	if resp != nil {
		defer resp.Body.Close()
	}
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

// Send pushes one send-message payload over the connection.
func (s *BaseChatSuite) Send(conn *websocket.Conn, payload map[string]string) {
	raw, err := json.Marshal(payload)
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, raw))
}

// WaitForEvent reads frames until one carries the expected event name,
// skipping unrelated events (typically presence churn between scenarios).
func (s *BaseChatSuite) WaitForEvent(conn *websocket.Conn, name string) wireFrame {
	deadline := time.Now().Add(s.Config.ReadTimeout)
	s.Require().NoError(conn.SetReadDeadline(deadline))

	for time.Now().Before(deadline) {
		_, raw, err := conn.ReadMessage()
		s.Require().NoError(err)

		var frame wireFrame
		s.Require().NoError(json.Unmarshal(raw, &frame))
		if s.Config.DebugJSON {
			s.T().Logf("frame: %s", raw)
		}
		if frame.Event == name {
			return frame
		}
	}
	s.FailNowf("event not received", "no %q event within %s", name, s.Config.ReadTimeout)
	return wireFrame{}
}

// CreateGroup creates a group on behalf of the token holder and returns its ID.
func (s *BaseChatSuite) CreateGroup(token, name string, members []string) string {
	body, _ := json.Marshal(map[string]any{"name": name, "members": members})
	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/api/groups", bytes.NewReader(body))
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var group struct {
		ID string `json:"id"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&group))
	return group.ID
}

// FetchHistory pulls one page of conversation history over HTTP.
func (s *BaseChatSuite) FetchHistory(token, target, kind string) []json.RawMessage {
	url := fmt.Sprintf("%s/api/history?target=%s&kind=%s", s.server.URL, target, kind)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var out struct {
		Messages []json.RawMessage `json:"messages"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	return out.Messages
}

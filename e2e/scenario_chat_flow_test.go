package e2e

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/javascriptisbest/pbl4-sub001/domain/event"
)

type testChatFlowSuite struct {
	BaseChatSuite
}

func TestChatFlowSuite(t *testing.T) {
	suite.Run(t, &testChatFlowSuite{})
}

func (s *testChatFlowSuite) TestFullChatFlow() {
	aliceToken, aliceID := s.RegisterUser("alice@example.com", "ComplexPass123!")
	bobToken, bobID := s.RegisterUser("bob@example.com", "ComplexPass123!")

	// --- STEP 1: PRESENCE ---
	alice := s.Dial(aliceToken)

	s.Run("Step 1: Alice sees herself online after connecting", func() {
		frame := s.WaitForEvent(alice, event.NamePresenceChanged)
		s.Require().Contains(s.online(frame), aliceID)
	})

	bob := s.Dial(bobToken)

	s.Run("Step 2: Alice is notified when Bob comes online", func() {
		frame := s.WaitForEvent(alice, event.NamePresenceChanged)
		online := s.online(frame)
		s.Require().Contains(online, aliceID)
		s.Require().Contains(online, bobID)
	})

	// --- STEP 3: DIRECT MESSAGE ---
	s.Run("Step 3: Bob receives Alice's direct message live", func() {
		s.Send(alice, map[string]string{"target": bobID, "content": "hey bob"})

		frame := s.WaitForEvent(bob, event.NameNewMessage)
		message := s.message(frame)
		s.Require().Equal(aliceID, message.Sender)
		s.Require().Equal("hey bob", message.Content)
	})

	// --- STEP 4: MULTI-DEVICE FANOUT ---
	bobPhone := s.Dial(bobToken)
	s.WaitForEvent(bobPhone, event.NamePresenceChanged)

	s.Run("Step 4: Every device of the recipient gets the message", func() {
		s.Send(alice, map[string]string{"target": bobID, "content": "both devices?"})

		for _, device := range []*websocket.Conn{bob, bobPhone} {
			frame := s.WaitForEvent(device, event.NameNewMessage)
			s.Require().Equal("both devices?", s.message(frame).Content)
		}
	})

	// --- STEP 5: GROUP MESSAGE ---
	groupID := s.CreateGroup(aliceToken, "standup", []string{bobID})

	s.Run("Step 5: Group members receive the message, sender is not echoed", func() {
		s.Send(bob, map[string]string{"target": groupID, "kind": "group", "content": "morning"})

		frame := s.WaitForEvent(alice, event.NameNewMessage)
		message := s.message(frame)
		s.Require().Equal(bobID, message.Sender)
		s.Require().Equal("morning", message.Content)

		// Bob's other device gets the echo, the originating one does not
		echo := s.WaitForEvent(bobPhone, event.NameNewMessage)
		s.Require().Equal("morning", s.message(echo).Content)
	})

	// --- STEP 6: HISTORY CATCH-UP ---
	s.Run("Step 6: History returns the persisted dialogue over HTTP", func() {
		messages := s.FetchHistory(bobToken, aliceID, "user")
		s.Require().Len(messages, 2)
	})
}

func (s *testChatFlowSuite) TestRejectedHandshakeNeverRegisters() {
	aliceToken, _ := s.RegisterUser("alice@example.com", "ComplexPass123!")
	alice := s.Dial(aliceToken)
	s.WaitForEvent(alice, event.NamePresenceChanged)

	// A connection with a garbage token is upgraded then closed immediately
	intruder := s.Dial("not.a.jwt")
	s.Require().NoError(intruder.SetReadDeadline(time.Now().Add(s.Config.ReadTimeout)))
	_, _, err := intruder.ReadMessage()
	s.Require().Error(err)
}

func (s *testChatFlowSuite) online(frame wireFrame) []string {
	var data struct {
		Online []string `json:"online"`
	}
	s.Require().NoError(json.Unmarshal(frame.Data, &data))
	return data.Online
}

type receivedMessage struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

func (s *testChatFlowSuite) message(frame wireFrame) receivedMessage {
	var data struct {
		Message receivedMessage `json:"message"`
	}
	s.Require().NoError(json.Unmarshal(frame.Data, &data))
	return data.Message
}

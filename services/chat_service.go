package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/javascriptisbest/pbl4-sub001/contract"
	"github.com/javascriptisbest/pbl4-sub001/domain"
	"github.com/javascriptisbest/pbl4-sub001/repositories"
)

type IChatService interface {
	SendMessage(ctx context.Context, sender string, target domain.Target,
		content string, exclude uuid.UUID) (domain.Message, int, error)
	History(sender string, target domain.Target, cursor *string) ([]domain.Message, *string, error)
}

// ChatService persists first, then routes. Persistence is the durability
// guarantee; live delivery is best-effort on top of it.
type ChatService struct {
	log      *slog.Logger
	messages repositories.IMessageRepository
	router   contract.IRouter
}

func NewChatService(log *slog.Logger, messages repositories.IMessageRepository,
	router contract.IRouter) *ChatService {
	return &ChatService{log: log, messages: messages, router: router}
}

// SendMessage creates the durable message, then emits it to every live
// target connection except the excluded one (typically the originating
// connection, which already has a local echo).
func (s *ChatService) SendMessage(ctx context.Context, sender string,
	target domain.Target, content string, exclude uuid.UUID) (domain.Message, int, error) {

	message, err := s.messages.CreateMessage(sender, target, content)
	if err != nil {
		return domain.Message{}, 0, err
	}

	delivered := s.router.Deliver(message, exclude)
	s.log.Debug("Message routed",
		"message", message.ID, "delivered", delivered)
	return message, delivered, nil
}

// History returns a page of the conversation shared by sender and target,
// newest first, with an opaque cursor for the next page.
func (s *ChatService) History(sender string, target domain.Target,
	cursor *string) ([]domain.Message, *string, error) {
	return s.messages.GetMessages(target.Conversation(sender), cursor)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"medcase/internal/domain"
	"medcase/internal/repository"
)

// GreetingMessage es el primer mensaje del paciente en todo chat nuevo.
const GreetingMessage = "Hello doctor. I'm feeling not quite right today..."

// ChatService maneja el ciclo de vida de los chats y sus mensajes.
type ChatService struct {
	logger    *zap.Logger
	chats     repository.ChatRepository
	messages  repository.MessageRepository
	cases     repository.CaseRepository
	scheduler *ReplyScheduler
	responder *PatientResponder
}

func NewChatService(
	logger *zap.Logger,
	store repository.Store,
	scheduler *ReplyScheduler,
	responder *PatientResponder,
) *ChatService {
	if responder == nil {
		responder = NewPatientResponder(logger, nil)
	}
	return &ChatService{
		logger:    logger,
		chats:     store.Chats,
		messages:  store.Messages,
		cases:     store.Cases,
		scheduler: scheduler,
		responder: responder,
	}
}

// CreateChat abre una sesion activa sobre el caso y agrega el saludo del paciente.
func (s *ChatService) CreateChat(ctx context.Context, userID, caseID int64) (domain.Chat, error) {
	if _, err := s.cases.GetByID(ctx, caseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Chat{}, ErrCaseNotFound
		}
		return domain.Chat{}, fmt.Errorf("get case: %w", err)
	}

	chat, err := s.chats.Create(ctx, domain.Chat{
		UserID:    userID,
		CaseID:    caseID,
		Status:    domain.ChatStatusActive,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.Chat{}, fmt.Errorf("create chat: %w", err)
	}

	if _, err := s.messages.Create(ctx, domain.Message{
		ChatID:    chat.ID,
		Sender:    domain.SenderAI,
		Content:   GreetingMessage,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return domain.Chat{}, fmt.Errorf("create greeting: %w", err)
	}

	s.logger.Info("chat created", zap.Int64("chat_id", chat.ID), zap.Int64("case_id", caseID), zap.Int64("user_id", userID))
	return chat, nil
}

func (s *ChatService) GetChat(ctx context.Context, id int64) (domain.Chat, error) {
	chat, err := s.chats.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// GetChatWithMessages devuelve el chat junto con su transcripcion ordenada.
func (s *ChatService) GetChatWithMessages(ctx context.Context, id int64) (domain.ChatWithMessages, error) {
	chat, err := s.GetChat(ctx, id)
	if err != nil {
		return domain.ChatWithMessages{}, err
	}
	msgs, err := s.messages.ListByChatID(ctx, id)
	if err != nil {
		return domain.ChatWithMessages{}, fmt.Errorf("list messages: %w", err)
	}
	return domain.ChatWithMessages{Chat: chat, Messages: msgs}, nil
}

// GetMessages lista los mensajes por fecha ascendente, FIFO en empates.
func (s *ChatService) GetMessages(ctx context.Context, chatID int64) ([]domain.Message, error) {
	if _, err := s.GetChat(ctx, chatID); err != nil {
		return nil, err
	}
	return s.messages.ListByChatID(ctx, chatID)
}

// AddMessage agrega un turno. Un mensaje del usuario programa la respuesta diferida del
// paciente; varios mensajes seguidos reciben cada uno su propia respuesta.
func (s *ChatService) AddMessage(ctx context.Context, chatID int64, sender, content string) (domain.Message, error) {
	sender = strings.TrimSpace(sender)
	if sender != domain.SenderUser && sender != domain.SenderAI {
		return domain.Message{}, invalidField("sender", "sender must be user or ai")
	}
	if strings.TrimSpace(content) == "" {
		return domain.Message{}, invalidField("content", "content is required")
	}

	chat, err := s.GetChat(ctx, chatID)
	if err != nil {
		return domain.Message{}, err
	}

	msg, err := s.messages.Create(ctx, domain.Message{
		ChatID:    chatID,
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("create message: %w", err)
	}

	if sender == domain.SenderUser && s.scheduler != nil {
		s.scheduler.Schedule(chatID, func(ctx context.Context) error {
			return s.reply(ctx, chat, msg)
		})
	}
	return msg, nil
}

func (s *ChatService) reply(ctx context.Context, chat domain.Chat, userMsg domain.Message) error {
	c, err := s.cases.GetByID(ctx, chat.CaseID)
	if err != nil {
		return fmt.Errorf("get case: %w", err)
	}
	all, err := s.messages.ListByChatID(ctx, chat.ID)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}

	history, found := historyBefore(all, userMsg.ID)
	if !found {
		// El mensaje se borro (retry) antes de que venciera el retardo.
		s.logger.Debug("user message gone, skipping reply", zap.Int64("chat_id", chat.ID), zap.Int64("message_id", userMsg.ID))
		return nil
	}

	content := s.responder.Respond(ctx, c, history, userMsg.Content)
	if ctx.Err() != nil {
		return nil
	}
	if _, err := s.messages.Create(ctx, domain.Message{
		ChatID:    chat.ID,
		Sender:    domain.SenderAI,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("create reply: %w", err)
	}
	return nil
}

func historyBefore(messages []domain.Message, id int64) ([]domain.Message, bool) {
	for i, m := range messages {
		if m.ID == id {
			return messages[:i], true
		}
	}
	return nil, false
}

// DeleteLastUserMessage borra solo el mensaje de usuario mas reciente. Sin mensajes de
// usuario no hace nada.
func (s *ChatService) DeleteLastUserMessage(ctx context.Context, chatID int64) (bool, error) {
	deleted, err := s.messages.DeleteLastBySender(ctx, chatID, domain.SenderUser)
	if err != nil {
		return false, fmt.Errorf("delete last user message: %w", err)
	}
	if deleted {
		s.logger.Info("last user message deleted", zap.Int64("chat_id", chatID))
	}
	return deleted, nil
}

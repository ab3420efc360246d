package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"medcase/internal/domain"
	"medcase/internal/llm"
	"medcase/internal/repository"
)

func newTestChatService(t *testing.T, delay time.Duration, client llm.LLMClient) (*ChatService, *ReplyScheduler, repository.Store, domain.Case) {
	t.Helper()
	store := repository.NewMemoryStore()
	c := seedCases(t, store.Cases, chestPainCase)[0]
	scheduler := NewReplyScheduler(zap.NewNop(), delay)
	t.Cleanup(func() { _ = scheduler.Shutdown(context.Background()) })
	svc := NewChatService(zap.NewNop(), store, scheduler, NewPatientResponder(zap.NewNop(), client))
	return svc, scheduler, store, c
}

func TestCreateChatStartsWithGreeting(t *testing.T) {
	svc, _, _, c := newTestChatService(t, time.Millisecond, nil)
	ctx := context.Background()

	chat, err := svc.CreateChat(ctx, 1, c.ID)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if chat.Status != domain.ChatStatusActive {
		t.Fatalf("expected active chat, got %q", chat.Status)
	}

	msgs, err := svc.GetMessages(ctx, chat.ID)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Sender != domain.SenderAI || msgs[0].Content != GreetingMessage {
		t.Fatalf("expected single ai greeting, got %+v", msgs)
	}
}

func TestCreateChatMissingCase(t *testing.T) {
	svc, _, _, _ := newTestChatService(t, time.Millisecond, nil)
	if _, err := svc.CreateChat(context.Background(), 1, 999); !errors.Is(err, ErrCaseNotFound) {
		t.Fatalf("expected ErrCaseNotFound, got %v", err)
	}
}

func TestAddMessageSchedulesDelayedReply(t *testing.T) {
	svc, scheduler, _, c := newTestChatService(t, 50*time.Millisecond, &llm.MockClient{Response: "It hurts a lot."})
	ctx := context.Background()
	chat, _ := svc.CreateChat(ctx, 1, c.ID)

	msg, err := svc.AddMessage(ctx, chat.ID, domain.SenderUser, "hello")
	if err != nil {
		t.Fatalf("add message: %v", err)
	}

	msgs, _ := svc.GetMessages(ctx, chat.ID)
	if last := msgs[len(msgs)-1]; last.ID != msg.ID {
		t.Fatalf("expected user message last, got %+v", last)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected reply to be delayed, got %d messages", len(msgs))
	}

	scheduler.Wait()
	msgs, _ = svc.GetMessages(ctx, chat.ID)
	if len(msgs) != 3 {
		t.Fatalf("expected ai reply after delay, got %d messages", len(msgs))
	}
	if msgs[2].Sender != domain.SenderAI || msgs[2].Content != "It hurts a lot." {
		t.Fatalf("unexpected reply %+v", msgs[2])
	}
}

func TestAddMessageEachTurnGetsReply(t *testing.T) {
	svc, scheduler, _, c := newTestChatService(t, 10*time.Millisecond, nil)
	ctx := context.Background()
	chat, _ := svc.CreateChat(ctx, 1, c.ID)

	_, _ = svc.AddMessage(ctx, chat.ID, domain.SenderUser, "any fever?")
	_, _ = svc.AddMessage(ctx, chat.ID, domain.SenderUser, "how long?")
	scheduler.Wait()

	msgs, _ := svc.GetMessages(ctx, chat.ID)
	ai := 0
	for _, m := range msgs {
		if m.Sender == domain.SenderAI {
			ai++
		}
	}
	if ai != 3 {
		t.Fatalf("expected greeting plus two replies, got %d ai messages", ai)
	}
}

func TestAddMessageFromAIDoesNotSchedule(t *testing.T) {
	svc, scheduler, _, c := newTestChatService(t, time.Millisecond, nil)
	ctx := context.Background()
	chat, _ := svc.CreateChat(ctx, 1, c.ID)

	if _, err := svc.AddMessage(ctx, chat.ID, domain.SenderAI, "note"); err != nil {
		t.Fatalf("add message: %v", err)
	}
	if scheduler.Pending(chat.ID) != 0 {
		t.Fatalf("ai messages must not schedule replies")
	}
}

func TestAddMessageValidation(t *testing.T) {
	svc, _, _, c := newTestChatService(t, time.Millisecond, nil)
	ctx := context.Background()
	chat, _ := svc.CreateChat(ctx, 1, c.ID)

	tests := []struct {
		name    string
		chatID  int64
		sender  string
		content string
		wantErr error
	}{
		{name: "bad sender", chatID: chat.ID, sender: "doctor", content: "hi", wantErr: ErrInvalidInput},
		{name: "empty content", chatID: chat.ID, sender: domain.SenderUser, content: "  ", wantErr: ErrInvalidInput},
		{name: "missing chat", chatID: 999, sender: domain.SenderUser, content: "hi", wantErr: ErrChatNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AddMessage(ctx, tt.chatID, tt.sender, tt.content); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDeleteLastUserMessage(t *testing.T) {
	svc, _, store, c := newTestChatService(t, time.Hour, nil)
	ctx := context.Background()
	chat, _ := svc.CreateChat(ctx, 1, c.ID)

	deleted, err := svc.DeleteLastUserMessage(ctx, chat.ID)
	if err != nil || deleted {
		t.Fatalf("expected no-op without user messages, got %v err=%v", deleted, err)
	}

	_, _ = store.Messages.Create(ctx, domain.Message{ChatID: chat.ID, Sender: domain.SenderUser, Content: "first"})
	_, _ = store.Messages.Create(ctx, domain.Message{ChatID: chat.ID, Sender: domain.SenderAI, Content: "reply"})
	_, _ = store.Messages.Create(ctx, domain.Message{ChatID: chat.ID, Sender: domain.SenderUser, Content: "second"})

	deleted, err = svc.DeleteLastUserMessage(ctx, chat.ID)
	if err != nil || !deleted {
		t.Fatalf("expected deletion, got %v err=%v", deleted, err)
	}
	msgs, _ := svc.GetMessages(ctx, chat.ID)
	got := make([]string, 0, len(msgs))
	for _, m := range msgs {
		got = append(got, m.Content)
	}
	want := []string{GreetingMessage, "first", "reply"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestReplySkippedWhenUserMessageDeleted(t *testing.T) {
	svc, scheduler, _, c := newTestChatService(t, 30*time.Millisecond, nil)
	ctx := context.Background()
	chat, _ := svc.CreateChat(ctx, 1, c.ID)

	_, _ = svc.AddMessage(ctx, chat.ID, domain.SenderUser, "I think it is gastritis")
	if _, err := svc.DeleteLastUserMessage(ctx, chat.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	scheduler.Wait()

	msgs, _ := svc.GetMessages(ctx, chat.ID)
	if len(msgs) != 1 {
		t.Fatalf("expected only the greeting, got %d messages", len(msgs))
	}
}

func TestGetChatWithMessagesNotFound(t *testing.T) {
	svc, _, _, _ := newTestChatService(t, time.Millisecond, nil)
	if _, err := svc.GetChatWithMessages(context.Background(), 5); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("expected ErrChatNotFound, got %v", err)
	}
}

// stampCheckingChats y stampCheckingMessages fallan si el servicio delega el timestamp
// de creacion al backend.
type stampCheckingChats struct {
	repository.ChatRepository
	t *testing.T
}

func (r stampCheckingChats) Create(ctx context.Context, chat domain.Chat) (domain.Chat, error) {
	if chat.CreatedAt.IsZero() {
		r.t.Errorf("chat created without CreatedAt")
	}
	return r.ChatRepository.Create(ctx, chat)
}

type stampCheckingMessages struct {
	repository.MessageRepository
	t *testing.T
}

func (r stampCheckingMessages) Create(ctx context.Context, msg domain.Message) (domain.Message, error) {
	if msg.CreatedAt.IsZero() {
		r.t.Errorf("message %q created without CreatedAt", msg.Content)
	}
	return r.MessageRepository.Create(ctx, msg)
}

type stampCheckingCompletions struct {
	repository.CompletionRepository
	t *testing.T
}

func (r stampCheckingCompletions) Create(ctx context.Context, c domain.Completion) (domain.Completion, error) {
	if c.CompletedAt.IsZero() {
		r.t.Errorf("completion created without CompletedAt")
	}
	return r.CompletionRepository.Create(ctx, c)
}

func TestServicesStampCreationTimes(t *testing.T) {
	store := repository.NewMemoryStore()
	c := seedCases(t, store.Cases, chestPainCase)[0]
	store.Chats = stampCheckingChats{ChatRepository: store.Chats, t: t}
	store.Messages = stampCheckingMessages{MessageRepository: store.Messages, t: t}
	store.Completions = stampCheckingCompletions{CompletionRepository: store.Completions, t: t}

	scheduler := NewReplyScheduler(zap.NewNop(), time.Millisecond)
	t.Cleanup(func() { _ = scheduler.Shutdown(context.Background()) })
	chats := NewChatService(zap.NewNop(), store, scheduler, nil)
	completions := NewCompletionService(zap.NewNop(), store, chats, nil)
	ctx := context.Background()

	chat, err := chats.CreateChat(ctx, 1, c.ID)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	if _, err := chats.AddMessage(ctx, chat.ID, domain.SenderUser, "Does it hurt?"); err != nil {
		t.Fatalf("add message: %v", err)
	}
	scheduler.Wait()
	if _, err := completions.Complete(ctx, 1, c.ID, chat.ID, "Myocardial infarction"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	msgs, _ := chats.GetMessages(ctx, chat.ID)
	if len(msgs) != 3 {
		t.Fatalf("expected greeting, question and reply, got %d messages", len(msgs))
	}
}

func TestAddMessageValidationField(t *testing.T) {
	svc, _, _, c := newTestChatService(t, time.Millisecond, nil)
	ctx := context.Background()
	chat, _ := svc.CreateChat(ctx, 1, c.ID)

	tests := []struct {
		name    string
		sender  string
		content string
		field   string
	}{
		{name: "bad sender", sender: "doctor", content: "hi", field: "sender"},
		{name: "blank content", sender: domain.SenderUser, content: " \t ", field: "content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddMessage(ctx, chat.ID, tt.sender, tt.content)
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("expected FieldError, got %v", err)
			}
			if fe.Field != tt.field {
				t.Fatalf("expected field %q, got %q", tt.field, fe.Field)
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected FieldError to match ErrInvalidInput")
			}
		})
	}
}

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"medcase/internal/domain"
)

func newGormTestStore(t *testing.T) Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// Una sola conexion: cada conexion nueva a :memory: es una base distinta.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := AutoMigrateGorm(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewGormStore(db)
}

// forEachStore ejecuta el mismo contrato contra los backends que no requieren servicios externos.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("gorm", func(t *testing.T) { fn(t, newGormTestStore(t)) })
}

func TestCaseRepository(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		if _, err := s.Cases.GetByID(ctx, 42); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		first, err := s.Cases.Create(ctx, domain.Case{Title: "Chest pain", Difficulty: domain.DifficultyBeginner, Status: domain.CaseStatusAvailable})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		second, err := s.Cases.Create(ctx, domain.Case{Title: "Stroke", Difficulty: domain.DifficultyAdvanced, Status: domain.CaseStatusAvailable})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if second.ID <= first.ID {
			t.Fatalf("expected increasing ids, got %d then %d", first.ID, second.ID)
		}

		got, err := s.Cases.GetByID(ctx, first.ID)
		if err != nil || got.Title != "Chest pain" {
			t.Fatalf("unexpected case %+v err=%v", got, err)
		}

		all, _ := s.Cases.List(ctx)
		if len(all) != 2 || all[0].ID != first.ID {
			t.Fatalf("unexpected list %+v", all)
		}

		beginner, _ := s.Cases.ListByDifficulty(ctx, domain.DifficultyBeginner)
		if len(beginner) != 1 || beginner[0].ID != first.ID {
			t.Fatalf("unexpected difficulty filter %+v", beginner)
		}
		lower, _ := s.Cases.ListByDifficulty(ctx, "beginner")
		if len(lower) != 0 {
			t.Fatalf("difficulty match must be case-sensitive, got %+v", lower)
		}

		n, _ := s.Cases.Count(ctx)
		if n != 2 {
			t.Fatalf("expected count 2, got %d", n)
		}
	})
}

func TestMessageRepositoryOrderingAndDelete(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

		add := func(sender, content string, at time.Time) {
			if _, err := s.Messages.Create(ctx, domain.Message{ChatID: 1, Sender: sender, Content: content, CreatedAt: at}); err != nil {
				t.Fatalf("create message: %v", err)
			}
		}
		add(domain.SenderAI, "greeting", ts)
		add(domain.SenderUser, "first", ts)
		add(domain.SenderAI, "reply", ts.Add(time.Second))
		add(domain.SenderUser, "second", ts.Add(2*time.Second))
		add(domain.SenderAI, "late insert", ts)
		if _, err := s.Messages.Create(ctx, domain.Message{ChatID: 2, Sender: domain.SenderUser, Content: "x", CreatedAt: ts}); err != nil {
			t.Fatalf("create message: %v", err)
		}

		msgs, _ := s.Messages.ListByChatID(ctx, 1)
		want := []string{"greeting", "first", "late insert", "reply", "second"}
		if len(msgs) != len(want) {
			t.Fatalf("expected %d messages, got %d", len(want), len(msgs))
		}
		for i, m := range msgs {
			if m.Content != want[i] {
				t.Fatalf("position %d: expected %q, got %q", i, want[i], m.Content)
			}
		}

		deleted, err := s.Messages.DeleteLastBySender(ctx, 1, domain.SenderUser)
		if err != nil || !deleted {
			t.Fatalf("expected deletion, got %v err=%v", deleted, err)
		}
		msgs, _ = s.Messages.ListByChatID(ctx, 1)
		for _, m := range msgs {
			if m.Content == "second" {
				t.Fatalf("newest user message should be gone")
			}
		}
		if len(msgs) != 4 {
			t.Fatalf("expected 4 messages left, got %d", len(msgs))
		}

		other, _ := s.Messages.ListByChatID(ctx, 2)
		if len(other) != 1 {
			t.Fatalf("other chat must be untouched, got %d", len(other))
		}

		deleted, _ = s.Messages.DeleteLastBySender(ctx, 3, domain.SenderUser)
		if deleted {
			t.Fatalf("expected no-op on chat without user messages")
		}
	})
}

func TestCompletionRepository(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

		if _, err := s.Completions.GetLastByChatID(ctx, 1); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		a, _ := s.Completions.Create(ctx, domain.Completion{UserID: 1, CaseID: 1, ChatID: 1, Result: domain.ResultWrong, Diagnosis: "gastritis", CompletedAt: ts})
		b, _ := s.Completions.Create(ctx, domain.Completion{UserID: 1, CaseID: 1, ChatID: 1, Result: domain.ResultCorrect, Diagnosis: "MI", CompletedAt: ts})
		_, _ = s.Completions.Create(ctx, domain.Completion{UserID: 2, CaseID: 1, ChatID: 9, Result: domain.ResultCorrect, Diagnosis: "MI", CompletedAt: ts})

		last, err := s.Completions.GetLastByChatID(ctx, 1)
		if err != nil || last.ID != b.ID {
			t.Fatalf("expected last completion %d, got %+v err=%v", b.ID, last, err)
		}

		list, _ := s.Completions.ListByUserID(ctx, 1)
		if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
			t.Fatalf("unexpected user completions %+v", list)
		}

		if err := s.Completions.Delete(ctx, b.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := s.Completions.Delete(ctx, b.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
		last, _ = s.Completions.GetLastByChatID(ctx, 1)
		if last.ID != a.ID {
			t.Fatalf("expected previous completion to surface, got %+v", last)
		}
	})
}

func TestUserAndChatRepository(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		u, err := s.Users.Create(ctx, domain.User{Username: domain.DefaultUsername, Name: domain.DefaultName})
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		byName, err := s.Users.GetByUsername(ctx, domain.DefaultUsername)
		if err != nil || byName.ID != u.ID {
			t.Fatalf("unexpected user %+v err=%v", byName, err)
		}
		if _, err := s.Users.GetByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		chat, err := s.Chats.Create(ctx, domain.Chat{UserID: u.ID, CaseID: 3, Status: domain.ChatStatusActive})
		if err != nil {
			t.Fatalf("create chat: %v", err)
		}
		if chat.CreatedAt.IsZero() {
			t.Fatalf("expected created_at to be set")
		}
		got, err := s.Chats.GetByID(ctx, chat.ID)
		if err != nil || got.CaseID != 3 || got.Status != domain.ChatStatusActive {
			t.Fatalf("unexpected chat %+v err=%v", got, err)
		}
		if _, err := s.Chats.GetByID(ctx, 999); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestNowIfZero(t *testing.T) {
	if got := nowIfZero(time.Time{}); got.IsZero() || got.Location() != time.UTC {
		t.Fatalf("expected current utc time, got %v", got)
	}
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if got := nowIfZero(fixed); !got.Equal(fixed) {
		t.Fatalf("expected %v kept, got %v", fixed, got)
	}
}

func TestCreateStampsMissingTimestamps(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		chat, err := s.Chats.Create(ctx, domain.Chat{UserID: 1, CaseID: 1, Status: domain.ChatStatusActive})
		if err != nil {
			t.Fatalf("create chat: %v", err)
		}
		stored, err := s.Chats.GetByID(ctx, chat.ID)
		if err != nil || stored.CreatedAt.IsZero() {
			t.Fatalf("expected stored chat created_at, got %v err=%v", stored.CreatedAt, err)
		}

		if _, err := s.Messages.Create(ctx, domain.Message{ChatID: chat.ID, Sender: domain.SenderUser, Content: "hi"}); err != nil {
			t.Fatalf("create message: %v", err)
		}
		msgs, _ := s.Messages.ListByChatID(ctx, chat.ID)
		if len(msgs) != 1 || msgs[0].CreatedAt.IsZero() {
			t.Fatalf("expected stored message created_at, got %+v", msgs)
		}

		if _, err := s.Completions.Create(ctx, domain.Completion{UserID: 1, CaseID: 1, ChatID: chat.ID, Result: domain.ResultCorrect}); err != nil {
			t.Fatalf("create completion: %v", err)
		}
		last, err := s.Completions.GetLastByChatID(ctx, chat.ID)
		if err != nil || last.CompletedAt.IsZero() {
			t.Fatalf("expected stored completed_at, got %v err=%v", last.CompletedAt, err)
		}
	})
}

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

// CompletionService registra diagnosticos y permite reintentarlos.
type CompletionService struct {
	logger      *zap.Logger
	cases       repository.CaseRepository
	chats       repository.ChatRepository
	completions repository.CompletionRepository
	chatServ    *ChatService
	stats       *StatsService
}

func NewCompletionService(logger *zap.Logger, store repository.Store, chatServ *ChatService, stats *StatsService) *CompletionService {
	return &CompletionService{
		logger:      logger,
		cases:       store.Cases,
		chats:       store.Chats,
		completions: store.Completions,
		chatServ:    chatServ,
		stats:       stats,
	}
}

// Complete evalua el diagnostico contra el caso y guarda el resultado. No cambia el
// estado del chat y no impide varias completions por chat.
func (s *CompletionService) Complete(ctx context.Context, userID, caseID, chatID int64, diagnosis string) (domain.CompletionResult, error) {
	c, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.CompletionResult{}, ErrCaseNotFound
		}
		return domain.CompletionResult{}, fmt.Errorf("get case: %w", err)
	}
	if _, err := s.chats.GetByID(ctx, chatID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.CompletionResult{}, ErrChatNotFound
		}
		return domain.CompletionResult{}, fmt.Errorf("get chat: %w", err)
	}

	diagnosis = strings.TrimSpace(diagnosis)
	result := EvaluateDiagnosis(diagnosis, c)
	completion, err := s.completions.Create(ctx, domain.Completion{
		UserID:      userID,
		CaseID:      caseID,
		ChatID:      chatID,
		Result:      result,
		Diagnosis:   diagnosis,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.CompletionResult{}, fmt.Errorf("create completion: %w", err)
	}
	if s.stats != nil {
		s.stats.Invalidate(ctx, userID)
	}

	s.logger.Info("diagnosis evaluated",
		zap.Int64("chat_id", chatID),
		zap.Int64("case_id", caseID),
		zap.String("result", string(result)),
	)
	return domain.CompletionResult{Completion: completion, Result: result}, nil
}

// GetLastCompletionForChat devuelve la completion mas reciente; ErrNotCompleted si no hay.
func (s *CompletionService) GetLastCompletionForChat(ctx context.Context, chatID int64) (domain.Completion, error) {
	c, err := s.completions.GetLastByChatID(ctx, chatID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Completion{}, ErrNotCompleted
	}
	return c, err
}

// Retry borra la ultima completion del chat y luego el ultimo mensaje del usuario. Son
// dos borrados independientes: si falta la completion igual se borra el mensaje.
func (s *CompletionService) Retry(ctx context.Context, chatID int64) error {
	last, err := s.completions.GetLastByChatID(ctx, chatID)
	switch {
	case err == nil:
		if err := s.completions.Delete(ctx, last.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("delete completion: %w", err)
		}
		if s.stats != nil {
			s.stats.Invalidate(ctx, last.UserID)
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return fmt.Errorf("get last completion: %w", err)
	}

	if s.chatServ != nil {
		if _, err := s.chatServ.DeleteLastUserMessage(ctx, chatID); err != nil {
			return err
		}
	}
	s.logger.Info("completion retried", zap.Int64("chat_id", chatID))
	return nil
}

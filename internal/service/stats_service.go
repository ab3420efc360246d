package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"medcase/internal/domain"
	"medcase/internal/repository"
)

// StatsService deriva el progreso del usuario a partir de sus completions.
type StatsService struct {
	logger      *zap.Logger
	completions repository.CompletionRepository
	cache       StatsCache
}

func NewStatsService(logger *zap.Logger, completions repository.CompletionRepository, cache StatsCache) *StatsService {
	if cache == nil {
		cache = NewNoopStatsCache()
	}
	return &StatsService{logger: logger, completions: completions, cache: cache}
}

func (s *StatsService) GetUserStats(ctx context.Context, userID int64) (domain.UserStats, error) {
	// La generacion se lee antes de calcular: si un Complete invalida en el medio, el Set
	// de abajo cae en la generacion vieja.
	gen, err := s.cache.Generation(ctx, userID)
	useCache := err == nil
	if err != nil {
		s.logger.Warn("stats cache generation failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	if useCache {
		if cached, ok, err := s.cache.Get(ctx, userID, gen); err != nil {
			s.logger.Warn("stats cache get failed", zap.Int64("user_id", userID), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	list, err := s.completions.ListByUserID(ctx, userID)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("list completions: %w", err)
	}
	stats := ComputeUserStats(list)

	if useCache {
		if err := s.cache.Set(ctx, userID, gen, stats); err != nil {
			s.logger.Warn("stats cache set failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return stats, nil
}

// GetCompletedCaseIDs devuelve los casos distintos con al menos un resultado correcto,
// en orden ascendente.
func (s *StatsService) GetCompletedCaseIDs(ctx context.Context, userID int64) ([]int64, error) {
	list, err := s.completions.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	solved := solvedCaseSet(list)
	ids := make([]int64, 0, len(solved))
	for id := range solved {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Invalidate descarta el cache del usuario; se llama tras cada cambio de completions.
func (s *StatsService) Invalidate(ctx context.Context, userID int64) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("stats cache invalidate failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// ComputeUserStats espera las completions de la mas antigua a la mas reciente.
func ComputeUserStats(completions []domain.Completion) domain.UserStats {
	if len(completions) == 0 {
		return domain.UserStats{}
	}

	correct := 0
	for _, c := range completions {
		if c.Result == domain.ResultCorrect {
			correct++
		}
	}

	streak := 0
	for i := len(completions) - 1; i >= 0; i-- {
		if completions[i].Result != domain.ResultCorrect {
			break
		}
		streak++
	}

	return domain.UserStats{
		Streak:      streak,
		CasesSolved: len(solvedCaseSet(completions)),
		Accuracy:    int(math.Round(float64(correct) * 100 / float64(len(completions)))),
	}
}

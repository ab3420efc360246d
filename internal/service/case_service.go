package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"medcase/internal/domain"
	"medcase/internal/repository"
)

const maxSimilarCases = 4

// CaseService expone el catalogo de casos.
type CaseService struct {
	logger      *zap.Logger
	cases       repository.CaseRepository
	completions repository.CompletionRepository
	pick        func(n int) int
}

func NewCaseService(logger *zap.Logger, cases repository.CaseRepository, completions repository.CompletionRepository) *CaseService {
	return &CaseService{
		logger:      logger,
		cases:       cases,
		completions: completions,
		pick:        rand.IntN,
	}
}

func (s *CaseService) List(ctx context.Context) ([]domain.Case, error) {
	return s.cases.List(ctx)
}

func (s *CaseService) Get(ctx context.Context, id int64) (domain.Case, error) {
	c, err := s.cases.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Case{}, ErrCaseNotFound
	}
	return c, err
}

func (s *CaseService) ListByDifficulty(ctx context.Context, difficulty string) ([]domain.Case, error) {
	return s.cases.ListByDifficulty(ctx, difficulty)
}

// Create inserta un caso nuevo; el id lo asigna el store.
func (s *CaseService) Create(ctx context.Context, c domain.Case) (domain.Case, error) {
	if strings.TrimSpace(c.Title) == "" {
		return domain.Case{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	c.ID = 0
	if c.Status == "" {
		c.Status = domain.CaseStatusAvailable
	}
	created, err := s.cases.Create(ctx, c)
	if err != nil {
		return domain.Case{}, fmt.Errorf("create case: %w", err)
	}
	s.logger.Info("case created", zap.Int64("case_id", created.ID), zap.String("difficulty", created.Difficulty))
	return created, nil
}

// Similar devuelve hasta cuatro casos de la misma especialidad, completando con casos de
// la misma dificultad. Nunca incluye el caso pedido.
func (s *CaseService) Similar(ctx context.Context, id int64) ([]domain.Case, error) {
	target, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	all, err := s.cases.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Case, 0, maxSimilarCases)
	taken := map[int64]bool{target.ID: true}
	collect := func(match func(domain.Case) bool) {
		for _, c := range all {
			if len(out) >= maxSimilarCases {
				return
			}
			if !taken[c.ID] && match(c) {
				taken[c.ID] = true
				out = append(out, c)
			}
		}
	}
	collect(func(c domain.Case) bool { return c.Specialty == target.Specialty })
	collect(func(c domain.Case) bool { return c.Difficulty == target.Difficulty })
	return out, nil
}

// Next elige al azar un caso que el usuario no haya resuelto, distinto de currentID.
// Si ya resolvio todos, elige cualquier otro caso.
func (s *CaseService) Next(ctx context.Context, userID, currentID int64) (domain.Case, error) {
	all, err := s.cases.List(ctx)
	if err != nil {
		return domain.Case{}, err
	}
	completions, err := s.completions.ListByUserID(ctx, userID)
	if err != nil {
		return domain.Case{}, fmt.Errorf("list completions: %w", err)
	}
	solved := solvedCaseSet(completions)

	var unsolved, others []domain.Case
	for _, c := range all {
		if c.ID == currentID {
			continue
		}
		others = append(others, c)
		if !solved[c.ID] {
			unsolved = append(unsolved, c)
		}
	}

	pool := unsolved
	if len(pool) == 0 {
		pool = others
	}
	if len(pool) == 0 {
		return domain.Case{}, ErrCaseNotFound
	}
	return pool[s.pick(len(pool))], nil
}

func solvedCaseSet(completions []domain.Completion) map[int64]bool {
	solved := make(map[int64]bool)
	for _, c := range completions {
		if c.Result == domain.ResultCorrect {
			solved[c.CaseID] = true
		}
	}
	return solved
}

package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"medcase/internal/domain"
	"medcase/internal/repository"
)

func completionsOf(results ...domain.DiagnosisResult) []domain.Completion {
	out := make([]domain.Completion, 0, len(results))
	for i, r := range results {
		out = append(out, domain.Completion{ID: int64(i + 1), CaseID: int64(i + 1), Result: r})
	}
	return out
}

func TestComputeUserStats(t *testing.T) {
	tests := []struct {
		name        string
		completions []domain.Completion
		want        domain.UserStats
	}{
		{name: "empty", want: domain.UserStats{}},
		{
			// mas antigua a mas reciente; de la mas reciente hacia atras: correct, wrong, ...
			name:        "streak stops at first non-correct",
			completions: completionsOf(domain.ResultCorrect, domain.ResultCorrect, domain.ResultWrong, domain.ResultCorrect),
			want:        domain.UserStats{Streak: 1, CasesSolved: 3, Accuracy: 75},
		},
		{
			name:        "all correct",
			completions: completionsOf(domain.ResultCorrect, domain.ResultCorrect),
			want:        domain.UserStats{Streak: 2, CasesSolved: 2, Accuracy: 100},
		},
		{
			name:        "partial breaks streak",
			completions: completionsOf(domain.ResultCorrect, domain.ResultPartial),
			want:        domain.UserStats{Streak: 0, CasesSolved: 1, Accuracy: 50},
		},
		{
			name:        "accuracy rounds",
			completions: completionsOf(domain.ResultCorrect, domain.ResultWrong, domain.ResultWrong),
			want:        domain.UserStats{Streak: 0, CasesSolved: 1, Accuracy: 33},
		},
		{
			name: "solved counts distinct cases",
			completions: []domain.Completion{
				{CaseID: 4, Result: domain.ResultCorrect},
				{CaseID: 4, Result: domain.ResultCorrect},
				{CaseID: 5, Result: domain.ResultCorrect},
			},
			want: domain.UserStats{Streak: 3, CasesSolved: 2, Accuracy: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeUserStats(tt.completions); got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestComputeUserStatsTwoThirds(t *testing.T) {
	got := ComputeUserStats(completionsOf(domain.ResultCorrect, domain.ResultCorrect, domain.ResultWrong))
	if got.Accuracy != 67 {
		t.Fatalf("expected 67, got %d", got.Accuracy)
	}
}

func TestGetCompletedCaseIDsDistinctAndSorted(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range []domain.Completion{
		{UserID: 1, CaseID: 9, Result: domain.ResultCorrect},
		{UserID: 1, CaseID: 2, Result: domain.ResultCorrect},
		{UserID: 1, CaseID: 9, Result: domain.ResultCorrect},
		{UserID: 1, CaseID: 5, Result: domain.ResultWrong},
		{UserID: 2, CaseID: 7, Result: domain.ResultCorrect},
	} {
		c.CompletedAt = base.Add(time.Duration(i) * time.Minute)
		_, _ = store.Completions.Create(ctx, c)
	}

	svc := NewStatsService(zap.NewNop(), store.Completions, nil)
	ids, err := svc.GetCompletedCaseIDs(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(ids, []int64{2, 9}) {
		t.Fatalf("expected [2 9], got %v", ids)
	}

	none, _ := svc.GetCompletedCaseIDs(ctx, 42)
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", none)
	}
}

type statsKey struct{ userID, gen int64 }

type fakeStatsCache struct {
	stored      map[statsKey]domain.UserStats
	gens        map[int64]int64
	getErr      error
	genErr      error
	invalidated []int64
}

func newFakeStatsCache() *fakeStatsCache {
	return &fakeStatsCache{stored: make(map[statsKey]domain.UserStats), gens: make(map[int64]int64)}
}

func (f *fakeStatsCache) Generation(_ context.Context, userID int64) (int64, error) {
	if f.genErr != nil {
		return 0, f.genErr
	}
	return f.gens[userID], nil
}

func (f *fakeStatsCache) Get(_ context.Context, userID, gen int64) (domain.UserStats, bool, error) {
	if f.getErr != nil {
		return domain.UserStats{}, false, f.getErr
	}
	s, ok := f.stored[statsKey{userID, gen}]
	return s, ok, nil
}

func (f *fakeStatsCache) Set(_ context.Context, userID, gen int64, stats domain.UserStats) error {
	f.stored[statsKey{userID, gen}] = stats
	return nil
}

func (f *fakeStatsCache) Invalidate(_ context.Context, userID int64) error {
	f.gens[userID]++
	f.invalidated = append(f.invalidated, userID)
	return nil
}

func TestGetUserStatsUsesCache(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	cache := newFakeStatsCache()
	cache.stored[statsKey{1, 0}] = domain.UserStats{Streak: 9, CasesSolved: 9, Accuracy: 99}

	svc := NewStatsService(zap.NewNop(), store.Completions, cache)
	got, err := svc.GetUserStats(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Streak != 9 {
		t.Fatalf("expected cached stats, got %+v", got)
	}

	_, _ = store.Completions.Create(ctx, domain.Completion{UserID: 2, CaseID: 1, Result: domain.ResultCorrect})
	got, _ = svc.GetUserStats(ctx, 2)
	if got.CasesSolved != 1 {
		t.Fatalf("expected computed stats, got %+v", got)
	}
	if _, ok := cache.stored[statsKey{2, 0}]; !ok {
		t.Fatalf("expected computed stats to be cached")
	}
}

func TestGetUserStatsIgnoresCacheErrors(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	cache := newFakeStatsCache()
	cache.getErr = errors.New("redis down")
	_, _ = store.Completions.Create(ctx, domain.Completion{UserID: 1, CaseID: 1, Result: domain.ResultCorrect})

	svc := NewStatsService(zap.NewNop(), store.Completions, cache)
	got, err := svc.GetUserStats(ctx, 1)
	if err != nil {
		t.Fatalf("cache failure must not fail the request, got %v", err)
	}
	if got.Accuracy != 100 {
		t.Fatalf("unexpected stats %+v", got)
	}
}

func TestGetUserStatsSkipsCacheWithoutGeneration(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	cache := newFakeStatsCache()
	cache.genErr = errors.New("redis down")
	_, _ = store.Completions.Create(ctx, domain.Completion{UserID: 1, CaseID: 1, Result: domain.ResultWrong})

	svc := NewStatsService(zap.NewNop(), store.Completions, cache)
	got, err := svc.GetUserStats(ctx, 1)
	if err != nil || got.Accuracy != 0 {
		t.Fatalf("expected computed stats, got %+v err=%v", got, err)
	}
	if len(cache.stored) != 0 {
		t.Fatalf("expected nothing cached without a generation, got %v", cache.stored)
	}
}

// invalidatingCompletions simula un Complete concurrente: invalida el cache mientras
// GetUserStats esta leyendo las completions.
type invalidatingCompletions struct {
	repository.CompletionRepository
	onList func()
}

func (r *invalidatingCompletions) ListByUserID(ctx context.Context, userID int64) ([]domain.Completion, error) {
	list, err := r.CompletionRepository.ListByUserID(ctx, userID)
	if r.onList != nil {
		r.onList()
		r.onList = nil
	}
	return list, err
}

func TestGetUserStatsDoesNotCacheAcrossInvalidation(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	cache := newFakeStatsCache()
	repo := &invalidatingCompletions{CompletionRepository: store.Completions}
	svc := NewStatsService(zap.NewNop(), repo, cache)

	_, _ = store.Completions.Create(ctx, domain.Completion{UserID: 1, CaseID: 1, Result: domain.ResultWrong})
	repo.onList = func() {
		_, _ = store.Completions.Create(ctx, domain.Completion{UserID: 1, CaseID: 2, Result: domain.ResultCorrect})
		svc.Invalidate(ctx, 1)
	}

	stale, err := svc.GetUserStats(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stale.CasesSolved != 0 {
		t.Fatalf("expected stats computed before the new completion, got %+v", stale)
	}

	fresh, err := svc.GetUserStats(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh.CasesSolved != 1 || fresh.Accuracy != 50 {
		t.Fatalf("expected fresh stats after invalidation, got %+v", fresh)
	}
}

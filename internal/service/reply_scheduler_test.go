package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestReplySchedulerRunsEachReply(t *testing.T) {
	s := NewReplyScheduler(zap.NewNop(), 100*time.Millisecond)
	var runs atomic.Int32

	for i := 0; i < 3; i++ {
		if !s.Schedule(1, func(ctx context.Context) error {
			runs.Add(1)
			return nil
		}) {
			t.Fatalf("expected schedule to be accepted")
		}
	}
	if s.Pending(1) != 3 {
		t.Fatalf("expected 3 pending replies, got %d", s.Pending(1))
	}
	s.Wait()

	if runs.Load() != 3 {
		t.Fatalf("expected 3 independent replies, got %d", runs.Load())
	}
	if s.Pending(1) != 0 {
		t.Fatalf("expected no pending replies, got %d", s.Pending(1))
	}
}

func TestReplySchedulerCancelChat(t *testing.T) {
	s := NewReplyScheduler(zap.NewNop(), time.Hour)
	var cancelled, other atomic.Int32

	s.Schedule(1, func(ctx context.Context) error {
		cancelled.Add(1)
		return nil
	})
	fast := NewReplyScheduler(zap.NewNop(), 0)
	fast.Schedule(2, func(ctx context.Context) error {
		other.Add(1)
		return nil
	})

	s.CancelChat(1)
	s.Wait()
	fast.Wait()

	if cancelled.Load() != 0 {
		t.Fatalf("cancelled reply must not run")
	}
	if other.Load() != 1 {
		t.Fatalf("unrelated reply should run")
	}
}

func TestReplySchedulerCancelKeepsNewSchedules(t *testing.T) {
	s := NewReplyScheduler(zap.NewNop(), 5*time.Millisecond)
	var runs atomic.Int32

	s.CancelChat(7)
	s.Schedule(7, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	s.Wait()
	if runs.Load() != 1 {
		t.Fatalf("expected reply scheduled after cancel to run, got %d", runs.Load())
	}
}

func TestReplySchedulerShutdown(t *testing.T) {
	s := NewReplyScheduler(zap.NewNop(), time.Hour)
	var runs atomic.Int32
	s.Schedule(1, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if runs.Load() != 0 {
		t.Fatalf("pending reply must be cancelled on shutdown")
	}
	if s.Schedule(1, func(context.Context) error { return nil }) {
		t.Fatalf("expected schedule to be rejected after shutdown")
	}
}

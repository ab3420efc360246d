package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ReplyFunc genera y persiste la respuesta diferida de un chat.
type ReplyFunc func(ctx context.Context) error

type chatReplies struct {
	ctx     context.Context
	cancel  context.CancelFunc
	pending int
}

// ReplyScheduler ejecuta respuestas diferidas, una goroutine por turno de usuario.
// Cada chat tiene su propio contexto: CancelChat descarta lo pendiente de ese chat y
// Shutdown cancela todo y espera a que las goroutines terminen.
type ReplyScheduler struct {
	logger *zap.Logger
	delay  time.Duration

	mu     sync.Mutex
	root   context.Context
	stop   context.CancelFunc
	chats  map[int64]*chatReplies
	closed bool
	wg     sync.WaitGroup
}

func NewReplyScheduler(logger *zap.Logger, delay time.Duration) *ReplyScheduler {
	root, stop := context.WithCancel(context.Background())
	return &ReplyScheduler{
		logger: logger,
		delay:  delay,
		root:   root,
		stop:   stop,
		chats:  make(map[int64]*chatReplies),
	}
}

// Schedule programa fn tras el retardo configurado. Devuelve false si el scheduler ya
// fue cerrado.
func (s *ReplyScheduler) Schedule(chatID int64, fn ReplyFunc) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	entry, ok := s.chats[chatID]
	if !ok {
		ctx, cancel := context.WithCancel(s.root)
		entry = &chatReplies{ctx: ctx, cancel: cancel}
		s.chats[chatID] = entry
	}
	entry.pending++
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(chatID, entry, fn)
	return true
}

func (s *ReplyScheduler) run(chatID int64, entry *chatReplies, fn ReplyFunc) {
	defer s.wg.Done()
	defer s.release(chatID, entry)

	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-entry.ctx.Done():
		s.logger.Debug("reply cancelled before delay", zap.Int64("chat_id", chatID))
		return
	case <-timer.C:
	}

	if err := fn(entry.ctx); err != nil {
		s.logger.Warn("delayed reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (s *ReplyScheduler) release(chatID int64, entry *chatReplies) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.pending--
	if entry.pending > 0 {
		return
	}
	entry.cancel()
	if s.chats[chatID] == entry {
		delete(s.chats, chatID)
	}
}

// CancelChat descarta las respuestas pendientes del chat.
func (s *ReplyScheduler) CancelChat(chatID int64) {
	s.mu.Lock()
	entry, ok := s.chats[chatID]
	if ok {
		delete(s.chats, chatID)
	}
	s.mu.Unlock()
	if ok {
		entry.cancel()
	}
}

// Pending devuelve cuantas respuestas siguen en curso para el chat.
func (s *ReplyScheduler) Pending(chatID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.chats[chatID]; ok {
		return entry.pending
	}
	return 0
}

// Wait bloquea hasta que terminen todas las respuestas en curso.
func (s *ReplyScheduler) Wait() {
	s.wg.Wait()
}

// Shutdown rechaza nuevas respuestas, cancela las pendientes y espera a que terminen o a
// que ctx expire.
func (s *ReplyScheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

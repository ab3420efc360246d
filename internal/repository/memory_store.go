package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"medcase/internal/domain"
)

// memoryDB es el backend por defecto: mapas protegidos por un unico mutex y contadores
// autoincrementales por entidad.
type memoryDB struct {
	mu sync.RWMutex

	users       map[int64]domain.User
	cases       map[int64]domain.Case
	chats       map[int64]domain.Chat
	messages    []domain.Message // orden de insercion
	completions []domain.Completion

	userSeq       int64
	caseSeq       int64
	chatSeq       int64
	messageSeq    int64
	completionSeq int64
}

// NewMemoryStore devuelve un Store en memoria seguro para uso concurrente.
func NewMemoryStore() Store {
	db := &memoryDB{
		users: make(map[int64]domain.User),
		cases: make(map[int64]domain.Case),
		chats: make(map[int64]domain.Chat),
	}
	return Store{
		Users:       &memoryUserRepo{db: db},
		Cases:       &memoryCaseRepo{db: db},
		Chats:       &memoryChatRepo{db: db},
		Messages:    &memoryMessageRepo{db: db},
		Completions: &memoryCompletionRepo{db: db},
	}
}

type memoryUserRepo struct{ db *memoryDB }

func (r *memoryUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.userSeq++
	user.ID = r.db.userSeq
	r.db.users[user.ID] = user
	return user, nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id int64) (domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	u, ok := r.db.users[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}

func (r *memoryUserRepo) GetByUsername(_ context.Context, username string) (domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, u := range r.db.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, ErrNotFound
}

type memoryCaseRepo struct{ db *memoryDB }

func (r *memoryCaseRepo) Create(_ context.Context, c domain.Case) (domain.Case, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.caseSeq++
	c.ID = r.db.caseSeq
	r.db.cases[c.ID] = c
	return c, nil
}

func (r *memoryCaseRepo) GetByID(_ context.Context, id int64) (domain.Case, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	c, ok := r.db.cases[id]
	if !ok {
		return domain.Case{}, ErrNotFound
	}
	return c, nil
}

func (r *memoryCaseRepo) List(_ context.Context) ([]domain.Case, error) {
	return r.filter(func(domain.Case) bool { return true }), nil
}

func (r *memoryCaseRepo) ListByDifficulty(_ context.Context, difficulty string) ([]domain.Case, error) {
	return r.filter(func(c domain.Case) bool { return c.Difficulty == difficulty }), nil
}

func (r *memoryCaseRepo) Count(_ context.Context) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return len(r.db.cases), nil
}

func (r *memoryCaseRepo) filter(keep func(domain.Case) bool) []domain.Case {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]domain.Case, 0, len(r.db.cases))
	for _, c := range r.db.cases {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memoryChatRepo struct{ db *memoryDB }

func (r *memoryChatRepo) Create(_ context.Context, chat domain.Chat) (domain.Chat, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.chatSeq++
	chat.ID = r.db.chatSeq
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = time.Now().UTC()
	}
	r.db.chats[chat.ID] = chat
	return chat, nil
}

func (r *memoryChatRepo) GetByID(_ context.Context, id int64) (domain.Chat, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	chat, ok := r.db.chats[id]
	if !ok {
		return domain.Chat{}, ErrNotFound
	}
	return chat, nil
}

type memoryMessageRepo struct{ db *memoryDB }

func (r *memoryMessageRepo) Create(_ context.Context, message domain.Message) (domain.Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.messageSeq++
	message.ID = r.db.messageSeq
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	r.db.messages = append(r.db.messages, message)
	return message, nil
}

func (r *memoryMessageRepo) ListByChatID(_ context.Context, chatID int64) ([]domain.Message, error) {
	r.db.mu.RLock()
	out := make([]domain.Message, 0)
	for _, m := range r.db.messages {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	r.db.mu.RUnlock()

	// Stable conserva el orden de insercion cuando los timestamps empatan.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryMessageRepo) DeleteLastBySender(_ context.Context, chatID int64, sender string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	idx := -1
	for i, m := range r.db.messages {
		if m.ChatID != chatID || m.Sender != sender {
			continue
		}
		if idx == -1 || !m.CreatedAt.Before(r.db.messages[idx].CreatedAt) {
			idx = i
		}
	}
	if idx == -1 {
		return false, nil
	}
	r.db.messages = append(r.db.messages[:idx], r.db.messages[idx+1:]...)
	return true, nil
}

type memoryCompletionRepo struct{ db *memoryDB }

func (r *memoryCompletionRepo) Create(_ context.Context, c domain.Completion) (domain.Completion, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.completionSeq++
	c.ID = r.db.completionSeq
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now().UTC()
	}
	r.db.completions = append(r.db.completions, c)
	return c, nil
}

func (r *memoryCompletionRepo) Delete(_ context.Context, id int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i, c := range r.db.completions {
		if c.ID == id {
			r.db.completions = append(r.db.completions[:i], r.db.completions[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *memoryCompletionRepo) GetLastByChatID(_ context.Context, chatID int64) (domain.Completion, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	idx := -1
	for i, c := range r.db.completions {
		if c.ChatID != chatID {
			continue
		}
		if idx == -1 || !c.CompletedAt.Before(r.db.completions[idx].CompletedAt) {
			idx = i
		}
	}
	if idx == -1 {
		return domain.Completion{}, ErrNotFound
	}
	return r.db.completions[idx], nil
}

func (r *memoryCompletionRepo) ListByUserID(_ context.Context, userID int64) ([]domain.Completion, error) {
	r.db.mu.RLock()
	out := make([]domain.Completion, 0)
	for _, c := range r.db.completions {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	r.db.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.Before(out[j].CompletedAt)
	})
	return out, nil
}

package repository

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound se devuelve cuando la entidad pedida no existe en ningun backend.
var ErrNotFound = errors.New("not found")

// Store agrupa los repositorios de un mismo backend.
type Store struct {
	Users       UserRepository
	Cases       CaseRepository
	Chats       ChatRepository
	Messages    MessageRepository
	Completions CompletionRepository
}

// NewPgStore construye todos los repositorios sobre el mismo pool.
func NewPgStore(pool *pgxpool.Pool) Store {
	return Store{
		Users:       NewPgUserRepository(pool),
		Cases:       NewPgCaseRepository(pool),
		Chats:       NewPgChatRepository(pool),
		Messages:    NewPgMessageRepository(pool),
		Completions: NewPgCompletionRepository(pool),
	}
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// nowIfZero completa timestamps de creacion que el llamador no fijo.
func nowIfZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"medcase/internal/domain"
)

type ChatRepository interface {
	Create(ctx context.Context, chat domain.Chat) (domain.Chat, error)
	GetByID(ctx context.Context, id int64) (domain.Chat, error)
}

type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

func (r *PgChatRepository) Create(ctx context.Context, chat domain.Chat) (domain.Chat, error) {
	const query = `
		INSERT INTO chats (user_id, case_id, status, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	chat.CreatedAt = nowIfZero(chat.CreatedAt)
	err := r.pool.QueryRow(ctx, query,
		chat.UserID,
		chat.CaseID,
		chat.Status,
		chat.CreatedAt,
	).Scan(&chat.ID)
	return chat, err
}

func (r *PgChatRepository) GetByID(ctx context.Context, id int64) (domain.Chat, error) {
	const query = `
		SELECT id, user_id, case_id, status, created_at
		FROM chats
		WHERE id = $1
	`
	var chat domain.Chat
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&chat.ID,
		&chat.UserID,
		&chat.CaseID,
		&chat.Status,
		&chat.CreatedAt,
	)
	if err != nil {
		return domain.Chat{}, mapNoRows(err)
	}
	return chat, nil
}

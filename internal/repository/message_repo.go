package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"medcase/internal/domain"
)

// MessageRepository es append-only salvo por DeleteLastBySender.
type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) (domain.Message, error)
	// ListByChatID devuelve los mensajes por created_at ascendente, FIFO en empates.
	ListByChatID(ctx context.Context, chatID int64) ([]domain.Message, error)
	// DeleteLastBySender borra el mensaje mas reciente del sender; false si no habia ninguno.
	DeleteLastBySender(ctx context.Context, chatID int64, sender string) (bool, error)
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message) (domain.Message, error) {
	const query = `
		INSERT INTO messages (chat_id, sender, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	message.CreatedAt = nowIfZero(message.CreatedAt)
	err := r.pool.QueryRow(ctx, query,
		message.ChatID,
		message.Sender,
		message.Content,
		message.CreatedAt,
	).Scan(&message.ID)
	return message, err
}

func (r *PgMessageRepository) ListByChatID(ctx context.Context, chatID int64) ([]domain.Message, error) {
	const query = `
		SELECT id, chat_id, sender, content, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		err = rows.Scan(
			&msg.ID,
			&msg.ChatID,
			&msg.Sender,
			&msg.Content,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *PgMessageRepository) DeleteLastBySender(ctx context.Context, chatID int64, sender string) (bool, error) {
	const query = `
		DELETE FROM messages
		WHERE id = (
			SELECT id FROM messages
			WHERE chat_id = $1 AND sender = $2
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		)
	`
	tag, err := r.pool.Exec(ctx, query, chatID, sender)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

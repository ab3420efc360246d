package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"medcase/internal/domain"
)

// CompletionRepository no impone unicidad por chat; eso lo mantiene quien llama.
type CompletionRepository interface {
	Create(ctx context.Context, completion domain.Completion) (domain.Completion, error)
	Delete(ctx context.Context, id int64) error
	GetLastByChatID(ctx context.Context, chatID int64) (domain.Completion, error)
	// ListByUserID devuelve las completions en orden de envio (mas antigua primero).
	ListByUserID(ctx context.Context, userID int64) ([]domain.Completion, error)
}

type PgCompletionRepository struct {
	pool *pgxpool.Pool
}

func NewPgCompletionRepository(pool *pgxpool.Pool) *PgCompletionRepository {
	return &PgCompletionRepository{pool: pool}
}

func (r *PgCompletionRepository) Create(ctx context.Context, c domain.Completion) (domain.Completion, error) {
	const query = `
		INSERT INTO case_completions (user_id, case_id, chat_id, result, diagnosis, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	c.CompletedAt = nowIfZero(c.CompletedAt)
	err := r.pool.QueryRow(ctx, query,
		c.UserID,
		c.CaseID,
		c.ChatID,
		string(c.Result),
		c.Diagnosis,
		c.CompletedAt,
	).Scan(&c.ID)
	return c, err
}

func (r *PgCompletionRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM case_completions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgCompletionRepository) GetLastByChatID(ctx context.Context, chatID int64) (domain.Completion, error) {
	const query = `
		SELECT id, user_id, case_id, chat_id, result, diagnosis, completed_at
		FROM case_completions
		WHERE chat_id = $1
		ORDER BY completed_at DESC, id DESC
		LIMIT 1
	`
	var c domain.Completion
	var result string
	err := r.pool.QueryRow(ctx, query, chatID).Scan(
		&c.ID,
		&c.UserID,
		&c.CaseID,
		&c.ChatID,
		&result,
		&c.Diagnosis,
		&c.CompletedAt,
	)
	if err != nil {
		return domain.Completion{}, mapNoRows(err)
	}
	c.Result = domain.DiagnosisResult(result)
	return c, nil
}

func (r *PgCompletionRepository) ListByUserID(ctx context.Context, userID int64) ([]domain.Completion, error) {
	const query = `
		SELECT id, user_id, case_id, chat_id, result, diagnosis, completed_at
		FROM case_completions
		WHERE user_id = $1
		ORDER BY completed_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	completions := []domain.Completion{}
	for rows.Next() {
		var c domain.Completion
		var result string
		if err := rows.Scan(
			&c.ID,
			&c.UserID,
			&c.CaseID,
			&c.ChatID,
			&result,
			&c.Diagnosis,
			&c.CompletedAt,
		); err != nil {
			return nil, err
		}
		c.Result = domain.DiagnosisResult(result)
		completions = append(completions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return completions, nil
}

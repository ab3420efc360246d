package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		avatar_url TEXT NOT NULL DEFAULT '',
		specialty TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS cases (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		specialty TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		expected_diagnosis TEXT NOT NULL DEFAULT '',
		acceptable_diagnoses TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'available'
	)`,
	`CREATE INDEX IF NOT EXISTS cases_difficulty_idx ON cases (difficulty)`,
	`CREATE TABLE IF NOT EXISTS chats (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		case_id BIGINT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		chat_id BIGINT NOT NULL,
		sender TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS messages_chat_idx ON messages (chat_id, created_at, id)`,
	`CREATE TABLE IF NOT EXISTS case_completions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		case_id BIGINT NOT NULL,
		chat_id BIGINT NOT NULL,
		result TEXT NOT NULL,
		diagnosis TEXT NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS case_completions_chat_idx ON case_completions (chat_id)`,
	`CREATE INDEX IF NOT EXISTS case_completions_user_idx ON case_completions (user_id)`,
}

// EnsureSchema crea las tablas si no existen. Es idempotente.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

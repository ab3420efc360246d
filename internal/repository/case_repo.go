package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medcase/internal/domain"
)

// CaseRepository guarda el catalogo de casos clinicos.
type CaseRepository interface {
	Create(ctx context.Context, c domain.Case) (domain.Case, error)
	GetByID(ctx context.Context, id int64) (domain.Case, error)
	List(ctx context.Context) ([]domain.Case, error)
	ListByDifficulty(ctx context.Context, difficulty string) ([]domain.Case, error)
	Count(ctx context.Context) (int, error)
}

type PgCaseRepository struct {
	pool *pgxpool.Pool
}

func NewPgCaseRepository(pool *pgxpool.Pool) *PgCaseRepository {
	return &PgCaseRepository{pool: pool}
}

const caseColumns = `id, title, description, specialty, difficulty, expected_diagnosis, acceptable_diagnoses, image_url, status`

func (r *PgCaseRepository) Create(ctx context.Context, c domain.Case) (domain.Case, error) {
	const query = `
		INSERT INTO cases (title, description, specialty, difficulty, expected_diagnosis, acceptable_diagnoses, image_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.pool.QueryRow(ctx, query,
		c.Title,
		c.Description,
		c.Specialty,
		c.Difficulty,
		c.ExpectedDiagnosis,
		c.AcceptableDiagnoses,
		c.ImageURL,
		c.Status,
	).Scan(&c.ID)
	return c, err
}

func (r *PgCaseRepository) GetByID(ctx context.Context, id int64) (domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1`
	c, err := scanCase(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Case{}, mapNoRows(err)
	}
	return c, nil
}

func (r *PgCaseRepository) List(ctx context.Context) ([]domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases ORDER BY id ASC`
	return r.list(ctx, query)
}

func (r *PgCaseRepository) ListByDifficulty(ctx context.Context, difficulty string) ([]domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE difficulty = $1 ORDER BY id ASC`
	return r.list(ctx, query, difficulty)
}

func (r *PgCaseRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cases`).Scan(&n)
	return n, err
}

func (r *PgCaseRepository) list(ctx context.Context, query string, args ...any) ([]domain.Case, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cases := []domain.Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return cases, nil
}

func scanCase(row pgx.Row) (domain.Case, error) {
	var c domain.Case
	err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.Specialty,
		&c.Difficulty,
		&c.ExpectedDiagnosis,
		&c.AcceptableDiagnoses,
		&c.ImageURL,
		&c.Status,
	)
	return c, err
}

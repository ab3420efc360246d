// Package seed carga el catalogo inicial de casos clinicos.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"medcase/internal/domain"
	"medcase/internal/repository"
)

//go:embed cases.json
var defaultCases []byte

// DecodeCases parsea una lista JSON de casos. Dificultad y estado vacios toman los
// valores por defecto.
func DecodeCases(r io.Reader) ([]domain.Case, error) {
	var cases []domain.Case
	if err := json.NewDecoder(r).Decode(&cases); err != nil {
		return nil, fmt.Errorf("decode cases: %w", err)
	}
	for i := range cases {
		if cases[i].Title == "" {
			return nil, fmt.Errorf("case %d: title is required", i)
		}
		if cases[i].Difficulty == "" {
			cases[i].Difficulty = domain.DifficultyIntermediate
		}
		if cases[i].Status == "" {
			cases[i].Status = domain.CaseStatusAvailable
		}
		cases[i].ID = 0
	}
	return cases, nil
}

// Cases inserta el catalogo cuando el store no tiene casos. path vacio usa el catalogo
// embebido. Devuelve cuantos casos se insertaron.
func Cases(ctx context.Context, repo repository.CaseRepository, path string, logger *zap.Logger) (int, error) {
	n, err := repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count cases: %w", err)
	}
	if n > 0 {
		logger.Info("case catalogue already present, skipping seed", zap.Int("cases", n))
		return 0, nil
	}

	var src io.Reader
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return 0, fmt.Errorf("open seed file: %w", err)
		}
		defer f.Close()
		src = f
	} else {
		src = bytes.NewReader(defaultCases)
	}

	cases, err := DecodeCases(src)
	if err != nil {
		return 0, err
	}
	for _, c := range cases {
		if _, err := repo.Create(ctx, c); err != nil {
			return 0, fmt.Errorf("create case %q: %w", c.Title, err)
		}
	}
	logger.Info("seeded case catalogue", zap.Int("cases", len(cases)), zap.String("source", sourceName(path)))
	return len(cases), nil
}

func sourceName(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

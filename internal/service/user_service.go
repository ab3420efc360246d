package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"medcase/internal/domain"
	"medcase/internal/repository"
)

// UserService coordina reglas de negocio para usuarios.
type UserService struct {
	logger *zap.Logger
	users  repository.UserRepository
}

func NewUserService(logger *zap.Logger, users repository.UserRepository) *UserService {
	return &UserService{logger: logger, users: users}
}

// EnsureDefault devuelve el usuario por defecto, creandolo si no existe.
func (s *UserService) EnsureDefault(ctx context.Context) (domain.User, error) {
	u, err := s.users.GetByUsername(ctx, domain.DefaultUsername)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, fmt.Errorf("get default user: %w", err)
	}

	u, err = s.users.Create(ctx, domain.User{
		Username:  domain.DefaultUsername,
		Name:      domain.DefaultName,
		Specialty: domain.DefaultSpecialty,
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("create default user: %w", err)
	}
	s.logger.Info("default user created", zap.Int64("user_id", u.ID))
	return u, nil
}

func (s *UserService) GetByID(ctx context.Context, id int64) (domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, ErrInvalidInput
	}
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, ErrUserNotFound
	}
	return u, err
}

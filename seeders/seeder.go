package seeders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	"crm-system/pkg/config"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/utils"
)

type Seeder struct {
	clients repositories.ClientRepositoryInterface
	users   repositories.UserRepositoryInterface
	logger  *zap.Logger
}

func New(clients repositories.ClientRepositoryInterface, users repositories.UserRepositoryInterface, logger *zap.Logger) *Seeder {
	return &Seeder{clients: clients, users: users, logger: logger}
}

// SeedDefaults creates the first tenant and its admin on an empty database.
// It is a no-op once any user exists, so it is safe to run on every start.
func (s *Seeder) SeedDefaults(ctx context.Context, cfg config.SeederConfig) error {
	count, err := s.users.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		s.logger.Debug("users already present, skipping seed", zap.Uint64("users", count))
		return nil
	}

	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		s.logger.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, no admin user created")
		return nil
	}

	client, err := s.ensureClient(ctx, cfg.ClientName)
	if err != nil {
		return err
	}

	hash, err := utils.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	admin, err := s.users.CreateUser(ctx, &entities.User{
		ClientID: client.ID,
		Fio:      "Administrator",
		Email:    strings.ToLower(strings.TrimSpace(cfg.AdminEmail)),
		Password: hash,
		Role:     entities.RoleAdmin,
		IsActive: true,
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	s.logger.Info("seeded admin user",
		zap.Uint64("client_id", client.ID), zap.Uint64("user_id", admin.ID), zap.String("email", admin.Email))
	return nil
}

func (s *Seeder) ensureClient(ctx context.Context, name string) (*entities.Client, error) {
	if name == "" {
		name = "Default"
	}
	client, err := s.clients.FindClientByName(ctx, name)
	if err == nil {
		return client, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("find client %q: %w", name, err)
	}
	client, err = s.clients.CreateClient(ctx, name)
	if err != nil {
		return nil, err
	}
	s.logger.Info("seeded client", zap.Uint64("client_id", client.ID), zap.String("name", name))
	return client, nil
}

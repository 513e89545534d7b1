package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"crm-system/internal/entities"
)

type ClientRepositoryInterface interface {
	FindClient(ctx context.Context, id uint64) (*entities.Client, error)
	FindClientByName(ctx context.Context, name string) (*entities.Client, error)
	CreateClient(ctx context.Context, name string) (*entities.Client, error)
}

type ClientRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewClientRepository(storage *pgxpool.Pool, logger *zap.Logger) ClientRepositoryInterface {
	return &ClientRepository{storage: storage, logger: logger}
}

func (r *ClientRepository) FindClient(ctx context.Context, id uint64) (*entities.Client, error) {
	var c entities.Client
	err := r.storage.QueryRow(ctx, "SELECT id, name, is_active, created_at FROM clients WHERE id = $1", id).
		Scan(&c.ID, &c.Name, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *ClientRepository) FindClientByName(ctx context.Context, name string) (*entities.Client, error) {
	var c entities.Client
	err := r.storage.QueryRow(ctx, "SELECT id, name, is_active, created_at FROM clients WHERE name = $1 ORDER BY id LIMIT 1", name).
		Scan(&c.ID, &c.Name, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *ClientRepository) CreateClient(ctx context.Context, name string) (*entities.Client, error) {
	var c entities.Client
	err := r.storage.QueryRow(ctx,
		"INSERT INTO clients (name) VALUES ($1) RETURNING id, name, is_active, created_at", name).
		Scan(&c.ID, &c.Name, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert client: %w", err)
	}
	return &c, nil
}

package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"crm-system/internal/dto"
	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/types"
	"crm-system/pkg/utils"
)

type CustomerServiceInterface interface {
	GetCustomers(ctx context.Context, filter types.Filter) ([]entities.Customer, uint64, error)
	FindCustomer(ctx context.Context, id uint64) (*entities.Customer, error)
	CreateCustomer(ctx context.Context, d dto.CreateCustomerDTO) (*entities.Customer, error)
}

// CustomerService keeps customers tenant-wide; every role of the tenant sees them.
type CustomerService struct {
	repo        repositories.CustomerRepositoryInterface
	phoneRegion string
	logger      *zap.Logger
}

func NewCustomerService(repo repositories.CustomerRepositoryInterface, phoneRegion string, logger *zap.Logger) CustomerServiceInterface {
	return &CustomerService{repo: repo, phoneRegion: phoneRegion, logger: logger}
}

func (s *CustomerService) GetCustomers(ctx context.Context, filter types.Filter) ([]entities.Customer, uint64, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.GetCustomers(ctx, actor.ClientID, filter)
}

func (s *CustomerService) FindCustomer(ctx context.Context, id uint64) (*entities.Customer, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	customer, err := s.repo.FindCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer.ClientID != actor.ClientID {
		return nil, apperrors.ErrNotFound
	}
	return customer, nil
}

func (s *CustomerService) CreateCustomer(ctx context.Context, d dto.CreateCustomerDTO) (*entities.Customer, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.CreateCustomer(ctx, nil, &entities.Customer{
		ClientID:  actor.ClientID,
		Name:      strings.TrimSpace(d.Name),
		Phone:     utils.NormalizePhone(d.Phone, s.phoneRegion),
		Email:     strings.TrimSpace(d.Email),
		Notes:     d.Notes,
		CreatedBy: &actor.ID,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("customer created", zap.Uint64("customer_id", created.ID), zap.Uint64("user_id", actor.ID))
	return created, nil
}

package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"crm-system/internal/authz"
	"crm-system/internal/dto"
	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/types"
	"crm-system/pkg/utils"
)

// UserCacheInvalidator drops the cached copy the auth middleware reads.
type UserCacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID uint64)
}

type UserServiceInterface interface {
	GetUsers(ctx context.Context, filter types.Filter) ([]entities.User, uint64, error)
	FindUser(ctx context.Context, id uint64) (*entities.User, error)
	CreateUser(ctx context.Context, d dto.CreateUserDTO) (*entities.User, error)
	UpdateUser(ctx context.Context, id uint64, d dto.UpdateUserDTO, rawBody []byte) (*entities.User, error)
	DeleteUser(ctx context.Context, id uint64) error
}

type UserService struct {
	repo   repositories.UserRepositoryInterface
	cache  UserCacheInvalidator
	logger *zap.Logger
}

func NewUserService(
	repo repositories.UserRepositoryInterface,
	cache UserCacheInvalidator,
	logger *zap.Logger,
) UserServiceInterface {
	return &UserService{repo: repo, cache: cache, logger: logger}
}

// GetUsers lists the tenant for admins and managers; an agent only sees
// their own row.
func (s *UserService) GetUsers(ctx context.Context, filter types.Filter) ([]entities.User, uint64, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, 0, err
	}
	if actor.IsAgent() {
		self, err := s.repo.FindUser(ctx, actor.ID)
		if err != nil {
			return nil, 0, err
		}
		return []entities.User{*self}, 1, nil
	}
	return s.repo.GetUsers(ctx, actor.ClientID, filter)
}

func (s *UserService) FindUser(ctx context.Context, id uint64) (*entities.User, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	return s.loadManageable(ctx, actor, id, authz.ActionView)
}

func (s *UserService) loadManageable(ctx context.Context, actor *entities.User, id uint64, action string) (*entities.User, error) {
	target, err := s.repo.FindUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if target.ClientID != actor.ClientID {
		return nil, apperrors.ErrNotFound
	}
	if !authz.CanDo(actor, action, target) {
		s.logger.Warn("user management denied",
			zap.Uint64("actor_id", actor.ID), zap.Uint64("target_id", id), zap.String("action", action))
		return nil, apperrors.ErrForbidden
	}
	return target, nil
}

func (s *UserService) CreateUser(ctx context.Context, d dto.CreateUserDTO) (*entities.User, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	role := entities.Role(d.Role)
	if !authz.CanAssignRole(actor, role) {
		return nil, apperrors.ErrForbidden
	}

	managerID := d.ManagerID
	if actor.IsManager() {
		managerID = &actor.ID
	}
	if err := s.checkManager(ctx, actor, managerID); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(d.Password)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateUser(ctx, &entities.User{
		ClientID:  actor.ClientID,
		ManagerID: managerID,
		Fio:       strings.TrimSpace(d.Fio),
		Email:     strings.ToLower(strings.TrimSpace(d.Email)),
		Password:  hash,
		Role:      role,
		IsActive:  true,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created",
		zap.Uint64("user_id", created.ID), zap.String("role", string(role)), zap.Uint64("actor_id", actor.ID))
	return created, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id uint64, d dto.UpdateUserDTO, rawBody []byte) (*entities.User, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	fields, err := dto.PresentFields(rawBody)
	if err != nil {
		return nil, err
	}
	target, err := s.loadManageable(ctx, actor, id, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	// Only admins and managers touch role, status and hierarchy, and never their own.
	if fields.HasAny("role", "is_active", "manager_id") && (actor.IsAgent() || (actor.ID == target.ID && !actor.IsAdmin())) {
		return nil, apperrors.ErrForbidden
	}

	if fields.Has("fio") && d.Fio.Valid {
		target.Fio = strings.TrimSpace(d.Fio.String)
	}
	if fields.Has("email") && d.Email.Valid {
		target.Email = strings.ToLower(strings.TrimSpace(d.Email.String))
	}
	if fields.Has("role") && d.Role.Valid {
		role := entities.Role(d.Role.String)
		if !authz.CanAssignRole(actor, role) {
			return nil, apperrors.ErrForbidden
		}
		target.Role = role
	}
	if fields.Has("is_active") && d.IsActive.Valid {
		target.IsActive = d.IsActive.Bool
	}
	if fields.Has("manager_id") {
		var managerID *uint64
		if d.ManagerID.Valid {
			managerID = &d.ManagerID.Uint64
		}
		if err := s.checkManager(ctx, actor, managerID); err != nil {
			return nil, err
		}
		target.ManagerID = managerID
	}

	updated, err := s.repo.UpdateUser(ctx, target)
	if err != nil {
		return nil, err
	}
	if fields.Has("password") && d.Password.Valid && d.Password.String != "" {
		hash, err := utils.HashPassword(d.Password.String)
		if err != nil {
			return nil, err
		}
		if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
			return nil, err
		}
	}

	s.cache.InvalidateUser(ctx, id)
	return updated, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id uint64) error {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return err
	}
	if _, err := s.loadManageable(ctx, actor, id, authz.ActionDelete); err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidateUser(ctx, id)
	s.logger.Info("user deleted", zap.Uint64("user_id", id), zap.Uint64("actor_id", actor.ID))
	return nil
}

// checkManager requires the referenced manager to be a manager of the same tenant.
func (s *UserService) checkManager(ctx context.Context, actor *entities.User, managerID *uint64) error {
	if managerID == nil || (*managerID == actor.ID && actor.IsManager()) {
		return nil
	}
	manager, err := s.repo.FindUser(ctx, *managerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewValidationError("manager does not exist", nil)
		}
		return err
	}
	if manager.ClientID != actor.ClientID || !manager.IsManager() {
		return apperrors.NewValidationError("manager_id must reference a manager", nil)
	}
	return nil
}

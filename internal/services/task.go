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

const DefaultTaskStatus = "open"

type TaskServiceInterface interface {
	GetTasks(ctx context.Context, filter types.Filter) ([]entities.Task, uint64, error)
	FindTask(ctx context.Context, id uint64) (*entities.Task, error)
	CreateTask(ctx context.Context, d dto.CreateTaskDTO) (*entities.Task, error)
	UpdateTask(ctx context.Context, id uint64, d dto.UpdateTaskDTO, rawBody []byte) (*entities.Task, error)
	DeleteTask(ctx context.Context, id uint64) error
}

type TaskService struct {
	repo     repositories.TaskRepositoryInterface
	userRepo repositories.UserRepositoryInterface
	logger   *zap.Logger
}

func NewTaskService(
	repo repositories.TaskRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	logger *zap.Logger,
) TaskServiceInterface {
	return &TaskService{repo: repo, userRepo: userRepo, logger: logger}
}

func (s *TaskService) GetTasks(ctx context.Context, filter types.Filter) ([]entities.Task, uint64, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.GetTasks(ctx, authz.TaskScope(actor, "t"), filter)
}

func (s *TaskService) FindTask(ctx context.Context, id uint64) (*entities.Task, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	return s.loadAccessible(ctx, actor, id, authz.ActionView)
}

func (s *TaskService) loadAccessible(ctx context.Context, actor *entities.User, id uint64, action string) (*entities.Task, error) {
	task, err := s.repo.FindTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.ClientID != actor.ClientID {
		return nil, apperrors.ErrNotFound
	}
	if !authz.CanDo(actor, action, task) {
		return nil, apperrors.ErrForbidden
	}
	return task, nil
}

func (s *TaskService) CreateTask(ctx context.Context, d dto.CreateTaskDTO) (*entities.Task, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	assignee := d.AssignedTo
	if assignee == nil {
		assignee = &actor.ID
	}
	if err := s.checkAssignee(ctx, actor, *assignee); err != nil {
		return nil, err
	}
	status := d.Status
	if status == "" {
		status = DefaultTaskStatus
	}

	created, err := s.repo.CreateTask(ctx, &entities.Task{
		ClientID:    actor.ClientID,
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		Status:      status,
		DueDate:     d.DueDate,
		LeadID:      d.LeadID,
		AssignedTo:  assignee,
		CreatedBy:   &actor.ID,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("task created", zap.Uint64("task_id", created.ID), zap.Uint64("user_id", actor.ID))
	return created, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, id uint64, d dto.UpdateTaskDTO, rawBody []byte) (*entities.Task, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	fields, err := dto.PresentFields(rawBody)
	if err != nil {
		return nil, err
	}
	task, err := s.loadAccessible(ctx, actor, id, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	if fields.Has("title") && d.Title.Valid {
		task.Title = strings.TrimSpace(d.Title.String)
	}
	if fields.Has("description") {
		task.Description = d.Description.String
	}
	if fields.Has("status") && d.Status.Valid {
		task.Status = d.Status.String
	}
	if fields.Has("due_date") {
		task.DueDate = d.DueDate.Ptr()
	}
	if fields.Has("lead_id") {
		task.LeadID = d.LeadID.Ptr()
	}
	if fields.Has("assigned_to") {
		if !d.AssignedTo.Valid {
			return nil, apperrors.NewValidationError("a task must stay assigned", nil)
		}
		if err := s.checkAssignee(ctx, actor, d.AssignedTo.Uint64); err != nil {
			return nil, err
		}
		task.AssignedTo = d.AssignedTo.Ptr()
	}

	return s.repo.UpdateTask(ctx, task)
}

func (s *TaskService) DeleteTask(ctx context.Context, id uint64) error {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return err
	}
	if _, err := s.loadAccessible(ctx, actor, id, authz.ActionDelete); err != nil {
		return err
	}
	return s.repo.DeleteTask(ctx, id)
}

func (s *TaskService) checkAssignee(ctx context.Context, actor *entities.User, assignee uint64) error {
	if !authz.CanAssignLead(actor, assignee) {
		return apperrors.ErrForbidden
	}
	if assignee == actor.ID {
		return nil
	}
	user, err := s.userRepo.FindUser(ctx, assignee)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewValidationError("assigned user does not exist", nil)
		}
		return err
	}
	if user.ClientID != actor.ClientID {
		return apperrors.NewValidationError("assigned user does not exist", nil)
	}
	return nil
}

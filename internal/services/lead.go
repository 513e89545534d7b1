package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"crm-system/internal/authz"
	"crm-system/internal/dto"
	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/types"
	"crm-system/pkg/utils"
)

const DefaultLeadStatus = "new"

type LeadServiceInterface interface {
	GetLeads(ctx context.Context, filter types.Filter) ([]entities.Lead, uint64, error)
	FindLead(ctx context.Context, id uint64) (*entities.Lead, error)
	CreateLead(ctx context.Context, d dto.CreateLeadDTO) (*entities.Lead, error)
	UpdateLead(ctx context.Context, id uint64, d dto.UpdateLeadDTO, rawBody []byte) (*entities.Lead, error)
	UpdateStatus(ctx context.Context, id uint64, status string) (*entities.Lead, error)
	DeleteLead(ctx context.Context, id uint64) error
}

type LeadService struct {
	repo      repositories.LeadRepositoryInterface
	userRepo  repositories.UserRepositoryInterface
	reminders ReminderSyncInterface
	txManager repositories.TxManagerInterface
	logger    *zap.Logger
}

func NewLeadService(
	repo repositories.LeadRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	reminders ReminderSyncInterface,
	txManager repositories.TxManagerInterface,
	logger *zap.Logger,
) LeadServiceInterface {
	return &LeadService{
		repo:      repo,
		userRepo:  userRepo,
		reminders: reminders,
		txManager: txManager,
		logger:    logger,
	}
}

func (s *LeadService) GetLeads(ctx context.Context, filter types.Filter) ([]entities.Lead, uint64, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.GetLeads(ctx, authz.LeadScope(actor, "l"), filter)
}

func (s *LeadService) FindLead(ctx context.Context, id uint64) (*entities.Lead, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	return s.loadAccessible(ctx, actor, id, authz.ActionView)
}

// loadAccessible returns 404 for a missing lead or one in another tenant,
// 403 for an existing lead the actor may not touch.
func (s *LeadService) loadAccessible(ctx context.Context, actor *entities.User, id uint64, action string) (*entities.Lead, error) {
	lead, err := s.repo.FindLead(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if lead.ClientID != actor.ClientID {
		return nil, apperrors.ErrNotFound
	}
	if !authz.CanDo(actor, action, lead) {
		s.logger.Warn("lead access denied", zap.Uint64("lead_id", id), zap.Uint64("user_id", actor.ID),
			zap.String("role", string(actor.Role)), zap.String("action", action))
		return nil, apperrors.ErrForbidden
	}
	return lead, nil
}

func (s *LeadService) CreateLead(ctx context.Context, d dto.CreateLeadDTO) (*entities.Lead, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	assignee := d.AssignedTo
	if assignee == nil && actor.IsAgent() {
		assignee = &actor.ID
	}
	if err := s.checkAssignee(ctx, actor, assignee); err != nil {
		return nil, err
	}

	status := strings.TrimSpace(d.Status)
	if status == "" {
		status = DefaultLeadStatus
	}

	lead := &entities.Lead{
		ClientID:     actor.ClientID,
		CustomerID:   d.CustomerID,
		Name:         strings.TrimSpace(d.Name),
		Phone:        strings.TrimSpace(d.Phone),
		Email:        strings.TrimSpace(d.Email),
		Status:       status,
		Source:       strings.TrimSpace(d.Source),
		Notes:        d.Notes,
		CallbackDate: emptyToNil(d.CallbackDate),
		CallbackTime: padClock(emptyToNil(d.CallbackTime)),
		AssignedTo:   assignee,
		CreatedBy:    &actor.ID,
	}

	created, err := s.repo.CreateLead(ctx, nil, lead)
	if err != nil {
		return nil, err
	}
	s.logger.Info("lead created", zap.Uint64("lead_id", created.ID), zap.Uint64("user_id", actor.ID))

	s.reminders.OnLeadCreate(ctx, actor, created)
	return created, nil
}

func (s *LeadService) UpdateLead(ctx context.Context, id uint64, d dto.UpdateLeadDTO, rawBody []byte) (*entities.Lead, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	fields, err := dto.PresentFields(rawBody)
	if err != nil {
		return nil, err
	}

	lead, err := s.loadAccessible(ctx, actor, id, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	if fields.Has("name") {
		name := strings.TrimSpace(d.Name.String)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", nil)
		}
		lead.Name = name
	}
	if fields.Has("phone") {
		lead.Phone = strings.TrimSpace(d.Phone.String)
	}
	if fields.Has("email") {
		lead.Email = strings.TrimSpace(d.Email.String)
	}
	if fields.Has("status") {
		lead.Status = strings.TrimSpace(d.Status.String)
		if lead.Status == "" {
			lead.Status = DefaultLeadStatus
		}
	}
	if fields.Has("source") {
		lead.Source = strings.TrimSpace(d.Source.String)
	}
	if fields.Has("notes") {
		lead.Notes = d.Notes.String
	}
	if fields.Has("callback_date") {
		lead.CallbackDate = nullToPtr(d.CallbackDate.Valid, d.CallbackDate.String)
	}
	if fields.Has("callback_time") {
		lead.CallbackTime = padClock(nullToPtr(d.CallbackTime.Valid, d.CallbackTime.String))
	}
	if fields.Has("assigned_to") {
		var assignee *uint64
		if d.AssignedTo.Valid {
			assignee = &d.AssignedTo.Uint64
		}
		if err := s.checkAssignee(ctx, actor, assignee); err != nil {
			return nil, err
		}
		lead.AssignedTo = assignee
	}
	if fields.Has("customer_id") {
		lead.CustomerID = nil
		if d.CustomerID.Valid {
			lead.CustomerID = &d.CustomerID.Uint64
		}
	}

	updated, err := s.repo.UpdateLead(ctx, nil, lead)
	if err != nil {
		return nil, err
	}

	s.reminders.OnLeadUpdate(ctx, actor, fields, updated)
	return updated, nil
}

func (s *LeadService) UpdateStatus(ctx context.Context, id uint64, status string) (*entities.Lead, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadAccessible(ctx, actor, id, authz.ActionUpdate); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, strings.TrimSpace(status)); err != nil {
		return nil, err
	}
	return s.repo.FindLead(ctx, nil, id)
}

// DeleteLead removes the lead and its reminder atomically.
func (s *LeadService) DeleteLead(ctx context.Context, id uint64) error {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return err
	}
	if _, err := s.loadAccessible(ctx, actor, id, authz.ActionDelete); err != nil {
		return err
	}

	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.reminders.OnLeadDelete(ctx, tx, id); err != nil {
			return fmt.Errorf("remove reminder: %w", err)
		}
		return s.repo.DeleteLead(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("lead deleted", zap.Uint64("lead_id", id), zap.Uint64("user_id", actor.ID))
	return nil
}

// checkAssignee enforces the agent self-assignment rule and tenant membership.
func (s *LeadService) checkAssignee(ctx context.Context, actor *entities.User, assignee *uint64) error {
	if assignee == nil {
		if actor.IsAgent() {
			return apperrors.ErrForbidden
		}
		return nil
	}
	if !authz.CanAssignLead(actor, *assignee) {
		return apperrors.ErrForbidden
	}
	if *assignee == actor.ID {
		return nil
	}
	user, err := s.userRepo.FindUser(ctx, *assignee)
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

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	return utils.EmptyToNil(*s)
}

// padClock normalizes H:MM to HH:MM; stored callback times always carry two-digit hours.
func padClock(s *string) *string {
	if s == nil {
		return nil
	}
	if padded, ok := normalizeImportTime(*s); ok {
		return &padded
	}
	return s
}

func nullToPtr(valid bool, s string) *string {
	if !valid {
		return nil
	}
	return utils.EmptyToNil(s)
}

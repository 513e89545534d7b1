package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"crm-system/internal/authz"
	"crm-system/internal/dto"
	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/utils"
)

const DefaultEventDuration = 30 * time.Minute

type CalendarEventServiceInterface interface {
	GetEvents(ctx context.Context, from, to *time.Time) ([]entities.CalendarEvent, error)
	FindEvent(ctx context.Context, id uint64) (*entities.CalendarEvent, error)
	CreateEvent(ctx context.Context, d dto.CreateEventDTO) (*entities.CalendarEvent, error)
	UpdateEvent(ctx context.Context, id uint64, d dto.UpdateEventDTO, rawBody []byte) (*entities.CalendarEvent, error)
	DeleteEvent(ctx context.Context, id uint64) error
}

type CalendarEventService struct {
	repo     repositories.CalendarEventRepositoryInterface
	leadRepo repositories.LeadRepositoryInterface
	logger   *zap.Logger
}

func NewCalendarEventService(
	repo repositories.CalendarEventRepositoryInterface,
	leadRepo repositories.LeadRepositoryInterface,
	logger *zap.Logger,
) CalendarEventServiceInterface {
	return &CalendarEventService{repo: repo, leadRepo: leadRepo, logger: logger}
}

func (s *CalendarEventService) GetEvents(ctx context.Context, from, to *time.Time) ([]entities.CalendarEvent, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	if from != nil && to != nil && !to.After(*from) {
		return nil, apperrors.NewValidationError("'to' must be after 'from'", nil)
	}
	return s.repo.GetEvents(ctx, authz.EventScope(actor, "e"), from, to)
}

func (s *CalendarEventService) FindEvent(ctx context.Context, id uint64) (*entities.CalendarEvent, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	return s.loadAccessible(ctx, actor, id, authz.ActionView)
}

func (s *CalendarEventService) loadAccessible(ctx context.Context, actor *entities.User, id uint64, action string) (*entities.CalendarEvent, error) {
	event, err := s.repo.FindEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.ClientID != actor.ClientID {
		return nil, apperrors.ErrNotFound
	}
	if !authz.CanDo(actor, action, event) {
		return nil, apperrors.ErrForbidden
	}
	return event, nil
}

// CreateEvent stores a manual event. A reminder tied to a lead goes through
// the same upsert as callback reminders so a lead never holds two.
func (s *CalendarEventService) CreateEvent(ctx context.Context, d dto.CreateEventDTO) (*entities.CalendarEvent, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	if d.LeadID != nil {
		if err := s.checkLead(ctx, actor, *d.LeadID); err != nil {
			return nil, err
		}
	}

	eventType := d.EventType
	if eventType == "" {
		eventType = entities.EventTypeMeeting
	}
	start := d.StartTime.UTC()
	end := d.EndTime.UTC()
	if d.EndTime.IsZero() {
		end = start.Add(DefaultEventDuration)
	}
	advance := ReminderAdvanceNotice
	if d.AdvanceNotice != nil {
		advance = *d.AdvanceNotice
	}

	event := &entities.CalendarEvent{
		ClientID:      actor.ClientID,
		UserID:        actor.ID,
		LeadID:        d.LeadID,
		Title:         strings.TrimSpace(d.Title),
		Description:   d.Description,
		EventType:     eventType,
		StartTime:     start,
		EndTime:       end,
		AdvanceNotice: advance,
		IsActive:      true,
		CustomerName:  strings.TrimSpace(d.CustomerName),
	}

	var created *entities.CalendarEvent
	if event.IsReminder() && event.LeadID != nil {
		created, err = s.repo.UpsertReminder(ctx, nil, event)
	} else {
		created, err = s.repo.CreateEvent(ctx, nil, event)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("calendar event created", zap.Uint64("event_id", created.ID), zap.Uint64("user_id", actor.ID))
	return created, nil
}

func (s *CalendarEventService) UpdateEvent(ctx context.Context, id uint64, d dto.UpdateEventDTO, rawBody []byte) (*entities.CalendarEvent, error) {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	fields, err := dto.PresentFields(rawBody)
	if err != nil {
		return nil, err
	}
	event, err := s.loadAccessible(ctx, actor, id, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	if fields.Has("title") && d.Title.Valid {
		event.Title = strings.TrimSpace(d.Title.String)
	}
	if fields.Has("description") {
		event.Description = d.Description.String
	}
	if fields.Has("event_type") && d.EventType.Valid {
		if event.IsReminder() != (d.EventType.String == entities.EventTypeReminder) && event.LeadID != nil {
			return nil, apperrors.NewValidationError("the type of a lead reminder cannot be changed", nil)
		}
		event.EventType = d.EventType.String
	}
	if fields.Has("start_time") && d.StartTime.Valid {
		duration := event.EndTime.Sub(event.StartTime)
		event.StartTime = d.StartTime.Time.UTC()
		if !fields.Has("end_time") {
			event.EndTime = event.StartTime.Add(duration)
		}
	}
	if fields.Has("end_time") && d.EndTime.Valid {
		event.EndTime = d.EndTime.Time.UTC()
	}
	if event.EndTime.Before(event.StartTime) {
		return nil, apperrors.NewValidationError("end_time must not be before start_time", nil)
	}
	if fields.Has("advance_notice") && d.AdvanceNotice.Valid {
		if d.AdvanceNotice.Int < 0 {
			return nil, apperrors.NewValidationError("advance_notice must not be negative", nil)
		}
		event.AdvanceNotice = d.AdvanceNotice.Int
	}
	if fields.Has("is_active") && d.IsActive.Valid {
		event.IsActive = d.IsActive.Bool
	}
	if fields.Has("customer_name") {
		event.CustomerName = strings.TrimSpace(d.CustomerName.String)
	}
	if fields.HasAny("start_time", "advance_notice") {
		event.Notified = false
	}

	return s.repo.UpdateEvent(ctx, nil, event)
}

func (s *CalendarEventService) DeleteEvent(ctx context.Context, id uint64) error {
	actor, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return err
	}
	if _, err := s.loadAccessible(ctx, actor, id, authz.ActionDelete); err != nil {
		return err
	}
	if err := s.repo.DeleteEvent(ctx, nil, id); err != nil {
		return err
	}
	s.logger.Info("calendar event deleted", zap.Uint64("event_id", id), zap.Uint64("user_id", actor.ID))
	return nil
}

func (s *CalendarEventService) checkLead(ctx context.Context, actor *entities.User, leadID uint64) error {
	lead, err := s.leadRepo.FindLead(ctx, nil, leadID)
	if err != nil {
		return err
	}
	if lead.ClientID != actor.ClientID {
		return apperrors.ErrNotFound
	}
	if !authz.CanDo(actor, authz.ActionView, lead) {
		return apperrors.ErrForbidden
	}
	return nil
}

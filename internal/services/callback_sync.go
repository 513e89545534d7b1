package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"crm-system/internal/dto"
	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	"crm-system/pkg/customvalidator"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/metrics"
	"crm-system/pkg/utils"
)

const (
	// OrgUTCOffset is the organization's wall-clock offset. It is a constant
	// UTC+3 and deliberately ignores daylight saving.
	OrgUTCOffset = 3 * time.Hour

	ReminderDuration = 30 * time.Minute

	// Advance notice differs per entry point: single create/update vs import.
	ReminderAdvanceNotice = 15
	ImportAdvanceNotice   = 30
)

// CallbackToUTC converts an organization-local date (YYYY-MM-DD) and time
// (HH:MM) into an absolute UTC start, and the end 30 minutes later.
// Components are split and built explicitly so the host zone never applies.
func CallbackToUTC(date, hhmm string) (time.Time, time.Time, error) {
	date, hhmm = strings.TrimSpace(date), strings.TrimSpace(hhmm)
	if !customvalidator.IsYMD(date) {
		return time.Time{}, time.Time{}, apperrors.NewValidationError(fmt.Sprintf("invalid callback date %q", date), nil)
	}
	if !customvalidator.IsHHMM(hhmm) {
		return time.Time{}, time.Time{}, apperrors.NewValidationError(fmt.Sprintf("invalid callback time %q", hhmm), nil)
	}

	d := strings.Split(date, "-")
	t := strings.Split(hhmm, ":")
	year, _ := strconv.Atoi(d[0])
	month, _ := strconv.Atoi(d[1])
	day, _ := strconv.Atoi(d[2])
	hour, _ := strconv.Atoi(t[0])
	minute, _ := strconv.Atoi(t[1])

	wall := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	start := wall.Add(-OrgUTCOffset)
	return start, start.Add(ReminderDuration), nil
}

type BulkReminderResult struct {
	Created int
	Skipped int
	Failed  int
}

type ReminderSyncInterface interface {
	OnLeadCreate(ctx context.Context, actor *entities.User, lead *entities.Lead)
	OnLeadUpdate(ctx context.Context, actor *entities.User, fields dto.Fields, lead *entities.Lead)
	OnBulkImport(ctx context.Context, actor *entities.User, leads []entities.Lead) BulkReminderResult
	OnLeadDelete(ctx context.Context, tx pgx.Tx, leadID uint64) error
}

// ReminderSync keeps every lead's callback fields and its single reminder
// event consistent. Create, update and import failures are logged and never
// reach the lead write.
type ReminderSync struct {
	events  repositories.CalendarEventRepositoryInterface
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewReminderSync(events repositories.CalendarEventRepositoryInterface, m *metrics.Metrics, logger *zap.Logger) ReminderSyncInterface {
	return &ReminderSync{events: events, metrics: m, logger: logger}
}

func (s *ReminderSync) OnLeadCreate(ctx context.Context, actor *entities.User, lead *entities.Lead) {
	if !lead.HasCallback() {
		return
	}
	_, err := s.upsert(ctx, actor, lead, ReminderAdvanceNotice)
	s.metrics.RecordReminderSync("create", err)
	if err != nil {
		s.logger.Error("reminder create failed", zap.Uint64("lead_id", lead.ID), zap.Error(err))
	}
}

// OnLeadUpdate runs only when the request carried callback_date or
// callback_time. lead must already hold the merged, persisted values.
func (s *ReminderSync) OnLeadUpdate(ctx context.Context, actor *entities.User, fields dto.Fields, lead *entities.Lead) {
	if !fields.HasAny("callback_date", "callback_time") {
		return
	}
	err := s.reconcile(ctx, actor, lead)
	s.metrics.RecordReminderSync("update", err)
	if err != nil {
		s.logger.Error("reminder update failed", zap.Uint64("lead_id", lead.ID), zap.Error(err))
	}
}

func (s *ReminderSync) reconcile(ctx context.Context, actor *entities.User, lead *entities.Lead) error {
	existing, err := s.events.FindReminderByLead(ctx, nil, lead.ID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("find reminder: %w", err)
	}

	if lead.HasCallback() {
		if existing == nil {
			_, err = s.upsert(ctx, actor, lead, ReminderAdvanceNotice)
			return err
		}
		start, end, err := CallbackToUTC(*lead.CallbackDate, *lead.CallbackTime)
		if err != nil {
			return err
		}
		existing.Title, existing.Description = reminderText(lead)
		existing.StartTime = start
		existing.EndTime = end
		existing.AdvanceNotice = ReminderAdvanceNotice
		existing.IsActive = true
		existing.Notified = false
		existing.CustomerName = lead.Name
		existing.UserID = reminderOwner(actor, lead)
		_, err = s.events.UpdateEvent(ctx, nil, existing)
		return err
	}

	if existing != nil {
		return s.events.DeleteEvent(ctx, nil, existing.ID)
	}
	return nil
}

func (s *ReminderSync) OnBulkImport(ctx context.Context, actor *entities.User, leads []entities.Lead) BulkReminderResult {
	var res BulkReminderResult
	for i := range leads {
		lead := &leads[i]
		if !lead.HasCallback() {
			res.Skipped++
			continue
		}
		_, err := s.upsert(ctx, actor, lead, ImportAdvanceNotice)
		s.metrics.RecordReminderSync("import", err)
		if err != nil {
			res.Failed++
			s.logger.Warn("reminder import failed", zap.Uint64("lead_id", lead.ID), zap.Error(err))
			continue
		}
		res.Created++
	}
	return res
}

// OnLeadDelete removes the lead's reminder inside the caller's transaction.
func (s *ReminderSync) OnLeadDelete(ctx context.Context, tx pgx.Tx, leadID uint64) error {
	n, err := s.events.DeleteReminderByLead(ctx, tx, leadID)
	s.metrics.RecordReminderSync("delete", err)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Debug("reminder removed with lead", zap.Uint64("lead_id", leadID))
	}
	return nil
}

func (s *ReminderSync) upsert(ctx context.Context, actor *entities.User, lead *entities.Lead, advance int) (*entities.CalendarEvent, error) {
	start, end, err := CallbackToUTC(utils.SafeDeref(lead.CallbackDate), utils.SafeDeref(lead.CallbackTime))
	if err != nil {
		return nil, err
	}
	title, description := reminderText(lead)
	leadID := lead.ID
	return s.events.UpsertReminder(ctx, nil, &entities.CalendarEvent{
		ClientID:      lead.ClientID,
		UserID:        reminderOwner(actor, lead),
		LeadID:        &leadID,
		Title:         title,
		Description:   description,
		EventType:     entities.EventTypeReminder,
		StartTime:     start,
		EndTime:       end,
		AdvanceNotice: advance,
		IsActive:      true,
		Notified:      false,
		CustomerName:  lead.Name,
	})
}

// reminderOwner is the assigned agent, falling back to whoever wrote the lead.
func reminderOwner(actor *entities.User, lead *entities.Lead) uint64 {
	if lead.AssignedTo != nil && *lead.AssignedTo != 0 {
		return *lead.AssignedTo
	}
	if actor != nil {
		return actor.ID
	}
	return utils.SafeDeref(lead.CreatedBy)
}

func reminderText(lead *entities.Lead) (string, string) {
	title := "Callback — " + lead.Name
	var parts []string
	if lead.Phone != "" {
		parts = append(parts, "Phone: "+lead.Phone)
	}
	if strings.TrimSpace(lead.Notes) != "" {
		parts = append(parts, "Notes: "+strings.TrimSpace(lead.Notes))
	}
	return title, strings.Join(parts, "\n")
}

package repositories

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"crm-system/internal/entities"
	apperrors "crm-system/pkg/errors"
)

const eventSelectFields = "e.id, e.client_id, e.user_id, e.lead_id, e.title, e.description, e.event_type, " +
	"e.start_time, e.end_time, e.advance_notice, e.is_active, e.notified, e.customer_name, e.created_at, e.updated_at"

type CalendarEventRepositoryInterface interface {
	GetEvents(ctx context.Context, scope sq.Sqlizer, from, to *time.Time) ([]entities.CalendarEvent, error)
	FindEvent(ctx context.Context, id uint64) (*entities.CalendarEvent, error)
	FindReminderByLead(ctx context.Context, tx pgx.Tx, leadID uint64) (*entities.CalendarEvent, error)
	CreateEvent(ctx context.Context, tx pgx.Tx, event *entities.CalendarEvent) (*entities.CalendarEvent, error)
	UpsertReminder(ctx context.Context, tx pgx.Tx, event *entities.CalendarEvent) (*entities.CalendarEvent, error)
	UpdateEvent(ctx context.Context, tx pgx.Tx, event *entities.CalendarEvent) (*entities.CalendarEvent, error)
	DeleteEvent(ctx context.Context, tx pgx.Tx, id uint64) error
	DeleteReminderByLead(ctx context.Context, tx pgx.Tx, leadID uint64) (int64, error)
	DueReminders(ctx context.Context, now time.Time, limit int) ([]entities.CalendarEvent, error)
	MarkNotified(ctx context.Context, id uint64) error
	DeleteOrphanReminders(ctx context.Context) (int64, error)
}

type CalendarEventRepository struct {
	storage *pgxpool.Pool
	logger  *zap.Logger
}

func NewCalendarEventRepository(storage *pgxpool.Pool, logger *zap.Logger) CalendarEventRepositoryInterface {
	return &CalendarEventRepository{storage: storage, logger: logger}
}

func scanEvent(row pgx.Row) (*entities.CalendarEvent, error) {
	var e entities.CalendarEvent
	err := row.Scan(
		&e.ID, &e.ClientID, &e.UserID, &e.LeadID, &e.Title, &e.Description, &e.EventType,
		&e.StartTime, &e.EndTime, &e.AdvanceNotice, &e.IsActive, &e.Notified, &e.CustomerName,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	e.StartTime = e.StartTime.UTC()
	e.EndTime = e.EndTime.UTC()
	return &e, nil
}

func collectEvents(rows pgx.Rows) ([]entities.CalendarEvent, error) {
	defer rows.Close()
	events := make([]entities.CalendarEvent, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (r *CalendarEventRepository) GetEvents(ctx context.Context, scope sq.Sqlizer, from, to *time.Time) ([]entities.CalendarEvent, error) {
	q := psql.Select(eventSelectFields).From("calendar_events e").Where(scope).OrderBy("e.start_time ASC")
	if from != nil {
		q = q.Where(sq.GtOrEq{"e.start_time": *from})
	}
	if to != nil {
		q = q.Where(sq.Lt{"e.start_time": *to})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return collectEvents(rows)
}

func (r *CalendarEventRepository) FindEvent(ctx context.Context, id uint64) (*entities.CalendarEvent, error) {
	query := fmt.Sprintf("SELECT %s FROM calendar_events e WHERE e.id = $1", eventSelectFields)
	return scanEvent(r.storage.QueryRow(ctx, query, id))
}

// FindReminderByLead looks the reminder up by lead id regardless of owner.
func (r *CalendarEventRepository) FindReminderByLead(ctx context.Context, tx pgx.Tx, leadID uint64) (*entities.CalendarEvent, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM calendar_events e WHERE e.lead_id = $1 AND e.event_type = $2 ORDER BY e.id LIMIT 1",
		eventSelectFields)
	return scanEvent(pick(r.storage, tx).QueryRow(ctx, query, leadID, entities.EventTypeReminder))
}

func (r *CalendarEventRepository) CreateEvent(ctx context.Context, tx pgx.Tx, event *entities.CalendarEvent) (*entities.CalendarEvent, error) {
	query := fmt.Sprintf(`
		INSERT INTO calendar_events AS e (client_id, user_id, lead_id, title, description, event_type,
			start_time, end_time, advance_notice, is_active, notified, customer_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING %s`, eventSelectFields)
	created, err := scanEvent(pick(r.storage, tx).QueryRow(ctx, query, eventArgs(event)...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewConflictError("lead already has a reminder", err)
		}
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return created, nil
}

// UpsertReminder inserts the lead's reminder or, when one already exists,
// rewrites it in place. The conflict target is the partial unique index on
// calendar_events(lead_id) for reminders, so concurrent writers end with one row.
func (r *CalendarEventRepository) UpsertReminder(ctx context.Context, tx pgx.Tx, event *entities.CalendarEvent) (*entities.CalendarEvent, error) {
	if event.LeadID == nil {
		return nil, apperrors.NewValidationError("reminder requires a lead id", nil)
	}
	query := fmt.Sprintf(`
		INSERT INTO calendar_events AS e (client_id, user_id, lead_id, title, description, event_type,
			start_time, end_time, advance_notice, is_active, notified, customer_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (lead_id) WHERE event_type = 'reminder' DO UPDATE SET
			user_id = EXCLUDED.user_id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			advance_notice = EXCLUDED.advance_notice,
			is_active = TRUE,
			notified = FALSE,
			customer_name = EXCLUDED.customer_name,
			updated_at = NOW()
		RETURNING %s`, eventSelectFields)
	event.EventType = entities.EventTypeReminder
	saved, err := scanEvent(pick(r.storage, tx).QueryRow(ctx, query, eventArgs(event)...))
	if err != nil {
		return nil, fmt.Errorf("upsert reminder for lead %d: %w", *event.LeadID, err)
	}
	return saved, nil
}

func (r *CalendarEventRepository) UpdateEvent(ctx context.Context, tx pgx.Tx, event *entities.CalendarEvent) (*entities.CalendarEvent, error) {
	query := fmt.Sprintf(`
		UPDATE calendar_events AS e SET title = $1, description = $2, event_type = $3, start_time = $4,
			end_time = $5, advance_notice = $6, is_active = $7, notified = $8, customer_name = $9,
			user_id = $10, updated_at = NOW()
		WHERE e.id = $11
		RETURNING %s`, eventSelectFields)
	updated, err := scanEvent(pick(r.storage, tx).QueryRow(ctx, query,
		event.Title, event.Description, event.EventType, event.StartTime.UTC(),
		event.EndTime.UTC(), event.AdvanceNotice, event.IsActive, event.Notified, event.CustomerName,
		event.UserID, event.ID,
	))
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *CalendarEventRepository) DeleteEvent(ctx context.Context, tx pgx.Tx, id uint64) error {
	tag, err := pick(r.storage, tx).Exec(ctx, "DELETE FROM calendar_events WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *CalendarEventRepository) DeleteReminderByLead(ctx context.Context, tx pgx.Tx, leadID uint64) (int64, error) {
	tag, err := pick(r.storage, tx).Exec(ctx,
		"DELETE FROM calendar_events WHERE lead_id = $1 AND event_type = $2", leadID, entities.EventTypeReminder)
	if err != nil {
		return 0, fmt.Errorf("delete reminder for lead %d: %w", leadID, err)
	}
	return tag.RowsAffected(), nil
}

// DueReminders returns active, not yet notified reminders whose notice window has opened.
func (r *CalendarEventRepository) DueReminders(ctx context.Context, now time.Time, limit int) ([]entities.CalendarEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM calendar_events e
		WHERE e.event_type = $1 AND e.is_active AND NOT e.notified
			AND e.start_time - make_interval(mins => e.advance_notice) <= $2
		ORDER BY e.start_time
		LIMIT $3`, eventSelectFields)
	rows, err := r.storage.Query(ctx, query, entities.EventTypeReminder, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query due reminders: %w", err)
	}
	return collectEvents(rows)
}

func (r *CalendarEventRepository) MarkNotified(ctx context.Context, id uint64) error {
	_, err := r.storage.Exec(ctx, "UPDATE calendar_events SET notified = TRUE, updated_at = NOW() WHERE id = $1", id)
	return err
}

func (r *CalendarEventRepository) DeleteOrphanReminders(ctx context.Context) (int64, error) {
	tag, err := r.storage.Exec(ctx, `
		DELETE FROM calendar_events e
		WHERE e.event_type = $1 AND e.lead_id IS NOT NULL
			AND NOT EXISTS (SELECT 1 FROM leads l WHERE l.id = e.lead_id)`, entities.EventTypeReminder)
	if err != nil {
		return 0, fmt.Errorf("delete orphan reminders: %w", err)
	}
	return tag.RowsAffected(), nil
}

func eventArgs(e *entities.CalendarEvent) []interface{} {
	return []interface{}{
		e.ClientID, e.UserID, e.LeadID, e.Title, e.Description, e.EventType,
		e.StartTime.UTC(), e.EndTime.UTC(), e.AdvanceNotice, e.IsActive, e.Notified, e.CustomerName,
	}
}

package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"crm-system/internal/entities"
	"crm-system/internal/repositories"
	"crm-system/internal/services"
	apperrors "crm-system/pkg/errors"
	"crm-system/pkg/mailer"
	"crm-system/pkg/metrics"
)

const reminderBatchSize = 200

// ReminderNotifier alerts owners of reminders whose notice window has opened.
// A reminder is marked notified only after the mail went out.
type ReminderNotifier struct {
	events  repositories.CalendarEventRepositoryInterface
	users   repositories.UserRepositoryInterface
	mailer  mailer.MailerInterface
	metrics *metrics.Metrics
	now     func() time.Time
	logger  *zap.Logger
}

func NewReminderNotifier(
	events repositories.CalendarEventRepositoryInterface,
	users repositories.UserRepositoryInterface,
	m mailer.MailerInterface,
	met *metrics.Metrics,
	now func() time.Time,
	logger *zap.Logger,
) *ReminderNotifier {
	if now == nil {
		now = time.Now
	}
	return &ReminderNotifier{events: events, users: users, mailer: m, metrics: met, now: now, logger: logger}
}

func (n *ReminderNotifier) Name() string { return "reminder_notifier" }

func (n *ReminderNotifier) Run(ctx context.Context) (int, error) {
	due, err := n.events.DueReminders(ctx, n.now().UTC(), reminderBatchSize)
	if err != nil {
		return 0, fmt.Errorf("load due reminders: %w", err)
	}

	sent := 0
	for i := range due {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		event := &due[i]
		channel, err := n.notify(ctx, event)
		if err != nil {
			n.logger.Warn("reminder not delivered, will retry",
				zap.Uint64("event_id", event.ID), zap.Uint64("user_id", event.UserID), zap.Error(err))
			continue
		}
		if err := n.events.MarkNotified(ctx, event.ID); err != nil {
			n.logger.Error("could not mark reminder notified", zap.Uint64("event_id", event.ID), zap.Error(err))
			continue
		}
		n.metrics.RecordReminderNotified(channel)
		sent++
	}
	return sent, nil
}

// notify returns the channel used. An owner that no longer exists or has no
// address only gets a log line, so the reminder does not fire forever.
func (n *ReminderNotifier) notify(ctx context.Context, event *entities.CalendarEvent) (string, error) {
	owner, err := n.users.FindUser(ctx, event.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			n.logger.Info("reminder owner gone", zap.Uint64("event_id", event.ID), zap.Uint64("user_id", event.UserID))
			return "log", nil
		}
		return "", err
	}
	if !n.mailer.Enabled() || strings.TrimSpace(owner.Email) == "" {
		n.logger.Info("reminder due",
			zap.Uint64("event_id", event.ID), zap.Uint64("user_id", owner.ID), zap.String("title", event.Title))
		return "log", nil
	}
	if err := n.mailer.Send(ctx, reminderMessage(owner, event)); err != nil {
		return "", err
	}
	return "email", nil
}

func reminderMessage(owner *entities.User, event *entities.CalendarEvent) mailer.Message {
	local := event.StartTime.UTC().Add(services.OrgUTCOffset)
	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", strings.TrimSpace(owner.Fio))
	fmt.Fprintf(&body, "%s is scheduled for %s.\n", event.Title, local.Format("2006-01-02 15:04"))
	if event.Description != "" {
		fmt.Fprintf(&body, "\n%s\n", event.Description)
	}
	return mailer.Message{
		To:      owner.Email,
		Subject: fmt.Sprintf("Reminder: %s at %s", event.Title, local.Format("15:04")),
		Body:    body.String(),
	}
}

package entities

import (
	"time"

	"crm-system/pkg/types"
)

const (
	EventTypeReminder = "reminder"
	EventTypeMeeting  = "meeting"
	EventTypeCall     = "call"
	EventTypeTask     = "task"
)

// CalendarEvent is the unified event row. Times are absolute UTC instants.
type CalendarEvent struct {
	ID            uint64    `json:"id" db:"id"`
	ClientID      uint64    `json:"client_id" db:"client_id"`
	UserID        uint64    `json:"user_id" db:"user_id"`
	LeadID        *uint64   `json:"lead_id" db:"lead_id"`
	Title         string    `json:"title" db:"title"`
	Description   string    `json:"description" db:"description"`
	EventType     string    `json:"event_type" db:"event_type"`
	StartTime     time.Time `json:"start_time" db:"start_time"`
	EndTime       time.Time `json:"end_time" db:"end_time"`
	AdvanceNotice int       `json:"advance_notice" db:"advance_notice"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	Notified      bool      `json:"notified" db:"notified"`
	CustomerName  string    `json:"customer_name" db:"customer_name"`

	types.BaseEntity
}

func (e *CalendarEvent) IsReminder() bool { return e.EventType == EventTypeReminder }

// NotifyAt is the instant the owner should be alerted.
func (e *CalendarEvent) NotifyAt() time.Time {
	return e.StartTime.Add(-time.Duration(e.AdvanceNotice) * time.Minute)
}

package dto

import (
	"time"

	"github.com/aarondl/null/v8"
)

type CreateEventDTO struct {
	Title         string    `json:"title" validate:"required,max=255"`
	Description   string    `json:"description"`
	EventType     string    `json:"event_type" validate:"omitempty,oneof=meeting call task reminder"`
	StartTime     time.Time `json:"start_time" validate:"required"`
	EndTime       time.Time `json:"end_time" validate:"omitempty,gtefield=StartTime"`
	AdvanceNotice *int      `json:"advance_notice" validate:"omitempty,min=0,max=10080"`
	LeadID        *uint64   `json:"lead_id"`
	CustomerName  string    `json:"customer_name"`
}

type UpdateEventDTO struct {
	Title         null.String `json:"title" validate:"omitempty,max=255"`
	Description   null.String `json:"description"`
	EventType     null.String `json:"event_type" validate:"omitempty,oneof=meeting call task reminder"`
	StartTime     null.Time   `json:"start_time"`
	EndTime       null.Time   `json:"end_time"`
	AdvanceNotice null.Int    `json:"advance_notice"`
	IsActive      null.Bool   `json:"is_active"`
	CustomerName  null.String `json:"customer_name"`
}

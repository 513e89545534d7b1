package dto

import (
	"time"

	"github.com/aarondl/null/v8"
)

type CreateTaskDTO struct {
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description"`
	Status      string     `json:"status" validate:"omitempty,oneof=open in_progress done cancelled"`
	DueDate     *time.Time `json:"due_date"`
	LeadID      *uint64    `json:"lead_id"`
	AssignedTo  *uint64    `json:"assigned_to"`
}

type UpdateTaskDTO struct {
	Title       null.String `json:"title" validate:"omitempty,max=255"`
	Description null.String `json:"description"`
	Status      null.String `json:"status" validate:"omitempty,oneof=open in_progress done cancelled"`
	DueDate     null.Time   `json:"due_date"`
	LeadID      null.Uint64 `json:"lead_id"`
	AssignedTo  null.Uint64 `json:"assigned_to"`
}

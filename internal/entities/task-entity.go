package entities

import (
	"time"

	"crm-system/pkg/types"
)

type Task struct {
	ID          uint64     `json:"id" db:"id"`
	ClientID    uint64     `json:"client_id" db:"client_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Status      string     `json:"status" db:"status"`
	DueDate     *time.Time `json:"due_date" db:"due_date"`
	LeadID      *uint64    `json:"lead_id" db:"lead_id"`
	AssignedTo  *uint64    `json:"assigned_to" db:"assigned_to"`
	CreatedBy   *uint64    `json:"created_by" db:"created_by"`

	types.BaseEntity
}

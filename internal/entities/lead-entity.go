package entities

import (
	"crm-system/pkg/types"
)

type Lead struct {
	ID         uint64  `json:"id" db:"id"`
	ClientID   uint64  `json:"client_id" db:"client_id"`
	CustomerID *uint64 `json:"customer_id" db:"customer_id"`
	Name       string  `json:"name" db:"name"`
	Phone      string  `json:"phone" db:"phone"`
	Email      string  `json:"email" db:"email"`
	Status     string  `json:"status" db:"status"`
	Source     string  `json:"source" db:"source"`
	Notes      string  `json:"notes" db:"notes"`

	// CallbackDate is YYYY-MM-DD, CallbackTime is HH:MM in the organization's local time.
	CallbackDate *string `json:"callback_date" db:"callback_date"`
	CallbackTime *string `json:"callback_time" db:"callback_time"`

	AssignedTo *uint64 `json:"assigned_to" db:"assigned_to"`
	CreatedBy  *uint64 `json:"created_by" db:"created_by"`

	AssignedToName *string `json:"assigned_to_name,omitempty" db:"-"`

	types.BaseEntity
}

// HasCallback reports whether both callback fields carry a value.
func (l *Lead) HasCallback() bool {
	return l.CallbackDate != nil && *l.CallbackDate != "" &&
		l.CallbackTime != nil && *l.CallbackTime != ""
}

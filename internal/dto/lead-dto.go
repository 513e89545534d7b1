package dto

import "github.com/aarondl/null/v8"

type CreateLeadDTO struct {
	Name         string  `json:"name" validate:"required,max=255"`
	Phone        string  `json:"phone" validate:"omitempty,max=50"`
	Email        string  `json:"email" validate:"omitempty,email"`
	Status       string  `json:"status" validate:"omitempty,max=50"`
	Source       string  `json:"source" validate:"omitempty,max=100"`
	Notes        string  `json:"notes"`
	CallbackDate *string `json:"callback_date" validate:"omitempty,ymd"`
	CallbackTime *string `json:"callback_time" validate:"omitempty,hhmm"`
	AssignedTo   *uint64 `json:"assigned_to"`
	CustomerID   *uint64 `json:"customer_id"`
}

// UpdateLeadDTO is a partial update; see Fields for key presence.
type UpdateLeadDTO struct {
	Name         null.String `json:"name" validate:"omitempty,max=255"`
	Phone        null.String `json:"phone" validate:"omitempty,max=50"`
	Email        null.String `json:"email" validate:"omitempty,email"`
	Status       null.String `json:"status" validate:"omitempty,max=50"`
	Source       null.String `json:"source" validate:"omitempty,max=100"`
	Notes        null.String `json:"notes"`
	CallbackDate null.String `json:"callback_date" validate:"omitempty,ymd"`
	CallbackTime null.String `json:"callback_time" validate:"omitempty,hhmm"`
	AssignedTo   null.Uint64 `json:"assigned_to"`
	CustomerID   null.Uint64 `json:"customer_id"`
}

type UpdateLeadStatusDTO struct {
	Status string `json:"status" validate:"required,max=50"`
}

package dto

import "github.com/aarondl/null/v8"

type CreateUserDTO struct {
	Fio       string  `json:"fio" validate:"required,max=255"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=6,max=72"`
	Role      string  `json:"role" validate:"required,crm_role"`
	ManagerID *uint64 `json:"manager_id"`
}

type UpdateUserDTO struct {
	Fio       null.String `json:"fio" validate:"omitempty,max=255"`
	Email     null.String `json:"email" validate:"omitempty,email"`
	Password  null.String `json:"password" validate:"omitempty,min=6,max=72"`
	Role      null.String `json:"role" validate:"omitempty,crm_role"`
	ManagerID null.Uint64 `json:"manager_id"`
	IsActive  null.Bool   `json:"is_active"`
}

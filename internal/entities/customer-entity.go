package entities

import "crm-system/pkg/types"

type Customer struct {
	ID        uint64  `json:"id" db:"id"`
	ClientID  uint64  `json:"client_id" db:"client_id"`
	Name      string  `json:"name" db:"name"`
	Phone     string  `json:"phone" db:"phone"`
	Email     string  `json:"email" db:"email"`
	Notes     string  `json:"notes" db:"notes"`
	CreatedBy *uint64 `json:"created_by" db:"created_by"`

	types.BaseEntity
}

package entities

import (
	"crm-system/pkg/types"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleAgent   Role = "agent"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleAgent:
		return true
	}
	return false
}

type User struct {
	ID        uint64  `json:"id" db:"id"`
	ClientID  uint64  `json:"client_id" db:"client_id"`
	ManagerID *uint64 `json:"manager_id" db:"manager_id"`
	Fio       string  `json:"fio" db:"fio"`
	Email     string  `json:"email" db:"email"`
	Password  string  `json:"-" db:"password"`
	Role      Role    `json:"role" db:"role"`
	IsActive  bool    `json:"is_active" db:"is_active"`

	types.BaseEntity
	types.SoftDelete
}

func (u *User) IsAdmin() bool   { return u != nil && u.Role == RoleAdmin }
func (u *User) IsManager() bool { return u != nil && u.Role == RoleManager }
func (u *User) IsAgent() bool   { return u != nil && u.Role == RoleAgent }

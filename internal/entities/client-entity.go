package entities

import "time"

// Client is a tenant. Every user, lead and event belongs to exactly one.
type Client struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

package entities

import "time"

type AttendanceRecord struct {
	ID         uint64     `json:"id" db:"id"`
	UserID     uint64     `json:"user_id" db:"user_id"`
	ClientID   uint64     `json:"client_id" db:"client_id"`
	Date       time.Time  `json:"date" db:"date"`
	ClockIn    time.Time  `json:"clock_in" db:"clock_in"`
	ClockOut   *time.Time `json:"clock_out" db:"clock_out"`
	TotalHours *float64   `json:"total_hours" db:"total_hours"`
	Notes      string     `json:"notes" db:"notes"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

func (a *AttendanceRecord) IsOpen() bool { return a.ClockOut == nil }

package dto

type ClockDTO struct {
	Notes string `json:"notes" validate:"max=1000"`
}

type AttendanceQuery struct {
	From   string  `query:"from" validate:"omitempty,ymd"`
	To     string  `query:"to" validate:"omitempty,ymd"`
	UserID *uint64 `query:"user_id"`
	Format string  `query:"format" validate:"omitempty,oneof=xlsx pdf"`
}

package dto

type CreateCustomerDTO struct {
	Name  string `json:"name" validate:"required,max=255"`
	Phone string `json:"phone" validate:"omitempty,max=50"`
	Email string `json:"email" validate:"omitempty,email"`
	Notes string `json:"notes"`
}

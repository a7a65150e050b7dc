package user

import "github.com/felix-phuctran/base-be-go/internal/domain"

// CreateUserRequest represents the input for creating a new user.
type CreateUserRequest struct {
	DisplayName string  `json:"display_name" form:"display_name" binding:"required,min=2,max=100"`
	Email       string  `json:"email" form:"email" binding:"required,email"`
	Password    string  `json:"password" form:"password" binding:"required,min=8,max=72"`
	PhoneNumber *string `json:"phone_number" form:"phone_number" binding:"omitempty,max=32"`
}

func (r CreateUserRequest) input() domain.CreateUserInput {
	return domain.CreateUserInput{
		DisplayName: r.DisplayName,
		Email:       r.Email,
		Password:    r.Password,
		PhoneNumber: r.PhoneNumber,
	}
}

// BatchCreateRequest represents the input for creating several users in one
// transaction.
type BatchCreateRequest struct {
	Users []CreateUserRequest `json:"users" binding:"required,min=1,max=100,dive"`
}

package dto

import "github.com/ondutypro/onduty-api/internal/models"

// UpdateUserRequest patches a user profile. Role and email are immutable.
type UpdateUserRequest struct {
	Name string `json:"name" validate:"required"`
}

// UserQuery captures list filters for the users collection.
type UserQuery struct {
	Role   *models.UserRole
	Search string
	Limit  int
	Offset int
}

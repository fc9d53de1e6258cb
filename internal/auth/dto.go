package auth

import (
	"github.com/google/uuid"

	"github.com/nanumlink/nanumlink-backend/internal/users"
)

// LoginRequest carries credential input for any of the three roles.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	User         users.Summary `json:"user"`
}

// SignupRequest creates a member account under an existing organization.
type SignupRequest struct {
	Email    string    `json:"email" validate:"required,email"`
	Password string    `json:"password" validate:"required,min=8"`
	Name     string    `json:"name" validate:"required"`
	OrgID    uuid.UUID `json:"org_id" validate:"required"`
}

// SignupResponse is returned after account creation.
type SignupResponse struct {
	User users.Summary `json:"user"`
}

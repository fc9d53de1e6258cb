package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/nanumlink/nanumlink-backend/pkg/db/models"
	"github.com/nanumlink/nanumlink-backend/pkg/enums"
)

// Summary is the user shape returned to clients; the password hash never
// leaves the service layer.
type Summary struct {
	ID        uuid.UUID        `json:"id"`
	Email     string           `json:"email"`
	Name      string           `json:"name"`
	Role      enums.MemberRole `json:"role"`
	OrgID     *uuid.UUID       `json:"org_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// FromModel maps a persisted user onto the client-facing summary.
func FromModel(user *models.User) Summary {
	return Summary{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		OrgID:     user.OrgID,
		CreatedAt: user.CreatedAt,
	}
}

package organizations

import (
	"time"

	"github.com/google/uuid"

	"github.com/nanumlink/nanumlink-backend/pkg/enums"
)

// LicenseUpload carries the registration license document.
type LicenseUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// RegisterInput captures a new organization registration.
type RegisterInput struct {
	Type           enums.OrgType
	Name           string
	RegistrationNo string
	Representative string
	Phone          string
	Email          string
	Address        string
	PostalCode     *string
	License        *LicenseUpload
}

// ReviewInput captures an admin decision on a pending registration.
type ReviewInput struct {
	OrgID       uuid.UUID
	Approve     bool
	Reason      string
	ActorUserID uuid.UUID
	ActorRole   string
}

// ListFilters describe the inputs supported by the admin organization list.
type ListFilters struct {
	Type           *enums.OrgType
	ApprovalStatus *enums.OrgApprovalStatus
	Query          string
}

// Summary exposes the fields returned in the admin review queue.
type Summary struct {
	ID             uuid.UUID               `json:"id"`
	Type           enums.OrgType           `json:"type"`
	Name           string                  `json:"name"`
	RegistrationNo string                  `json:"registration_no"`
	ApprovalStatus enums.OrgApprovalStatus `json:"approval_status"`
	CreatedAt      time.Time               `json:"created_at"`
}

// List wraps the paginated organizations plus the next page cursor.
type List struct {
	Organizations []Summary `json:"organizations"`
	NextCursor    string    `json:"next_cursor,omitempty"`
}

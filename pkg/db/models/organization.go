package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nanumlink/nanumlink-backend/pkg/enums"
)

// Organization is a registered donor business or recipient beneficiary.
// Registrations sit in an admin moderation queue until reviewed.
type Organization struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Type            enums.OrgType           `gorm:"column:type;type:org_type;not null" json:"type"`
	Name            string                  `gorm:"column:name;not null" json:"name"`
	RegistrationNo  string                  `gorm:"column:registration_no;not null" json:"registration_no"`
	Representative  string                  `gorm:"column:representative;not null" json:"representative"`
	Phone           string                  `gorm:"column:phone;not null" json:"phone"`
	Email           string                  `gorm:"column:email;not null" json:"email"`
	Address         string                  `gorm:"column:address;not null" json:"address"`
	PostalCode      *string                 `gorm:"column:postal_code" json:"postal_code,omitempty"`
	LicenseFileURL  *string                 `gorm:"column:license_file_url" json:"license_file_url,omitempty"`
	ApprovalStatus  enums.OrgApprovalStatus `gorm:"column:approval_status;type:org_approval_status;not null;default:'pending'" json:"approval_status"`
	RejectionReason *string                 `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	ReviewedAt      *time.Time              `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nanumlink/nanumlink-backend/pkg/enums"
)

// DonationMatch is a proposal linking one donation to one beneficiary.
// At most one row per (donation, beneficiary) pair is live at a time; a
// renewed proposal resets the existing row instead of inserting another.
//
// Receipt fields live here rather than in a separate table: issuing a receipt
// overwrites ReceiptFileURL and ReceiptIssuedAt (re-issue supersedes).
type DonationMatch struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DonationID       uuid.UUID         `gorm:"column:donation_id;type:uuid;not null;uniqueIndex:ux_donation_matches_pair,priority:1" json:"donation_id"`
	BeneficiaryOrgID uuid.UUID         `gorm:"column:beneficiary_org_id;type:uuid;not null;uniqueIndex:ux_donation_matches_pair,priority:2" json:"beneficiary_org_id"`
	Status           enums.MatchStatus `gorm:"column:status;type:match_status;not null;default:'proposed'" json:"status"`
	ProposedAt       time.Time         `gorm:"column:proposed_at;not null" json:"proposed_at"`
	RespondedAt      *time.Time        `gorm:"column:responded_at" json:"responded_at,omitempty"`
	ReceivedAt       *time.Time        `gorm:"column:received_at" json:"received_at,omitempty"`
	AcceptedQuantity *decimal.Decimal  `gorm:"column:accepted_quantity;type:numeric(14,3)" json:"accepted_quantity,omitempty"`
	AcceptedUnit     *string           `gorm:"column:accepted_unit" json:"accepted_unit,omitempty"`
	ResponseNotes    *string           `gorm:"column:response_notes" json:"response_notes,omitempty"`
	ReceiptIssued    bool              `gorm:"column:receipt_issued;not null;default:false" json:"receipt_issued"`
	ReceiptIssuedAt  *time.Time        `gorm:"column:receipt_issued_at" json:"receipt_issued_at,omitempty"`
	ReceiptFileURL   *string           `gorm:"column:receipt_file_url" json:"receipt_file_url,omitempty"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

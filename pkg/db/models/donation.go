package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nanumlink/nanumlink-backend/pkg/enums"
)

// Donation is one surplus-goods offer registered by a business.
//
// RemainingQuantity is a denormalized convenience value recomputable from the
// accepted matches; writes to it are advisory and must never gate the
// operations that maintain it.
type Donation struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BusinessOrgID     uuid.UUID            `gorm:"column:business_org_id;type:uuid;not null" json:"business_org_id"`
	Name              string               `gorm:"column:name;not null" json:"name"`
	Description       string               `gorm:"column:description;not null;default:''" json:"description"`
	Quantity          decimal.Decimal      `gorm:"column:quantity;type:numeric(14,3);not null" json:"quantity"`
	Unit              string               `gorm:"column:unit;not null" json:"unit"`
	PickupDeadline    time.Time            `gorm:"column:pickup_deadline;not null" json:"pickup_deadline"`
	PickupLocation    string               `gorm:"column:pickup_location;not null" json:"pickup_location"`
	PhotoURLs         []string             `gorm:"column:photo_urls;type:jsonb;serializer:json" json:"photo_urls,omitempty"`
	Status            enums.DonationStatus `gorm:"column:status;type:donation_status;not null;default:'pending_review'" json:"status"`
	RemainingQuantity *decimal.Decimal     `gorm:"column:remaining_quantity;type:numeric(14,3)" json:"remaining_quantity,omitempty"`
	CompletedAt       *time.Time           `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Matches           []DonationMatch      `gorm:"foreignKey:DonationID;constraint:OnDelete:CASCADE" json:"matches,omitempty"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

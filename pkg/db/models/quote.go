package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nanumlink/nanumlink-backend/pkg/enums"
)

// Quote is a priced offer issued against a donation. TotalAmount is always
// recomputed as unit price times donation quantity plus logistics cost and is
// never independently editable. Superseded quotes stay in their terminal
// state for audit.
type Quote struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DonationID    uuid.UUID         `gorm:"column:donation_id;type:uuid;not null" json:"donation_id"`
	UnitPrice     decimal.Decimal   `gorm:"column:unit_price;type:numeric(14,2);not null" json:"unit_price"`
	LogisticsCost decimal.Decimal   `gorm:"column:logistics_cost;type:numeric(14,2);not null" json:"logistics_cost"`
	TotalAmount   decimal.Decimal   `gorm:"column:total_amount;type:numeric(14,2);not null" json:"total_amount"`
	PickupDate    *time.Time        `gorm:"column:pickup_date" json:"pickup_date,omitempty"`
	PickupTime    *string           `gorm:"column:pickup_time" json:"pickup_time,omitempty"`
	Notes         *string           `gorm:"column:notes" json:"notes,omitempty"`
	Status        enums.QuoteStatus `gorm:"column:status;type:quote_status;not null;default:'pending'" json:"status"`
	RespondedAt   *time.Time        `gorm:"column:responded_at" json:"responded_at,omitempty"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

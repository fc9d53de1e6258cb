package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nanumlink/nanumlink-backend/pkg/enums"
)

// PickupSchedule is one confirmed pickup appointment for a donation.
// Readers always take the most recently created scheduled row.
type PickupSchedule struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DonationID uuid.UUID          `gorm:"column:donation_id;type:uuid;not null;index" json:"donation_id"`
	PickupDate time.Time          `gorm:"column:pickup_date;not null" json:"pickup_date"`
	TimeWindow string             `gorm:"column:time_window;not null" json:"time_window"`
	StaffName  string             `gorm:"column:staff_name;not null" json:"staff_name"`
	Vehicle    string             `gorm:"column:vehicle;not null" json:"vehicle"`
	Notes      *string            `gorm:"column:notes" json:"notes,omitempty"`
	Status     enums.PickupStatus `gorm:"column:status;type:pickup_status;not null;default:'scheduled'" json:"status"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

package pickups

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nanumlink/nanumlink-backend/pkg/db/models"
)

// Repository defines persistence operations for pickup schedules.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, schedule *models.PickupSchedule) (*models.PickupSchedule, error)
	// FindLatest returns the most recently created scheduled row for the
	// donation; earlier rows are never merged with it.
	FindLatest(ctx context.Context, donationID uuid.UUID) (*models.PickupSchedule, error)
	ListByDonation(ctx context.Context, donationID uuid.UUID) ([]models.PickupSchedule, error)
}

package pickups

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nanumlink/nanumlink-backend/pkg/db/models"
	"github.com/nanumlink/nanumlink-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a pickups repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, schedule *models.PickupSchedule) (*models.PickupSchedule, error) {
	if err := r.db.WithContext(ctx).Create(schedule).Error; err != nil {
		return nil, err
	}
	return schedule, nil
}

func (r *repository) FindLatest(ctx context.Context, donationID uuid.UUID) (*models.PickupSchedule, error) {
	var schedule models.PickupSchedule
	err := r.db.WithContext(ctx).
		Where("donation_id = ?", donationID).
		Where("status = ?", enums.PickupStatusScheduled).
		Order("created_at DESC").
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *repository) ListByDonation(ctx context.Context, donationID uuid.UUID) ([]models.PickupSchedule, error) {
	var rows []models.PickupSchedule
	err := r.db.WithContext(ctx).
		Where("donation_id = ?", donationID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

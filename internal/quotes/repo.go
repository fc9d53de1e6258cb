package quotes

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

// NewRepository builds a quotes repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, quote *models.Quote) (*models.Quote, error) {
	if err := r.db.WithContext(ctx).Create(quote).Error; err != nil {
		return nil, err
	}
	return quote, nil
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *repository) FindActive(ctx context.Context, donationID uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	err := r.db.WithContext(ctx).
		Where("donation_id = ?", donationID).
		Where("status IN ?", []enums.QuoteStatus{enums.QuoteStatusPending, enums.QuoteStatusAccepted}).
		Order("created_at DESC").
		First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *repository) ListByDonation(ctx context.Context, donationID uuid.UUID) ([]models.Quote, error) {
	var rows []models.Quote
	err := r.db.WithContext(ctx).
		Where("donation_id = ?", donationID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Quote{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CountAcceptedMatches(ctx context.Context, donationID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DonationMatch{}).
		Where("donation_id = ?", donationID).
		Where("status = ?", enums.MatchStatusAccepted).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) MarkMatchesQuoteSent(ctx context.Context, donationID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.DonationMatch{}).
		Where("donation_id = ?", donationID).
		Where("status = ?", enums.MatchStatusAccepted).
		Update("status", enums.MatchStatusQuoteSent).Error
}

func (r *repository) MarkMatchesAccepted(ctx context.Context, donationID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.DonationMatch{}).
		Where("donation_id = ?", donationID).
		Where("status = ?", enums.MatchStatusQuoteSent).
		Update("status", enums.MatchStatusAccepted).Error
}

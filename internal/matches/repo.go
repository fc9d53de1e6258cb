package matches

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nanumlink/nanumlink-backend/pkg/db/models"
	"github.com/nanumlink/nanumlink-backend/pkg/enums"
	"github.com/nanumlink/nanumlink-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a matches repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, match *models.DonationMatch) (*models.DonationMatch, error) {
	if err := r.db.WithContext(ctx).Create(match).Error; err != nil {
		return nil, err
	}
	return match, nil
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.DonationMatch, error) {
	var match models.DonationMatch
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&match).Error
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (r *repository) FindByPair(ctx context.Context, donationID, beneficiaryOrgID uuid.UUID) (*models.DonationMatch, error) {
	var match models.DonationMatch
	err := r.db.WithContext(ctx).
		Where("donation_id = ? AND beneficiary_org_id = ?", donationID, beneficiaryOrgID).
		First(&match).Error
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (r *repository) ListByDonation(ctx context.Context, donationID uuid.UUID) ([]models.DonationMatch, error) {
	var rows []models.DonationMatch
	err := r.db.WithContext(ctx).
		Where("donation_id = ?", donationID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type matchSummaryRecord struct {
	ID               uuid.UUID
	DonationID       uuid.UUID
	DonationName     string
	BusinessOrgName  string
	Quantity         decimal.Decimal
	Unit             string
	Status           enums.MatchStatus
	AcceptedQuantity *decimal.Decimal
	ProposedAt       time.Time
	CreatedAt        time.Time
}

func (r *repository) ListForBeneficiary(ctx context.Context, beneficiaryOrgID uuid.UUID, params pagination.Params, filters ListFilters) (*List, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	decodedCursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Table("donation_matches dm").
		Select(`dm.id, dm.donation_id, d.name AS donation_name, o.name AS business_org_name,
			d.quantity, d.unit, dm.status, dm.accepted_quantity, dm.proposed_at, dm.created_at`).
		Joins("JOIN donations d ON d.id = dm.donation_id").
		Joins("JOIN organizations o ON o.id = d.business_org_id").
		Where("dm.beneficiary_org_id = ?", beneficiaryOrgID)

	if filters.Status != nil {
		query = query.Where("dm.status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("dm.created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("dm.created_at <= ?", *filters.DateTo)
	}

	if decodedCursor != nil {
		query = query.Where(
			"(dm.created_at < ?) OR (dm.created_at = ? AND dm.id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID,
		)
	}

	query = query.Order("dm.created_at DESC").Order("dm.id DESC").Limit(limitWithBuffer)

	var records []matchSummaryRecord
	if err := query.Scan(&records).Error; err != nil {
		return nil, err
	}

	resultRows := records
	nextCursor := ""
	if len(records) > normalizedLimit {
		resultRows = records[:normalizedLimit]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]Summary, 0, len(resultRows))
	for _, record := range resultRows {
		summaries = append(summaries, Summary{
			ID:               record.ID,
			DonationID:       record.DonationID,
			DonationName:     record.DonationName,
			BusinessOrgName:  record.BusinessOrgName,
			Quantity:         record.Quantity,
			Unit:             record.Unit,
			Status:           record.Status,
			AcceptedQuantity: record.AcceptedQuantity,
			ProposedAt:       record.ProposedAt,
			CreatedAt:        record.CreatedAt,
		})
	}

	return &List{Matches: summaries, NextCursor: nextCursor}, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.DonationMatch{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) SumAllocated(ctx context.Context, donationID uuid.UUID, excludeMatchID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	query := r.db.WithContext(ctx).
		Model(&models.DonationMatch{}).
		Select("SUM(accepted_quantity)").
		Where("donation_id = ?", donationID).
		Where("status IN ?", []enums.MatchStatus{
			enums.MatchStatusAccepted,
			enums.MatchStatusQuoteSent,
			enums.MatchStatusReceived,
		})
	if excludeMatchID != uuid.Nil {
		query = query.Where("id <> ?", excludeMatchID)
	}
	if err := query.Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// ListDonationsAwaitingCompletion returns donations whose every live match
// has been confirmed received but whose own status never reached completed,
// typically because the optimistic completion write at receive time failed.
func (r *repository) ListDonationsAwaitingCompletion(ctx context.Context, limit int) ([]models.Donation, error) {
	var rows []models.Donation
	query := r.db.WithContext(ctx).
		Model(&models.Donation{}).
		Where("status NOT IN ?", []enums.DonationStatus{
			enums.DonationStatusCompleted,
			enums.DonationStatusRejected,
		}).
		Where("EXISTS (SELECT 1 FROM donation_matches dm WHERE dm.donation_id = donations.id AND dm.status = ?)",
			enums.MatchStatusReceived).
		Where("NOT EXISTS (SELECT 1 FROM donation_matches dm WHERE dm.donation_id = donations.id AND dm.status IN ?)",
			[]enums.MatchStatus{
				enums.MatchStatusProposed,
				enums.MatchStatusAccepted,
				enums.MatchStatusQuoteSent,
			}).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindDonationForUpdate(ctx context.Context, donationID uuid.UUID) (*models.Donation, error) {
	var donation models.Donation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", donationID).
		First(&donation).Error
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

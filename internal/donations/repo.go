package donations

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nanumlink/nanumlink-backend/pkg/db/models"
	"github.com/nanumlink/nanumlink-backend/pkg/enums"
	"github.com/nanumlink/nanumlink-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a donations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, donation *models.Donation) (*models.Donation, error) {
	if err := r.db.WithContext(ctx).Create(donation).Error; err != nil {
		return nil, err
	}
	return donation, nil
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	var donation models.Donation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&donation).Error
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

func (r *repository) FindWithMatches(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	var donation models.Donation
	err := r.db.WithContext(ctx).
		Preload("Matches").
		Where("id = ?", id).
		First(&donation).Error
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

type donationSummaryRecord struct {
	ID                uuid.UUID
	BusinessOrgID     uuid.UUID
	BusinessOrgName   string
	Name              string
	Quantity          decimal.Decimal
	Unit              string
	RemainingQuantity *decimal.Decimal
	PickupDeadline    time.Time
	Status            enums.DonationStatus
	MatchCount        int
	CreatedAt         time.Time
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*List, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	decodedCursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	selectColumns := []string{
		"d.id",
		"d.business_org_id",
		"o.name AS business_org_name",
		"d.name",
		"d.quantity",
		"d.unit",
		"d.remaining_quantity",
		"d.pickup_deadline",
		"d.status",
		"(SELECT COUNT(*) FROM donation_matches dm WHERE dm.donation_id = d.id) AS match_count",
		"d.created_at",
	}

	query := r.db.WithContext(ctx).
		Table("donations d").
		Select(strings.Join(selectColumns, ", ")).
		Joins("JOIN organizations o ON o.id = d.business_org_id")

	if filters.Status != nil {
		query = query.Where("d.status = ?", *filters.Status)
	}
	if filters.BusinessOrgID != nil {
		query = query.Where("d.business_org_id = ?", *filters.BusinessOrgID)
	}
	if filters.DateFrom != nil {
		query = query.Where("d.created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("d.created_at <= ?", *filters.DateTo)
	}
	if trimmed := strings.TrimSpace(filters.Query); trimmed != "" {
		pattern := "%" + strings.ToLower(trimmed) + "%"
		query = query.Where("LOWER(d.name) LIKE ? OR LOWER(o.name) LIKE ?", pattern, pattern)
	}

	if decodedCursor != nil {
		query = query.Where(
			"(d.created_at < ?) OR (d.created_at = ? AND d.id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID,
		)
	}

	query = query.Order("d.created_at DESC").Order("d.id DESC").Limit(limitWithBuffer)

	var records []donationSummaryRecord
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
			ID:                record.ID,
			BusinessOrgID:     record.BusinessOrgID,
			BusinessOrgName:   record.BusinessOrgName,
			Name:              record.Name,
			Quantity:          record.Quantity,
			Unit:              record.Unit,
			RemainingQuantity: record.RemainingQuantity,
			PickupDeadline:    record.PickupDeadline,
			Status:            record.Status,
			MatchCount:        record.MatchCount,
			CreatedAt:         record.CreatedAt,
		})
	}

	return &List{Donations: summaries, NextCursor: nextCursor}, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.DonationStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Donation{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Donation{}).
		Where("id = ?", id).
		Updates(updates).Error
}

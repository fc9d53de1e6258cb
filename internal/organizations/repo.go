package organizations

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nanumlink/nanumlink-backend/pkg/db/models"
	"github.com/nanumlink/nanumlink-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an organizations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, org *models.Organization) (*models.Organization, error) {
	if err := r.db.WithContext(ctx).Create(org).Error; err != nil {
		return nil, err
	}
	return org, nil
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) FindByRegistrationNo(ctx context.Context, registrationNo string) (*models.Organization, error) {
	var org models.Organization
	err := r.db.WithContext(ctx).
		Where("registration_no = ?", registrationNo).
		First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*List, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	decodedCursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Model(&models.Organization{})
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.ApprovalStatus != nil {
		query = query.Where("approval_status = ?", *filters.ApprovalStatus)
	}
	if trimmed := strings.TrimSpace(filters.Query); trimmed != "" {
		pattern := "%" + strings.ToLower(trimmed) + "%"
		query = query.Where("LOWER(name) LIKE ? OR registration_no LIKE ?", pattern, "%"+trimmed+"%")
	}
	if decodedCursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID,
		)
	}

	var rows []models.Organization
	if err := query.Order("created_at DESC, id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, err
	}

	resultRows := rows
	nextCursor := ""
	if len(rows) > normalizedLimit {
		resultRows = rows[:normalizedLimit]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]Summary, 0, len(resultRows))
	for _, row := range resultRows {
		summaries = append(summaries, Summary{
			ID:             row.ID,
			Type:           row.Type,
			Name:           row.Name,
			RegistrationNo: row.RegistrationNo,
			ApprovalStatus: row.ApprovalStatus,
			CreatedAt:      row.CreatedAt,
		})
	}

	return &List{Organizations: summaries, NextCursor: nextCursor}, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Organization{}).
		Where("id = ?", id).
		Updates(updates).Error
}

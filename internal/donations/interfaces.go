package donations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nanumlink/nanumlink-backend/pkg/db/models"
	"github.com/nanumlink/nanumlink-backend/pkg/enums"
	"github.com/nanumlink/nanumlink-backend/pkg/pagination"
)

// Repository defines persistence operations for donations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, donation *models.Donation) (*models.Donation, error)
	Find(ctx context.Context, id uuid.UUID) (*models.Donation, error)
	FindWithMatches(ctx context.Context, id uuid.UUID) (*models.Donation, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*List, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.DonationStatus) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

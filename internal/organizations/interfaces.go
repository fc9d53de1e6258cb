package organizations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nanumlink/nanumlink-backend/pkg/db/models"
	"github.com/nanumlink/nanumlink-backend/pkg/pagination"
)

// Repository defines persistence operations for organizations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, org *models.Organization) (*models.Organization, error)
	Find(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	FindByRegistrationNo(ctx context.Context, registrationNo string) (*models.Organization, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*List, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

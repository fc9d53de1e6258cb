package matches

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nanumlink/nanumlink-backend/pkg/db/models"
	"github.com/nanumlink/nanumlink-backend/pkg/pagination"
)

// Repository defines persistence operations for donation matches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, match *models.DonationMatch) (*models.DonationMatch, error)
	Find(ctx context.Context, id uuid.UUID) (*models.DonationMatch, error)
	FindByPair(ctx context.Context, donationID, beneficiaryOrgID uuid.UUID) (*models.DonationMatch, error)
	ListByDonation(ctx context.Context, donationID uuid.UUID) ([]models.DonationMatch, error)
	ListForBeneficiary(ctx context.Context, beneficiaryOrgID uuid.UUID, params pagination.Params, filters ListFilters) (*List, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	// SumAllocated totals accepted_quantity across live matches for a
	// donation, excluding the given match. Live means the status still holds
	// quantity against the donation's pool.
	SumAllocated(ctx context.Context, donationID uuid.UUID, excludeMatchID uuid.UUID) (decimal.Decimal, error)
	// FindDonationForUpdate loads the donation row under a row-level lock so
	// concurrent acceptances serialize on the same quantity pool.
	FindDonationForUpdate(ctx context.Context, donationID uuid.UUID) (*models.Donation, error)
	// ListDonationsAwaitingCompletion finds donations fully received by their
	// beneficiaries that never got the optimistic completion write.
	ListDonationsAwaitingCompletion(ctx context.Context, limit int) ([]models.Donation, error)
}

package quotes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nanumlink/nanumlink-backend/pkg/db/models"
)

// Repository defines persistence operations for quotes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, quote *models.Quote) (*models.Quote, error)
	Find(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	// FindActive returns the one quote still pending or accepted for the
	// donation, if any. Terminal quotes are audit history.
	FindActive(ctx context.Context, donationID uuid.UUID) (*models.Quote, error)
	ListByDonation(ctx context.Context, donationID uuid.UUID) ([]models.Quote, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CountAcceptedMatches(ctx context.Context, donationID uuid.UUID) (int64, error)
	// MarkMatchesQuoteSent moves the donation's accepted matches to
	// quote_sent; MarkMatchesAccepted is its inverse for quote rejection.
	MarkMatchesQuoteSent(ctx context.Context, donationID uuid.UUID) error
	MarkMatchesAccepted(ctx context.Context, donationID uuid.UUID) error
}

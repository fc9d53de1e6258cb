package donations

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nanumlink/nanumlink-backend/pkg/enums"
)

// PhotoUpload carries one donation photo received at registration.
type PhotoUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// CreateInput captures a business registering a surplus-goods offer.
type CreateInput struct {
	BusinessOrgID  uuid.UUID
	Name           string
	Description    string
	Quantity       decimal.Decimal
	Unit           string
	PickupDeadline time.Time
	PickupLocation string
	Photos         []PhotoUpload
	ActorUserID    uuid.UUID
	ActorRole      string
}

// ListFilters describe the inputs supported by the donation list.
type ListFilters struct {
	Status        *enums.DonationStatus
	BusinessOrgID *uuid.UUID
	DateFrom      *time.Time
	DateTo        *time.Time
	Query         string
}

// Summary exposes the fields returned in list views.
type Summary struct {
	ID                uuid.UUID            `json:"id"`
	BusinessOrgID     uuid.UUID            `json:"business_org_id"`
	BusinessOrgName   string               `json:"business_org_name"`
	Name              string               `json:"name"`
	Quantity          decimal.Decimal      `json:"quantity"`
	Unit              string               `json:"unit"`
	RemainingQuantity *decimal.Decimal     `json:"remaining_quantity,omitempty"`
	PickupDeadline    time.Time            `json:"pickup_deadline"`
	Status            enums.DonationStatus `json:"status"`
	MatchCount        int                  `json:"match_count"`
	CreatedAt         time.Time            `json:"created_at"`
}

// List wraps the paginated donations plus the next page cursor.
type List struct {
	Donations  []Summary `json:"donations"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

package quotes

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IssueInput captures an admin pricing a donation for the business.
type IssueInput struct {
	DonationID    uuid.UUID
	UnitPrice     decimal.Decimal
	LogisticsCost decimal.Decimal
	PickupDate    *time.Time
	PickupTime    *string
	Notes         *string
	ActorUserID   uuid.UUID
	ActorRole     string
}

// RespondInput captures the business accepting or rejecting a quote.
type RespondInput struct {
	QuoteID     uuid.UUID
	Accept      bool
	ActorUserID uuid.UUID
	ActorOrgID  uuid.UUID
	ActorRole   string
}

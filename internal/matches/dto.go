package matches

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nanumlink/nanumlink-backend/pkg/enums"
)

// ProposeInput captures an admin fanning a donation out to beneficiaries.
// Each beneficiary becomes an independent match row.
type ProposeInput struct {
	DonationID        uuid.UUID
	BeneficiaryOrgIDs []uuid.UUID
	ActorUserID       uuid.UUID
	ActorRole         string
}

// RespondInput captures a beneficiary accepting or rejecting a proposal.
type RespondInput struct {
	MatchID     uuid.UUID
	Accept      bool
	Quantity    *decimal.Decimal
	Unit        string
	Notes       *string
	ActorUserID uuid.UUID
	ActorOrgID  uuid.UUID
	ActorRole   string
}

// ConfirmReceiptInput captures a beneficiary confirming physical receipt.
type ConfirmReceiptInput struct {
	MatchID     uuid.UUID
	ActorUserID uuid.UUID
	ActorOrgID  uuid.UUID
	ActorRole   string
}

// ListFilters describe the inputs supported by the beneficiary match list.
type ListFilters struct {
	Status   *enums.MatchStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

// Summary exposes the aggregated fields returned in the beneficiary list.
type Summary struct {
	ID               uuid.UUID         `json:"id"`
	DonationID       uuid.UUID         `json:"donation_id"`
	DonationName     string            `json:"donation_name"`
	BusinessOrgName  string            `json:"business_org_name"`
	Quantity         decimal.Decimal   `json:"quantity"`
	Unit             string            `json:"unit"`
	Status           enums.MatchStatus `json:"status"`
	AcceptedQuantity *decimal.Decimal  `json:"accepted_quantity,omitempty"`
	ProposedAt       time.Time         `json:"proposed_at"`
	CreatedAt        time.Time         `json:"created_at"`
}

// List wraps the paginated matches plus the next page cursor.
type List struct {
	Matches    []Summary `json:"matches"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

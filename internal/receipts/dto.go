package receipts

import (
	"github.com/google/uuid"
)

// IssueInput carries an admin request to issue a donation receipt.
type IssueInput struct {
	MatchID uuid.UUID
	// ConfirmReissue must be set when the match already carries a receipt;
	// re-issuing overwrites the previous artifact.
	ConfirmReissue bool
	ActorUserID    uuid.UUID
	ActorRole      string
}

// Issued describes the receipt artifact after rendering and upload.
type Issued struct {
	MatchID        uuid.UUID `json:"match_id"`
	DonationID     uuid.UUID `json:"donation_id"`
	ReceiptNo      string    `json:"receipt_no"`
	ReceiptFileURL string    `json:"receipt_file_url"`
	Reissued       bool      `json:"reissued"`
}

// ReceiptIssuedEvent is the outbox payload for a receipt issuance.
type ReceiptIssuedEvent struct {
	MatchID          uuid.UUID `json:"match_id"`
	DonationID       uuid.UUID `json:"donation_id"`
	BeneficiaryOrgID uuid.UUID `json:"beneficiary_org_id"`
	ReceiptFileURL   string    `json:"receipt_file_url"`
	Reissued         bool      `json:"reissued"`
}

package enums

import "fmt"

// DonationStatus tracks the aggregate lifecycle of a donation.
type DonationStatus string

const (
	DonationStatusPendingReview   DonationStatus = "pending_review"
	DonationStatusMatched         DonationStatus = "matched"
	DonationStatusQuoteSent       DonationStatus = "quote_sent"
	DonationStatusQuoteAccepted   DonationStatus = "quote_accepted"
	DonationStatusPickupScheduled DonationStatus = "pickup_scheduled"
	DonationStatusCompleted       DonationStatus = "completed"
	DonationStatusRejected        DonationStatus = "rejected"
)

var validDonationStatuses = []DonationStatus{
	DonationStatusPendingReview,
	DonationStatusMatched,
	DonationStatusQuoteSent,
	DonationStatusQuoteAccepted,
	DonationStatusPickupScheduled,
	DonationStatusCompleted,
	DonationStatusRejected,
}

// String implements fmt.Stringer.
func (d DonationStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DonationStatus.
func (d DonationStatus) IsValid() bool {
	for _, candidate := range validDonationStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (d DonationStatus) IsTerminal() bool {
	return d == DonationStatusCompleted || d == DonationStatusRejected
}

// donationTransitions is the aggregate state machine. Quote rejection loops
// the donation back to pending_review, so the review queue is re-enterable.
var donationTransitions = map[DonationStatus][]DonationStatus{
	DonationStatusPendingReview:   {DonationStatusMatched, DonationStatusRejected, DonationStatusCompleted},
	DonationStatusMatched:         {DonationStatusQuoteSent, DonationStatusCompleted},
	DonationStatusQuoteSent:       {DonationStatusQuoteAccepted, DonationStatusPendingReview, DonationStatusCompleted},
	DonationStatusQuoteAccepted:   {DonationStatusPickupScheduled, DonationStatusCompleted},
	DonationStatusPickupScheduled: {DonationStatusCompleted},
}

// CanTransitionTo reports whether the aggregate state machine permits moving
// from the current status to the target status.
func (d DonationStatus) CanTransitionTo(target DonationStatus) bool {
	for _, allowed := range donationTransitions[d] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ParseDonationStatus converts raw input into a DonationStatus.
func ParseDonationStatus(value string) (DonationStatus, error) {
	for _, candidate := range validDonationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid donation status %q", value)
}

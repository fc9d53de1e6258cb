package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateDonation     OutboxAggregateType = "donation"
	AggregateMatch        OutboxAggregateType = "donation_match"
	AggregateQuote        OutboxAggregateType = "quote"
	AggregatePickup       OutboxAggregateType = "pickup_schedule"
	AggregateOrganization OutboxAggregateType = "organization"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateDonation,
	AggregateMatch,
	AggregateQuote,
	AggregatePickup,
	AggregateOrganization,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventDonationCreated      OutboxEventType = "donation_created"
	EventDonationStateChanged OutboxEventType = "donation_state_changed"
	EventDonationRejected     OutboxEventType = "donation_rejected"
	EventDonationCompleted    OutboxEventType = "donation_completed"
	EventMatchProposed        OutboxEventType = "match_proposed"
	EventMatchResponded       OutboxEventType = "match_responded"
	EventMatchReceived        OutboxEventType = "match_received"
	EventQuoteIssued          OutboxEventType = "quote_issued"
	EventQuoteResponded       OutboxEventType = "quote_responded"
	EventPickupScheduled      OutboxEventType = "pickup_scheduled"
	EventReceiptIssued        OutboxEventType = "receipt_issued"
	EventOrgRegistered        OutboxEventType = "organization_registered"
	EventOrgReviewed          OutboxEventType = "organization_reviewed"
	EventNotificationQueued   OutboxEventType = "notification_queued"
)

var validOutboxEventTypes = []OutboxEventType{
	EventDonationCreated,
	EventDonationStateChanged,
	EventDonationRejected,
	EventDonationCompleted,
	EventMatchProposed,
	EventMatchResponded,
	EventMatchReceived,
	EventQuoteIssued,
	EventQuoteResponded,
	EventPickupScheduled,
	EventReceiptIssued,
	EventOrgRegistered,
	EventOrgReviewed,
	EventNotificationQueued,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

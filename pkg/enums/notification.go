package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeMatchProposed   NotificationType = "match_proposed"
	NotificationTypeMatchResponded  NotificationType = "match_responded"
	NotificationTypeMatchReceived   NotificationType = "match_received"
	NotificationTypeQuoteIssued     NotificationType = "quote_issued"
	NotificationTypeQuoteResponded  NotificationType = "quote_responded"
	NotificationTypePickupScheduled NotificationType = "pickup_scheduled"
	NotificationTypeReceiptIssued   NotificationType = "receipt_issued"
	NotificationTypeOrgApproved     NotificationType = "organization_approved"
	NotificationTypeOrgRejected     NotificationType = "organization_rejected"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeMatchProposed,
	NotificationTypeMatchResponded,
	NotificationTypeMatchReceived,
	NotificationTypeQuoteIssued,
	NotificationTypeQuoteResponded,
	NotificationTypePickupScheduled,
	NotificationTypeReceiptIssued,
	NotificationTypeOrgApproved,
	NotificationTypeOrgRejected,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nanumlink/nanumlink-backend/pkg/db/models"
	"github.com/nanumlink/nanumlink-backend/pkg/enums"
	"github.com/nanumlink/nanumlink-backend/pkg/logger"
	"github.com/nanumlink/nanumlink-backend/pkg/outbox"
	"github.com/nanumlink/nanumlink-backend/pkg/outbox/idempotency"
)

const lifecycleNotificationConsumer = "lifecycle-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type donationLookup interface {
	Find(ctx context.Context, id uuid.UUID) (*models.Donation, error)
	FindWithMatches(ctx context.Context, id uuid.UUID) (*models.Donation, error)
}

// Consumer watches domain events and turns lifecycle transitions into
// in-app notifications for the affected organization.
type Consumer struct {
	repo         repository
	donations    donationLookup
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a lifecycle notification consumer.
func NewConsumer(repo repository, donations donationLookup, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if donations == nil {
		return nil, fmt.Errorf("donation lookup required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		donations:    donations,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	handler, ok := c.handlerFor(enums.OutboxEventType(eventType))
	if !ok {
		c.logg.Info(logCtx, "event carries no notification, skipping")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, lifecycleNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := handler(ctx, envelope.Data, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, lifecycleNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

type eventHandler func(ctx context.Context, data json.RawMessage, logCtx context.Context) error

func (c *Consumer) handlerFor(eventType enums.OutboxEventType) (eventHandler, bool) {
	switch eventType {
	case enums.EventMatchProposed:
		return c.handleMatchProposed, true
	case enums.EventMatchResponded:
		return c.handleMatchResponded, true
	case enums.EventMatchReceived:
		return c.handleMatchReceived, true
	case enums.EventQuoteIssued:
		return c.handleQuoteIssued, true
	case enums.EventQuoteResponded:
		return c.handleQuoteResponded, true
	case enums.EventPickupScheduled:
		return c.handlePickupScheduled, true
	case enums.EventReceiptIssued:
		return c.handleReceiptIssued, true
	case enums.EventOrgReviewed:
		return c.handleOrganizationReviewed, true
	default:
		return nil, false
	}
}

type matchProposedPayload struct {
	MatchID          uuid.UUID `json:"match_id"`
	DonationID       uuid.UUID `json:"donation_id"`
	BeneficiaryOrgID uuid.UUID `json:"beneficiary_org_id"`
	Renewed          bool      `json:"renewed"`
}

func (c *Consumer) handleMatchProposed(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload matchProposedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.BeneficiaryOrgID == uuid.Nil {
		return fmt.Errorf("beneficiary org id missing")
	}

	donation, err := c.donations.Find(ctx, payload.DonationID)
	if err != nil {
		return err
	}

	title := "New donation proposed to you"
	if payload.Renewed {
		title = "Donation proposed to you again"
	}
	notification := &models.Notification{
		OrgID:   payload.BeneficiaryOrgID,
		Type:    enums.NotificationTypeMatchProposed,
		Title:   title,
		Message: fmt.Sprintf("%s (%s %s) has been proposed to your organization.", donation.Name, donation.Quantity.String(), donation.Unit),
		Link:    stringPtr(fmt.Sprintf("/beneficiary/matches/%s", payload.MatchID)),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "beneficiary notified of proposal")
	return nil
}

type matchRespondedPayload struct {
	MatchID          uuid.UUID         `json:"match_id"`
	DonationID       uuid.UUID         `json:"donation_id"`
	Status           enums.MatchStatus `json:"status"`
	AcceptedQuantity *decimal.Decimal  `json:"accepted_quantity"`
}

func (c *Consumer) handleMatchResponded(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload matchRespondedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	donation, err := c.donations.Find(ctx, payload.DonationID)
	if err != nil {
		return err
	}

	title := "Donation proposal declined"
	message := fmt.Sprintf("A beneficiary declined the proposal for %s.", donation.Name)
	if payload.Status == enums.MatchStatusAccepted {
		title = "Donation proposal accepted"
		message = fmt.Sprintf("A beneficiary accepted the proposal for %s.", donation.Name)
		if payload.AcceptedQuantity != nil {
			message = fmt.Sprintf("A beneficiary accepted %s %s of %s.", payload.AcceptedQuantity.String(), donation.Unit, donation.Name)
		}
	}

	notification := &models.Notification{
		OrgID:   donation.BusinessOrgID,
		Type:    enums.NotificationTypeMatchResponded,
		Title:   title,
		Message: message,
		Link:    stringPtr(fmt.Sprintf("/business/donations/%s", donation.ID)),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "business notified of match response")
	return nil
}

type matchReceivedPayload struct {
	MatchID    uuid.UUID `json:"match_id"`
	DonationID uuid.UUID `json:"donation_id"`
}

func (c *Consumer) handleMatchReceived(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload matchReceivedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	donation, err := c.donations.Find(ctx, payload.DonationID)
	if err != nil {
		return err
	}

	notification := &models.Notification{
		OrgID:   donation.BusinessOrgID,
		Type:    enums.NotificationTypeMatchReceived,
		Title:   "Donation received",
		Message: fmt.Sprintf("A beneficiary confirmed receipt of %s.", donation.Name),
		Link:    stringPtr(fmt.Sprintf("/business/donations/%s", donation.ID)),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "business notified of confirmed receipt")
	return nil
}

type quoteIssuedPayload struct {
	QuoteID     uuid.UUID `json:"quote_id"`
	DonationID  uuid.UUID `json:"donation_id"`
	TotalAmount string    `json:"total_amount"`
}

func (c *Consumer) handleQuoteIssued(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload quoteIssuedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	donation, err := c.donations.Find(ctx, payload.DonationID)
	if err != nil {
		return err
	}

	notification := &models.Notification{
		OrgID:   donation.BusinessOrgID,
		Type:    enums.NotificationTypeQuoteIssued,
		Title:   "Quote received",
		Message: fmt.Sprintf("A quote of %s was issued for %s.", payload.TotalAmount, donation.Name),
		Link:    stringPtr(fmt.Sprintf("/business/donations/%s/quotes/%s", donation.ID, payload.QuoteID)),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "business notified of quote")
	return nil
}

type quoteRespondedPayload struct {
	QuoteID    uuid.UUID         `json:"quote_id"`
	DonationID uuid.UUID         `json:"donation_id"`
	Status     enums.QuoteStatus `json:"status"`
}

func (c *Consumer) handleQuoteResponded(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload quoteRespondedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	// Beneficiaries only hear about acceptance; a rejected quote loops the
	// donation back for re-review without involving them.
	if payload.Status != enums.QuoteStatusAccepted {
		c.logg.Info(logCtx, "quote not accepted, nothing to dispatch")
		return nil
	}

	donation, err := c.donations.FindWithMatches(ctx, payload.DonationID)
	if err != nil {
		return err
	}

	for i := range donation.Matches {
		match := &donation.Matches[i]
		if match.Status != enums.MatchStatusAccepted && match.Status != enums.MatchStatusQuoteSent {
			continue
		}
		notification := &models.Notification{
			OrgID:   match.BeneficiaryOrgID,
			Type:    enums.NotificationTypeQuoteResponded,
			Title:   "Pickup being arranged",
			Message: fmt.Sprintf("The quote for %s was accepted. Pickup will be scheduled soon.", donation.Name),
			Link:    stringPtr(fmt.Sprintf("/beneficiary/matches/%s", match.ID)),
		}
		if err := c.repo.Create(ctx, notification); err != nil {
			return err
		}
	}
	c.logg.Info(logCtx, "beneficiaries notified of quote acceptance")
	return nil
}

type pickupScheduledPayload struct {
	ScheduleID uuid.UUID `json:"schedule_id"`
	DonationID uuid.UUID `json:"donation_id"`
	TimeWindow string    `json:"time_window"`
}

func (c *Consumer) handlePickupScheduled(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload pickupScheduledPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	donation, err := c.donations.Find(ctx, payload.DonationID)
	if err != nil {
		return err
	}

	notification := &models.Notification{
		OrgID:   donation.BusinessOrgID,
		Type:    enums.NotificationTypePickupScheduled,
		Title:   "Pickup scheduled",
		Message: fmt.Sprintf("Pickup for %s has been scheduled (%s).", donation.Name, payload.TimeWindow),
		Link:    stringPtr(fmt.Sprintf("/business/donations/%s", donation.ID)),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "business notified of pickup")
	return nil
}

type receiptIssuedPayload struct {
	MatchID          uuid.UUID `json:"match_id"`
	DonationID       uuid.UUID `json:"donation_id"`
	BeneficiaryOrgID uuid.UUID `json:"beneficiary_org_id"`
	ReceiptFileURL   string    `json:"receipt_file_url"`
}

func (c *Consumer) handleReceiptIssued(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload receiptIssuedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.BeneficiaryOrgID == uuid.Nil {
		return fmt.Errorf("beneficiary org id missing")
	}

	notification := &models.Notification{
		OrgID:   payload.BeneficiaryOrgID,
		Type:    enums.NotificationTypeReceiptIssued,
		Title:   "Donation receipt issued",
		Message: "A receipt has been issued for your received donation.",
		Link:    stringPtr(fmt.Sprintf("/beneficiary/matches/%s", payload.MatchID)),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "beneficiary notified of receipt")
	return nil
}

type organizationReviewedPayload struct {
	OrgID    uuid.UUID               `json:"org_id"`
	Decision enums.OrgApprovalStatus `json:"decision"`
	Reason   string                  `json:"reason,omitempty"`
}

func (c *Consumer) handleOrganizationReviewed(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload organizationReviewedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	if payload.OrgID == uuid.Nil {
		return fmt.Errorf("org id missing")
	}

	notificationType := enums.NotificationTypeOrgApproved
	title := "Registration approved"
	message := "Your organization registration has been approved. Welcome aboard."
	if payload.Decision == enums.OrgApprovalRejected {
		notificationType = enums.NotificationTypeOrgRejected
		title = "Registration rejected"
		message = "Your organization registration was rejected."
		if payload.Reason != "" {
			message = fmt.Sprintf("Your organization registration was rejected. Reason: %s", payload.Reason)
		}
	}

	notification := &models.Notification{
		OrgID:   payload.OrgID,
		Type:    notificationType,
		Title:   title,
		Message: message,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "organization notified of review decision")
	return nil
}

func stringPtr(value string) *string {
	return &value
}

package quotes

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nanumlink/nanumlink-backend/internal/donations"
	"github.com/nanumlink/nanumlink-backend/pkg/db/models"
	"github.com/nanumlink/nanumlink-backend/pkg/enums"
	pkgerrors "github.com/nanumlink/nanumlink-backend/pkg/errors"
	"github.com/nanumlink/nanumlink-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the quote lifecycle operations.
type Service interface {
	Issue(ctx context.Context, input IssueInput) (*models.Quote, error)
	Respond(ctx context.Context, input RespondInput) (*models.Quote, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	ListByDonation(ctx context.Context, donationID uuid.UUID) ([]models.Quote, error)
}

type service struct {
	repo      Repository
	donations donations.Repository
	tx        txRunner
	outbox    outboxPublisher
}

// QuoteIssuedEvent is emitted when an admin prices a donation.
type QuoteIssuedEvent struct {
	QuoteID     uuid.UUID       `json:"quote_id"`
	DonationID  uuid.UUID       `json:"donation_id"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Logistics   decimal.Decimal `json:"logistics_cost"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// QuoteRespondedEvent is emitted when the business decides a quote.
type QuoteRespondedEvent struct {
	QuoteID        uuid.UUID            `json:"quote_id"`
	DonationID     uuid.UUID            `json:"donation_id"`
	Status         enums.QuoteStatus    `json:"status"`
	DonationStatus enums.DonationStatus `json:"donation_status"`
}

// NewService builds a quote service with the required dependencies.
func NewService(repo Repository, donationRepo donations.Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("quotes repository required")
	}
	if donationRepo == nil {
		return nil, fmt.Errorf("donations repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      repo,
		donations: donationRepo,
		tx:        tx,
		outbox:    outboxSvc,
	}, nil
}

func (s *service) Issue(ctx context.Context, input IssueInput) (*models.Quote, error) {
	if input.DonationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if input.LogisticsCost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logistics cost cannot be negative")
	}

	var quote *models.Quote
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		donationRepo := s.donations.WithTx(tx)

		donation, err := donationRepo.Find(ctx, input.DonationID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "donation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load donation")
		}
		if !donation.Status.CanTransitionTo(enums.DonationStatusQuoteSent) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "donation is not ready for a quote")
		}

		accepted, err := repo.CountAcceptedMatches(ctx, donation.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count accepted matches")
		}
		if accepted == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no accepted match to quote against")
		}

		if _, err := repo.FindActive(ctx, donation.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "an active quote already exists for this donation")
		} else if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active quote")
		}

		// The total is always derived, never supplied by the caller.
		total := input.UnitPrice.Mul(donation.Quantity).Add(input.LogisticsCost)

		created, err := repo.Create(ctx, &models.Quote{
			DonationID:    donation.ID,
			UnitPrice:     input.UnitPrice,
			LogisticsCost: input.LogisticsCost,
			TotalAmount:   total,
			PickupDate:    input.PickupDate,
			PickupTime:    input.PickupTime,
			Notes:         input.Notes,
			Status:        enums.QuoteStatusPending,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create quote")
		}
		quote = created

		if err := repo.MarkMatchesQuoteSent(ctx, donation.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance matches to quote_sent")
		}
		if err := donationRepo.UpdateStatus(ctx, donation.ID, enums.DonationStatusQuoteSent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update donation status")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventQuoteIssued,
			AggregateType: enums.AggregateQuote,
			AggregateID:   created.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole},
			Data: QuoteIssuedEvent{
				QuoteID:     created.ID,
				DonationID:  donation.ID,
				UnitPrice:   created.UnitPrice,
				Logistics:   created.LogisticsCost,
				TotalAmount: created.TotalAmount,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

func (s *service) Respond(ctx context.Context, input RespondInput) (*models.Quote, error) {
	if input.QuoteID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorOrgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization context missing")
	}

	var quote *models.Quote
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		donationRepo := s.donations.WithTx(tx)

		found, err := repo.Find(ctx, input.QuoteID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
		}
		if found.Status != enums.QuoteStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "quote has already been decided")
		}

		donation, err := donationRepo.Find(ctx, found.DonationID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load donation")
		}
		if donation.BusinessOrgID != input.ActorOrgID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "quote does not belong to organization")
		}

		now := time.Now()
		var quoteStatus enums.QuoteStatus
		var donationStatus enums.DonationStatus
		if input.Accept {
			quoteStatus = enums.QuoteStatusAccepted
			donationStatus = enums.DonationStatusQuoteAccepted
		} else {
			quoteStatus = enums.QuoteStatusRejected
			// Rejection loops the donation back into the review queue so a
			// fresh proposal cycle can begin. Not a terminal failure.
			donationStatus = enums.DonationStatusPendingReview
		}

		updates := map[string]any{
			"status":       quoteStatus,
			"responded_at": now,
		}
		if err := repo.Update(ctx, found.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update quote")
		}

		if !input.Accept {
			if err := repo.MarkMatchesAccepted(ctx, donation.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revert matches to accepted")
			}
		}
		if err := donationRepo.UpdateStatus(ctx, donation.ID, donationStatus); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update donation status")
		}

		found.Status = quoteStatus
		found.RespondedAt = &now
		quote = found

		org := input.ActorOrgID
		event := outbox.DomainEvent{
			EventType:     enums.EventQuoteResponded,
			AggregateType: enums.AggregateQuote,
			AggregateID:   found.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, OrgID: &org, Role: input.ActorRole},
			Data: QuoteRespondedEvent{
				QuoteID:        found.ID,
				DonationID:     donation.ID,
				Status:         quoteStatus,
				DonationStatus: donationStatus,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote id required")
	}
	quote, err := s.repo.Find(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
	}
	return quote, nil
}

func (s *service) ListByDonation(ctx context.Context, donationID uuid.UUID) ([]models.Quote, error) {
	if donationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation id required")
	}
	rows, err := s.repo.ListByDonation(ctx, donationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list quotes")
	}
	return rows, nil
}

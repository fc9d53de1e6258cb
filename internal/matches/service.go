package matches

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
	"github.com/nanumlink/nanumlink-backend/pkg/logger"
	"github.com/nanumlink/nanumlink-backend/pkg/outbox"
	"github.com/nanumlink/nanumlink-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the allocation operations on donation matches.
type Service interface {
	Propose(ctx context.Context, input ProposeInput) ([]models.DonationMatch, error)
	Respond(ctx context.Context, input RespondInput) (*models.DonationMatch, error)
	ConfirmReceipt(ctx context.Context, input ConfirmReceiptInput) (*models.DonationMatch, error)
	ListByDonation(ctx context.Context, donationID uuid.UUID) ([]models.DonationMatch, error)
	ListForBeneficiary(ctx context.Context, beneficiaryOrgID uuid.UUID, params pagination.Params, filters ListFilters) (*List, error)
	RemainingQuantity(ctx context.Context, donationID uuid.UUID) (decimal.Decimal, error)
}

type service struct {
	repo      Repository
	donations donations.Repository
	tx        txRunner
	outbox    outboxPublisher
	logg      *logger.Logger
}

// MatchProposedEvent is emitted per beneficiary when an admin fans out a donation.
type MatchProposedEvent struct {
	MatchID          uuid.UUID `json:"match_id"`
	DonationID       uuid.UUID `json:"donation_id"`
	BeneficiaryOrgID uuid.UUID `json:"beneficiary_org_id"`
	Renewed          bool      `json:"renewed"`
}

// MatchRespondedEvent is emitted when a beneficiary accepts or rejects.
type MatchRespondedEvent struct {
	MatchID          uuid.UUID         `json:"match_id"`
	DonationID       uuid.UUID         `json:"donation_id"`
	BeneficiaryOrgID uuid.UUID         `json:"beneficiary_org_id"`
	Status           enums.MatchStatus `json:"status"`
	AcceptedQuantity *decimal.Decimal  `json:"accepted_quantity,omitempty"`
	Remaining        *decimal.Decimal  `json:"remaining,omitempty"`
}

// MatchReceivedEvent is emitted when a beneficiary confirms physical receipt.
type MatchReceivedEvent struct {
	MatchID           uuid.UUID `json:"match_id"`
	DonationID        uuid.UUID `json:"donation_id"`
	BeneficiaryOrgID  uuid.UUID `json:"beneficiary_org_id"`
	DonationCompleted bool      `json:"donation_completed"`
}

// NewService builds the match allocator with the required dependencies.
func NewService(repo Repository, donationRepo donations.Repository, tx txRunner, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("matches repository required")
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
		logg:      logg,
	}, nil
}

func (s *service) Propose(ctx context.Context, input ProposeInput) ([]models.DonationMatch, error) {
	if input.DonationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation id required")
	}
	if len(input.BeneficiaryOrgIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one beneficiary required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	seen := map[uuid.UUID]bool{}
	for _, id := range input.BeneficiaryOrgIDs {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "beneficiary id required")
		}
		if seen[id] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate beneficiary in proposal")
		}
		seen[id] = true
	}

	var proposed []models.DonationMatch
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
		if donation.Status != enums.DonationStatusPendingReview && donation.Status != enums.DonationStatusMatched {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "donation is not open for matching")
		}

		now := time.Now()
		proposed = proposed[:0]
		for _, beneficiaryID := range input.BeneficiaryOrgIDs {
			existing, err := repo.FindByPair(ctx, donation.ID, beneficiaryID)
			switch {
			case err == gorm.ErrRecordNotFound:
				match := &models.DonationMatch{
					DonationID:       donation.ID,
					BeneficiaryOrgID: beneficiaryID,
					Status:           enums.MatchStatusProposed,
					ProposedAt:       now,
				}
				created, err := repo.Create(ctx, match)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create match")
				}
				proposed = append(proposed, *created)
				if err := s.emitProposed(ctx, tx, input, created, false); err != nil {
					return err
				}

			case err != nil:
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load match pair")

			default:
				// A second proposal to the same pair resets the existing row
				// back to proposed rather than inserting a duplicate.
				updates := map[string]any{
					"status":            enums.MatchStatusProposed,
					"proposed_at":       now,
					"responded_at":      nil,
					"received_at":       nil,
					"accepted_quantity": nil,
					"accepted_unit":     nil,
					"response_notes":    nil,
				}
				if err := repo.Update(ctx, existing.ID, updates); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "renew match")
				}
				existing.Status = enums.MatchStatusProposed
				existing.ProposedAt = now
				existing.RespondedAt = nil
				existing.ReceivedAt = nil
				existing.AcceptedQuantity = nil
				existing.AcceptedUnit = nil
				existing.ResponseNotes = nil
				proposed = append(proposed, *existing)
				if err := s.emitProposed(ctx, tx, input, existing, true); err != nil {
					return err
				}
			}
		}

		if donation.Status == enums.DonationStatusPendingReview {
			if err := donationRepo.UpdateStatus(ctx, donation.ID, enums.DonationStatusMatched); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update donation status")
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventDonationStateChanged,
				AggregateType: enums.AggregateDonation,
				AggregateID:   donation.ID,
				Version:       1,
				Actor:         actorRef(input.ActorUserID, nil, input.ActorRole),
				Data: donations.DonationStateEvent{
					DonationID: donation.ID,
					From:       enums.DonationStatusPendingReview,
					To:         enums.DonationStatusMatched,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return proposed, nil
}

func (s *service) emitProposed(ctx context.Context, tx *gorm.DB, input ProposeInput, match *models.DonationMatch, renewed bool) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventMatchProposed,
		AggregateType: enums.AggregateMatch,
		AggregateID:   match.ID,
		Version:       1,
		Actor:         actorRef(input.ActorUserID, nil, input.ActorRole),
		Data: MatchProposedEvent{
			MatchID:          match.ID,
			DonationID:       match.DonationID,
			BeneficiaryOrgID: match.BeneficiaryOrgID,
			Renewed:          renewed,
		},
	}
	return s.outbox.Emit(ctx, tx, event)
}

func (s *service) Respond(ctx context.Context, input RespondInput) (*models.DonationMatch, error) {
	if input.MatchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "match id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorOrgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization context missing")
	}

	var match *models.DonationMatch
	var remainingAfter *decimal.Decimal

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.Find(ctx, input.MatchID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "match not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load match")
		}
		if found.BeneficiaryOrgID != input.ActorOrgID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "match does not belong to organization")
		}
		if found.Status != enums.MatchStatusProposed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "match has already been responded to")
		}

		now := time.Now()

		if !input.Accept {
			updates := map[string]any{
				"status":         enums.MatchStatusRejected,
				"responded_at":   now,
				"response_notes": input.Notes,
			}
			if err := repo.Update(ctx, found.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject match")
			}
			found.Status = enums.MatchStatusRejected
			found.RespondedAt = &now
			found.ResponseNotes = input.Notes
			match = found
			return s.emitResponded(ctx, tx, input, found, nil, nil)
		}

		if input.Quantity == nil || !input.Quantity.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "accepted quantity must be positive")
		}

		// Lock the donation row so concurrent acceptances against the same
		// quantity pool serialize, then re-validate against the quantities
		// committed right now rather than whatever the caller's view showed.
		donation, err := repo.FindDonationForUpdate(ctx, found.DonationID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock donation")
		}

		allocated, err := repo.SumAllocated(ctx, donation.ID, found.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum allocated quantity")
		}
		remaining := donation.Quantity.Sub(allocated)
		if input.Quantity.GreaterThan(remaining) {
			return pkgerrors.New(pkgerrors.CodeValidation, "accepted quantity exceeds remaining quantity").
				WithDetails(map[string]any{
					"requested": input.Quantity.String(),
					"remaining": remaining.String(),
				})
		}

		unit := input.Unit
		if unit == "" {
			unit = donation.Unit
		}
		updates := map[string]any{
			"status":            enums.MatchStatusAccepted,
			"responded_at":      now,
			"accepted_quantity": *input.Quantity,
			"accepted_unit":     unit,
			"response_notes":    input.Notes,
		}
		if err := repo.Update(ctx, found.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept match")
		}

		found.Status = enums.MatchStatusAccepted
		found.RespondedAt = &now
		found.AcceptedQuantity = input.Quantity
		found.AcceptedUnit = &unit
		found.ResponseNotes = input.Notes
		match = found

		after := remaining.Sub(*input.Quantity)
		remainingAfter = &after
		return s.emitResponded(ctx, tx, input, found, input.Quantity, &after)
	})
	if err != nil {
		return nil, err
	}

	// The denormalized remaining_quantity is advisory and recomputable from
	// the matches, so a failure here must not undo the accept.
	if remainingAfter != nil {
		updates := map[string]any{"remaining_quantity": *remainingAfter}
		if err := s.donations.Update(ctx, match.DonationID, updates); err != nil {
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"donation_id": match.DonationID.String(),
					"error":       err.Error(),
				})
				s.logg.Warn(logCtx, "remaining quantity write failed, value stays recomputable")
			}
		}
	}

	return match, nil
}

func (s *service) emitResponded(ctx context.Context, tx *gorm.DB, input RespondInput, match *models.DonationMatch, accepted, remaining *decimal.Decimal) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventMatchResponded,
		AggregateType: enums.AggregateMatch,
		AggregateID:   match.ID,
		Version:       1,
		Actor:         actorRef(input.ActorUserID, &input.ActorOrgID, input.ActorRole),
		Data: MatchRespondedEvent{
			MatchID:          match.ID,
			DonationID:       match.DonationID,
			BeneficiaryOrgID: match.BeneficiaryOrgID,
			Status:           match.Status,
			AcceptedQuantity: accepted,
			Remaining:        remaining,
		},
	}
	return s.outbox.Emit(ctx, tx, event)
}

func (s *service) ConfirmReceipt(ctx context.Context, input ConfirmReceiptInput) (*models.DonationMatch, error) {
	if input.MatchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "match id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorOrgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization context missing")
	}

	var match *models.DonationMatch
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		found, err := repo.Find(ctx, input.MatchID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "match not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load match")
		}
		if found.BeneficiaryOrgID != input.ActorOrgID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "match does not belong to organization")
		}
		if found.Status != enums.MatchStatusAccepted && found.Status != enums.MatchStatusQuoteSent {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only accepted matches can be confirmed as received")
		}

		donation, err := s.donations.WithTx(tx).Find(ctx, found.DonationID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load donation")
		}
		if donation.Status != enums.DonationStatusPickupScheduled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "receipt can only be confirmed after pickup is scheduled")
		}

		now := time.Now()
		updates := map[string]any{
			"status":      enums.MatchStatusReceived,
			"received_at": now,
		}
		if err := repo.Update(ctx, found.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark match received")
		}
		found.Status = enums.MatchStatusReceived
		found.ReceivedAt = &now
		match = found

		event := outbox.DomainEvent{
			EventType:     enums.EventMatchReceived,
			AggregateType: enums.AggregateMatch,
			AggregateID:   found.ID,
			Version:       1,
			Actor:         actorRef(input.ActorUserID, &input.ActorOrgID, input.ActorRole),
			Data: MatchReceivedEvent{
				MatchID:          found.ID,
				DonationID:       found.DonationID,
				BeneficiaryOrgID: found.BeneficiaryOrgID,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	// Donation-level completion is optimistic and independently committed.
	// The match-level received state above is authoritative either way; if
	// this second write fails an admin closes the donation out later.
	s.tryCompleteDonation(ctx, match.DonationID, input.ActorUserID, input.ActorOrgID, input.ActorRole)

	return match, nil
}

func (s *service) tryCompleteDonation(ctx context.Context, donationID, actorUserID, actorOrgID uuid.UUID, role string) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		donationRepo := s.donations.WithTx(tx)
		donation, err := donationRepo.Find(ctx, donationID)
		if err != nil {
			return err
		}
		if donation.Status == enums.DonationStatusCompleted {
			return nil
		}
		if !donation.Status.CanTransitionTo(enums.DonationStatusCompleted) {
			return fmt.Errorf("donation in %s cannot auto-complete", donation.Status)
		}

		now := time.Now()
		updates := map[string]any{
			"status":       enums.DonationStatusCompleted,
			"completed_at": now,
		}
		if err := donationRepo.Update(ctx, donation.ID, updates); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventDonationCompleted,
			AggregateType: enums.AggregateDonation,
			AggregateID:   donation.ID,
			Version:       1,
			Actor:         actorRef(actorUserID, &actorOrgID, role),
			Data: donations.DonationStateEvent{
				DonationID: donation.ID,
				From:       donation.Status,
				To:         enums.DonationStatusCompleted,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"donation_id": donationID.String(),
			"error":       err.Error(),
		})
		s.logg.Warn(logCtx, "optimistic donation completion failed, deferring to admin")
	}
}

func (s *service) ListByDonation(ctx context.Context, donationID uuid.UUID) ([]models.DonationMatch, error) {
	if donationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation id required")
	}
	rows, err := s.repo.ListByDonation(ctx, donationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list matches")
	}
	return rows, nil
}

func (s *service) ListForBeneficiary(ctx context.Context, beneficiaryOrgID uuid.UUID, params pagination.Params, filters ListFilters) (*List, error) {
	if beneficiaryOrgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization context missing")
	}
	list, err := s.repo.ListForBeneficiary(ctx, beneficiaryOrgID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list beneficiary matches")
	}
	return list, nil
}

func (s *service) RemainingQuantity(ctx context.Context, donationID uuid.UUID) (decimal.Decimal, error) {
	if donationID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "donation id required")
	}
	donation, err := s.donations.Find(ctx, donationID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "donation not found")
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load donation")
	}
	allocated, err := s.repo.SumAllocated(ctx, donation.ID, uuid.Nil)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum allocated quantity")
	}
	return donation.Quantity.Sub(allocated), nil
}

func actorRef(userID uuid.UUID, orgID *uuid.UUID, role string) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID: userID,
		OrgID:  orgID,
		Role:   role,
	}
}

package receipts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nanumlink/nanumlink-backend/internal/donations"
	"github.com/nanumlink/nanumlink-backend/internal/matches"
	"github.com/nanumlink/nanumlink-backend/internal/organizations"
	"github.com/nanumlink/nanumlink-backend/internal/quotes"
	"github.com/nanumlink/nanumlink-backend/pkg/db/models"
	"github.com/nanumlink/nanumlink-backend/pkg/enums"
	pkgerrors "github.com/nanumlink/nanumlink-backend/pkg/errors"
	"github.com/nanumlink/nanumlink-backend/pkg/logger"
	"github.com/nanumlink/nanumlink-backend/pkg/outbox"
	"github.com/nanumlink/nanumlink-backend/pkg/pdf"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ArtifactUploader stores rendered receipts and returns stable URLs.
type ArtifactUploader interface {
	Upload(ctx context.Context, objectKey string, contentType string, data []byte) (string, error)
}

// Service issues donation receipts for received matches.
type Service interface {
	Issue(ctx context.Context, input IssueInput) (*Issued, error)
}

type service struct {
	matches   matches.Repository
	donations donations.Repository
	orgs      organizations.Repository
	quotes    quotes.Repository
	tx        txRunner
	outbox    outboxPublisher
	uploads   ArtifactUploader
	logg      *logger.Logger
}

// NewService builds a receipts service with the required dependencies.
func NewService(
	matchRepo matches.Repository,
	donationRepo donations.Repository,
	orgRepo organizations.Repository,
	quoteRepo quotes.Repository,
	tx txRunner,
	outboxSvc outboxPublisher,
	uploads ArtifactUploader,
	logg *logger.Logger,
) (Service, error) {
	if matchRepo == nil || donationRepo == nil || orgRepo == nil || quoteRepo == nil {
		return nil, fmt.Errorf("receipt repositories required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if uploads == nil {
		return nil, fmt.Errorf("artifact uploader required")
	}
	return &service{
		matches:   matchRepo,
		donations: donationRepo,
		orgs:      orgRepo,
		quotes:    quoteRepo,
		tx:        tx,
		outbox:    outboxSvc,
		uploads:   uploads,
		logg:      logg,
	}, nil
}

// Issue renders and stores a receipt for a received match, then records it on
// the match row. Re-issuing overwrites the previous artifact reference; the
// old file is not deleted but nothing points at it anymore.
func (s *service) Issue(ctx context.Context, input IssueInput) (*Issued, error) {
	if input.MatchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "match id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	match, err := s.matches.Find(ctx, input.MatchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "match not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load match")
	}
	if match.Status != enums.MatchStatusReceived {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "receipt requires a received match").
			WithDetails(map[string]any{"status": match.Status})
	}
	reissued := match.ReceiptIssued
	if reissued && !input.ConfirmReissue {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "receipt already issued, confirm re-issue to overwrite")
	}

	donation, err := s.donations.Find(ctx, match.DonationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load donation")
	}
	business, err := s.orgs.Find(ctx, donation.BusinessOrgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load business organization")
	}
	beneficiary, err := s.orgs.Find(ctx, match.BeneficiaryOrgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load beneficiary organization")
	}

	issuedAt := time.Now()
	data := pdf.ReceiptData{
		ReceiptNo:       receiptNo(match.ID, issuedAt),
		DonationName:    donation.Name,
		BusinessName:    business.Name,
		BeneficiaryName: beneficiary.Name,
		Quantity:        donation.Quantity,
		Unit:            donation.Unit,
		ReceivedAt:      match.ReceivedAt,
		IssuedAt:        issuedAt,
	}
	if match.AcceptedQuantity != nil {
		data.Quantity = *match.AcceptedQuantity
	}
	if match.AcceptedUnit != nil {
		data.Unit = *match.AcceptedUnit
	}
	s.attachValuation(ctx, donation, &data)

	rendered, err := pdf.RenderReceipt(data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "render receipt")
	}
	objectKey := fmt.Sprintf("receipts/%s/%s.pdf", donation.ID, data.ReceiptNo)
	fileURL, err := s.uploads.Upload(ctx, objectKey, "application/pdf", rendered)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload receipt")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		matchRepo := s.matches.WithTx(tx)
		updates := map[string]any{
			"receipt_issued":    true,
			"receipt_issued_at": issuedAt,
			"receipt_file_url":  fileURL,
		}
		if err := matchRepo.Update(ctx, match.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record receipt")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventReceiptIssued,
			AggregateType: enums.AggregateMatch,
			AggregateID:   match.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole},
			Data: ReceiptIssuedEvent{
				MatchID:          match.ID,
				DonationID:       donation.ID,
				BeneficiaryOrgID: match.BeneficiaryOrgID,
				ReceiptFileURL:   fileURL,
				Reissued:         reissued,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"match_id":   match.ID.String(),
			"receipt_no": data.ReceiptNo,
			"reissued":   reissued,
		})
		s.logg.Info(logCtx, "receipt issued")
	}

	// The issued receipt above is authoritative; donation completion is an
	// optimistic second write so a donation whose auto-complete failed at
	// receive time still closes out here.
	s.tryCompleteDonation(ctx, donation.ID, input.ActorUserID, input.ActorRole)

	return &Issued{
		MatchID:        match.ID,
		DonationID:     donation.ID,
		ReceiptNo:      data.ReceiptNo,
		ReceiptFileURL: fileURL,
		Reissued:       reissued,
	}, nil
}

func (s *service) tryCompleteDonation(ctx context.Context, donationID, actorUserID uuid.UUID, role string) {
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
			Actor:         &outbox.ActorRef{UserID: actorUserID, Role: role},
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
		s.logg.Warn(logCtx, "donation completion left for admin close-out")
	}
}

// attachValuation copies pricing from the accepted quote when one exists.
// Donations completed without a quote cycle simply print without amounts.
func (s *service) attachValuation(ctx context.Context, donation *models.Donation, data *pdf.ReceiptData) {
	quote, err := s.quotes.FindActive(ctx, donation.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) && s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"donation_id": donation.ID.String(),
				"error":       err.Error(),
			})
			s.logg.Warn(logCtx, "quote lookup failed, issuing receipt without valuation")
		}
		return
	}
	if quote.Status != enums.QuoteStatusAccepted {
		return
	}
	unitPrice := quote.UnitPrice
	total := unitPrice.Mul(data.Quantity)
	data.UnitPrice = &unitPrice
	data.TotalAmount = &total
}

func receiptNo(matchID uuid.UUID, issuedAt time.Time) string {
	short := strings.ToUpper(strings.ReplaceAll(matchID.String(), "-", ""))[:8]
	return fmt.Sprintf("NL-%s-%s", issuedAt.Format("20060102"), short)
}

package donations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

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

// PhotoUploader stores donation photos and returns stable URLs.
type PhotoUploader interface {
	Upload(ctx context.Context, objectKey string, contentType string, data []byte) (string, error)
}

// Service defines donation-level operations beyond repository reads.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Donation, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Donation, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*List, error)
	RejectIntake(ctx context.Context, input RejectInput) (*models.Donation, error)
	MarkComplete(ctx context.Context, input CompleteInput) (*models.Donation, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	uploads PhotoUploader
	logg    *logger.Logger
}

// RejectInput captures an admin rejecting a donation at intake.
type RejectInput struct {
	DonationID  uuid.UUID
	Notes       string
	ActorUserID uuid.UUID
	ActorRole   string
}

// CompleteInput captures an admin closing out a donation.
type CompleteInput struct {
	DonationID  uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   string
}

// DonationCreatedEvent is emitted when a business registers a donation.
type DonationCreatedEvent struct {
	DonationID    uuid.UUID            `json:"donation_id"`
	BusinessOrgID uuid.UUID            `json:"business_org_id"`
	Name          string               `json:"name"`
	Quantity      decimal.Decimal      `json:"quantity"`
	Unit          string               `json:"unit"`
	Status        enums.DonationStatus `json:"status"`
}

// DonationStateEvent is emitted when the aggregate status changes.
type DonationStateEvent struct {
	DonationID uuid.UUID            `json:"donation_id"`
	From       enums.DonationStatus `json:"from"`
	To         enums.DonationStatus `json:"to"`
}

// NewService builds a donations service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, uploads PhotoUploader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("donations repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		outbox:  outboxSvc,
		uploads: uploads,
		logg:    logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Donation, error) {
	if input.BusinessOrgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization context missing")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation name required")
	}
	if !input.Quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if strings.TrimSpace(input.Unit) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit required")
	}
	if input.PickupDeadline.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup deadline required")
	}

	// Photo uploads are best-effort: a storage failure must not abort
	// registration, the donation is simply created without that photo.
	photoURLs := s.uploadPhotos(ctx, input)

	remaining := input.Quantity
	donation := &models.Donation{
		BusinessOrgID:     input.BusinessOrgID,
		Name:              strings.TrimSpace(input.Name),
		Description:       input.Description,
		Quantity:          input.Quantity,
		Unit:              strings.TrimSpace(input.Unit),
		PickupDeadline:    input.PickupDeadline,
		PickupLocation:    input.PickupLocation,
		PhotoURLs:         photoURLs,
		Status:            enums.DonationStatusPendingReview,
		RemainingQuantity: &remaining,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		created, err := repo.Create(ctx, donation)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create donation")
		}
		donation = created

		event := outbox.DomainEvent{
			EventType:     enums.EventDonationCreated,
			AggregateType: enums.AggregateDonation,
			AggregateID:   donation.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.BusinessOrgID, input.ActorRole),
			Data: DonationCreatedEvent{
				DonationID:    donation.ID,
				BusinessOrgID: donation.BusinessOrgID,
				Name:          donation.Name,
				Quantity:      donation.Quantity,
				Unit:          donation.Unit,
				Status:        donation.Status,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return donation, nil
}

func (s *service) uploadPhotos(ctx context.Context, input CreateInput) []string {
	if s.uploads == nil || len(input.Photos) == 0 {
		return nil
	}
	urls := make([]string, 0, len(input.Photos))
	for _, photo := range input.Photos {
		key := fmt.Sprintf("donations/%s/%d_%s", input.BusinessOrgID, time.Now().UnixNano(), photo.FileName)
		url, err := s.uploads.Upload(ctx, key, photo.ContentType, photo.Data)
		if err != nil {
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{"file": photo.FileName, "error": err.Error()})
				s.logg.Warn(logCtx, "donation photo upload failed, continuing without it")
			}
			continue
		}
		urls = append(urls, url)
	}
	return urls
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation id required")
	}
	donation, err := s.repo.FindWithMatches(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "donation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load donation")
	}
	return donation, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*List, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list donations")
	}
	return list, nil
}

func (s *service) RejectIntake(ctx context.Context, input RejectInput) (*models.Donation, error) {
	if input.DonationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var donation *models.Donation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.Find(ctx, input.DonationID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "donation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load donation")
		}
		if found.Status != enums.DonationStatusPendingReview {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only donations pending review can be rejected")
		}

		if err := repo.UpdateStatus(ctx, found.ID, enums.DonationStatusRejected); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update donation status")
		}

		from := found.Status
		found.Status = enums.DonationStatusRejected
		donation = found

		event := outbox.DomainEvent{
			EventType:     enums.EventDonationRejected,
			AggregateType: enums.AggregateDonation,
			AggregateID:   found.ID,
			Version:       1,
			Actor:         adminActor(input.ActorUserID, input.ActorRole),
			Data: DonationStateEvent{
				DonationID: found.ID,
				From:       from,
				To:         enums.DonationStatusRejected,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return donation, nil
}

func (s *service) MarkComplete(ctx context.Context, input CompleteInput) (*models.Donation, error) {
	if input.DonationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var donation *models.Donation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.Find(ctx, input.DonationID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "donation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load donation")
		}
		if found.Status == enums.DonationStatusCompleted {
			donation = found
			return nil
		}
		if found.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "donation is already closed")
		}

		now := time.Now()
		updates := map[string]any{
			"status":       enums.DonationStatusCompleted,
			"completed_at": now,
		}
		if err := repo.Update(ctx, found.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete donation")
		}

		from := found.Status
		found.Status = enums.DonationStatusCompleted
		found.CompletedAt = &now
		donation = found

		event := outbox.DomainEvent{
			EventType:     enums.EventDonationCompleted,
			AggregateType: enums.AggregateDonation,
			AggregateID:   found.ID,
			Version:       1,
			Actor:         adminActor(input.ActorUserID, input.ActorRole),
			Data: DonationStateEvent{
				DonationID: found.ID,
				From:       from,
				To:         enums.DonationStatusCompleted,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return donation, nil
}

func buildActor(userID, orgID uuid.UUID, role string) *outbox.ActorRef {
	org := orgID
	return &outbox.ActorRef{
		UserID: userID,
		OrgID:  &org,
		Role:   role,
	}
}

func adminActor(userID uuid.UUID, role string) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID: userID,
		Role:   role,
	}
}

package pickups

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
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

// ScheduleInput captures the confirmed pickup appointment details.
type ScheduleInput struct {
	DonationID  uuid.UUID
	PickupDate  time.Time
	TimeWindow  string
	StaffName   string
	Vehicle     string
	Notes       *string
	ActorUserID uuid.UUID
	ActorOrgID  *uuid.UUID
	ActorRole   string
}

// Service defines pickup scheduling operations.
type Service interface {
	Schedule(ctx context.Context, input ScheduleInput) (*models.PickupSchedule, error)
	Latest(ctx context.Context, donationID uuid.UUID) (*models.PickupSchedule, error)
}

type service struct {
	repo      Repository
	donations donations.Repository
	tx        txRunner
	outbox    outboxPublisher
}

// PickupScheduledEvent is emitted when a pickup appointment is confirmed.
type PickupScheduledEvent struct {
	ScheduleID uuid.UUID `json:"schedule_id"`
	DonationID uuid.UUID `json:"donation_id"`
	PickupDate time.Time `json:"pickup_date"`
	TimeWindow string    `json:"time_window"`
}

// NewService builds a pickup scheduler with the required dependencies.
func NewService(repo Repository, donationRepo donations.Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pickups repository required")
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

func (s *service) Schedule(ctx context.Context, input ScheduleInput) (*models.PickupSchedule, error) {
	if input.DonationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.PickupDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup date required")
	}
	if input.ActorRole != string(enums.MemberRoleAdmin) && input.ActorOrgID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization context missing")
	}

	var schedule *models.PickupSchedule
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
		if input.ActorRole != string(enums.MemberRoleAdmin) && donation.BusinessOrgID != *input.ActorOrgID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "donation does not belong to organization")
		}
		if donation.Status != enums.DonationStatusQuoteAccepted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pickup can only be scheduled after the quote is accepted")
		}

		created, err := repo.Create(ctx, &models.PickupSchedule{
			DonationID: donation.ID,
			PickupDate: input.PickupDate,
			TimeWindow: input.TimeWindow,
			StaffName:  input.StaffName,
			Vehicle:    input.Vehicle,
			Notes:      input.Notes,
			Status:     enums.PickupStatusScheduled,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pickup schedule")
		}
		schedule = created

		if err := donationRepo.UpdateStatus(ctx, donation.ID, enums.DonationStatusPickupScheduled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update donation status")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPickupScheduled,
			AggregateType: enums.AggregatePickup,
			AggregateID:   created.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, OrgID: input.ActorOrgID, Role: input.ActorRole},
			Data: PickupScheduledEvent{
				ScheduleID: created.ID,
				DonationID: donation.ID,
				PickupDate: created.PickupDate,
				TimeWindow: created.TimeWindow,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

func (s *service) Latest(ctx context.Context, donationID uuid.UUID) (*models.PickupSchedule, error) {
	if donationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation id required")
	}
	schedule, err := s.repo.FindLatest(ctx, donationID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no pickup scheduled for donation")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pickup schedule")
	}
	return schedule, nil
}

package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/nanumlink/nanumlink-backend/internal/donations"
	"github.com/nanumlink/nanumlink-backend/pkg/db/models"
	"github.com/nanumlink/nanumlink-backend/pkg/enums"
	"github.com/nanumlink/nanumlink-backend/pkg/logger"
	"github.com/nanumlink/nanumlink-backend/pkg/outbox"
)

const reconcileBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stalledDonationReader interface {
	ListDonationsAwaitingCompletion(ctx context.Context, limit int) ([]models.Donation, error)
}

// CompletionReconcileJobParams configure the donation close-out sweep.
type CompletionReconcileJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Stalled   stalledDonationReader
	Donations donations.Repository
	Outbox    outboxEmitter
}

// NewCompletionReconcileJob builds the job that closes donations whose
// beneficiaries have all confirmed receipt but whose completion write was
// lost. Receipt confirmation completes the donation on a best-effort basis,
// so a crash between the two writes leaves the donation stranded in
// pickup_scheduled until this sweep picks it up.
func NewCompletionReconcileJob(params CompletionReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Stalled == nil {
		return nil, fmt.Errorf("stalled donation reader required")
	}
	if params.Donations == nil {
		return nil, fmt.Errorf("donations repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &completionReconcileJob{
		logg:      params.Logger,
		db:        params.DB,
		stalled:   params.Stalled,
		donations: params.Donations,
		outbox:    params.Outbox,
		now:       time.Now,
	}, nil
}

type completionReconcileJob struct {
	logg      *logger.Logger
	db        txRunner
	stalled   stalledDonationReader
	donations donations.Repository
	outbox    outboxEmitter
	now       func() time.Time
}

func (j *completionReconcileJob) Name() string { return "donation-completion-reconcile" }

func (j *completionReconcileJob) Run(ctx context.Context) error {
	stalled, err := j.stalled.ListDonationsAwaitingCompletion(ctx, reconcileBatchSize)
	if err != nil {
		return fmt.Errorf("query stalled donations: %w", err)
	}

	var errs []error
	completed := 0
	for _, donation := range stalled {
		if err := j.completeDonation(ctx, donation.ID); err != nil {
			errs = append(errs, fmt.Errorf("donation %s: %w", donation.ID, err))
			continue
		}
		completed++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"stalled":   len(stalled),
		"completed": completed,
	})
	j.logg.Info(logCtx, "donation completion sweep finished")
	return multierr.Combine(errs...)
}

func (j *completionReconcileJob) completeDonation(ctx context.Context, donationID uuid.UUID) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.donations.WithTx(tx)
		donation, err := repo.Find(ctx, donationID)
		if err != nil {
			return err
		}
		// Re-read inside the tx: the optimistic path may have won the race
		// between the sweep query and now.
		if donation.Status == enums.DonationStatusCompleted {
			return nil
		}
		if !donation.Status.CanTransitionTo(enums.DonationStatusCompleted) {
			return fmt.Errorf("donation in %s cannot be reconciled to completed", donation.Status)
		}

		updates := map[string]any{
			"status":       enums.DonationStatusCompleted,
			"completed_at": j.now().UTC(),
		}
		if err := repo.Update(ctx, donation.ID, updates); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventDonationCompleted,
			AggregateType: enums.AggregateDonation,
			AggregateID:   donation.ID,
			Version:       1,
			Data: donations.DonationStateEvent{
				DonationID: donation.ID,
				From:       donation.Status,
				To:         enums.DonationStatusCompleted,
			},
		}
		return j.outbox.Emit(ctx, tx, event)
	})
}

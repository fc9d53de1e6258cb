package pickups

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nanumlink/nanumlink-backend/internal/donations"
	"github.com/nanumlink/nanumlink-backend/pkg/db/models"
	"github.com/nanumlink/nanumlink-backend/pkg/enums"
	pkgerrors "github.com/nanumlink/nanumlink-backend/pkg/errors"
	"github.com/nanumlink/nanumlink-backend/pkg/outbox"
	"github.com/nanumlink/nanumlink-backend/pkg/pagination"
)

type fakeTx struct{}

func (f *fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubPickupRepo struct {
	created   *models.PickupSchedule
	createErr error
	latest    *models.PickupSchedule
	rows      []models.PickupSchedule
}

func (s *stubPickupRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPickupRepo) Create(ctx context.Context, schedule *models.PickupSchedule) (*models.PickupSchedule, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if schedule.ID == uuid.Nil {
		schedule.ID = uuid.New()
	}
	s.created = schedule
	return schedule, nil
}

func (s *stubPickupRepo) FindLatest(ctx context.Context, donationID uuid.UUID) (*models.PickupSchedule, error) {
	if s.latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.latest, nil
}

func (s *stubPickupRepo) ListByDonation(ctx context.Context, donationID uuid.UUID) ([]models.PickupSchedule, error) {
	return s.rows, nil
}

type stubDonationRepo struct {
	row           *models.Donation
	statusUpdates []enums.DonationStatus
}

func (s *stubDonationRepo) WithTx(tx *gorm.DB) donations.Repository { return s }

func (s *stubDonationRepo) Create(ctx context.Context, donation *models.Donation) (*models.Donation, error) {
	return donation, nil
}

func (s *stubDonationRepo) Find(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	if s.row == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.row
	return &copied, nil
}

func (s *stubDonationRepo) FindWithMatches(ctx context.Context, id uuid.UUID) (*models.Donation, error) {
	return s.Find(ctx, id)
}

func (s *stubDonationRepo) List(ctx context.Context, params pagination.Params, filters donations.ListFilters) (*donations.List, error) {
	return nil, nil
}

func (s *stubDonationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.DonationStatus) error {
	s.statusUpdates = append(s.statusUpdates, status)
	return nil
}

func (s *stubDonationRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func TestScheduleAfterQuoteAccepted(t *testing.T) {
	donation := &models.Donation{
		ID:       uuid.New(),
		Quantity: decimal.NewFromInt(10),
		Status:   enums.DonationStatusQuoteAccepted,
	}
	repo := &stubPickupRepo{}
	donationRepo := &stubDonationRepo{row: donation}
	box := &stubOutbox{}
	svc, err := NewService(repo, donationRepo, &fakeTx{}, box)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	schedule, err := svc.Schedule(context.Background(), ScheduleInput{
		DonationID:  donation.ID,
		PickupDate:  time.Now().Add(24 * time.Hour),
		TimeWindow:  "09:00-12:00",
		StaffName:   "Kim",
		Vehicle:     "1t refrigerated",
		ActorUserID: uuid.New(),
		ActorRole:   "admin",
	})
	if err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}
	if schedule.Status != enums.PickupStatusScheduled {
		t.Fatalf("status = %s, want scheduled", schedule.Status)
	}
	if len(donationRepo.statusUpdates) != 1 || donationRepo.statusUpdates[0] != enums.DonationStatusPickupScheduled {
		t.Fatalf("donation status updates = %v, want pickup_scheduled", donationRepo.statusUpdates)
	}
	if len(box.events) != 1 || box.events[0].EventType != enums.EventPickupScheduled {
		t.Fatalf("expected pickup_scheduled event, got %v", box.events)
	}
}

func TestScheduleBeforeQuoteAcceptedConflicts(t *testing.T) {
	for _, status := range []enums.DonationStatus{
		enums.DonationStatusPendingReview,
		enums.DonationStatusMatched,
		enums.DonationStatusQuoteSent,
		enums.DonationStatusCompleted,
	} {
		t.Run(status.String(), func(t *testing.T) {
			donation := &models.Donation{ID: uuid.New(), Status: status}
			svc, _ := NewService(&stubPickupRepo{}, &stubDonationRepo{row: donation}, &fakeTx{}, &stubOutbox{})

			_, err := svc.Schedule(context.Background(), ScheduleInput{
				DonationID:  donation.ID,
				PickupDate:  time.Now(),
				ActorUserID: uuid.New(),
				ActorRole:   "admin",
			})
			appErr := pkgerrors.As(err)
			if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
				t.Fatalf("expected state conflict from %s, got %v", status, err)
			}
		})
	}
}

func TestScheduleByOwningBusiness(t *testing.T) {
	orgID := uuid.New()
	donation := &models.Donation{
		ID:            uuid.New(),
		BusinessOrgID: orgID,
		Status:        enums.DonationStatusQuoteAccepted,
	}
	repo := &stubPickupRepo{}
	box := &stubOutbox{}
	svc, _ := NewService(repo, &stubDonationRepo{row: donation}, &fakeTx{}, box)

	schedule, err := svc.Schedule(context.Background(), ScheduleInput{
		DonationID:  donation.ID,
		PickupDate:  time.Now().Add(24 * time.Hour),
		TimeWindow:  "13:00-16:00",
		ActorUserID: uuid.New(),
		ActorOrgID:  &orgID,
		ActorRole:   "business",
	})
	if err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}
	if schedule.Status != enums.PickupStatusScheduled {
		t.Fatalf("status = %s, want scheduled", schedule.Status)
	}
	if len(box.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(box.events))
	}
}

func TestScheduleByOtherBusinessForbidden(t *testing.T) {
	donation := &models.Donation{
		ID:            uuid.New(),
		BusinessOrgID: uuid.New(),
		Status:        enums.DonationStatusQuoteAccepted,
	}
	otherOrg := uuid.New()
	repo := &stubPickupRepo{}
	donationRepo := &stubDonationRepo{row: donation}
	box := &stubOutbox{}
	svc, _ := NewService(repo, donationRepo, &fakeTx{}, box)

	_, err := svc.Schedule(context.Background(), ScheduleInput{
		DonationID:  donation.ID,
		PickupDate:  time.Now().Add(24 * time.Hour),
		ActorUserID: uuid.New(),
		ActorOrgID:  &otherOrg,
		ActorRole:   "business",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if repo.created != nil {
		t.Fatal("schedule created for foreign donation")
	}
	if len(donationRepo.statusUpdates) != 0 {
		t.Fatalf("donation status touched: %v", donationRepo.statusUpdates)
	}
	if len(box.events) != 0 {
		t.Fatalf("expected no events, got %d", len(box.events))
	}
}

func TestScheduleBusinessWithoutOrgContextForbidden(t *testing.T) {
	svc, _ := NewService(&stubPickupRepo{}, &stubDonationRepo{}, &fakeTx{}, &stubOutbox{})

	_, err := svc.Schedule(context.Background(), ScheduleInput{
		DonationID:  uuid.New(),
		PickupDate:  time.Now().Add(24 * time.Hour),
		ActorUserID: uuid.New(),
		ActorRole:   "business",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestScheduleRequiresPickupDate(t *testing.T) {
	svc, _ := NewService(&stubPickupRepo{}, &stubDonationRepo{}, &fakeTx{}, &stubOutbox{})

	_, err := svc.Schedule(context.Background(), ScheduleInput{
		DonationID:  uuid.New(),
		ActorUserID: uuid.New(),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLatestWithoutScheduleNotFound(t *testing.T) {
	svc, _ := NewService(&stubPickupRepo{}, &stubDonationRepo{}, &fakeTx{}, &stubOutbox{})

	_, err := svc.Latest(context.Background(), uuid.New())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

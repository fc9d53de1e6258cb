package receipts

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nanumlink/nanumlink-backend/internal/donations"
	"github.com/nanumlink/nanumlink-backend/internal/matches"
	"github.com/nanumlink/nanumlink-backend/internal/organizations"
	"github.com/nanumlink/nanumlink-backend/internal/quotes"
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

type stubMatchRepo struct {
	row     *models.DonationMatch
	updates map[uuid.UUID]map[string]any
}

func (s *stubMatchRepo) WithTx(tx *gorm.DB) matches.Repository { return s }

func (s *stubMatchRepo) Create(ctx context.Context, match *models.DonationMatch) (*models.DonationMatch, error) {
	return match, nil
}

func (s *stubMatchRepo) Find(ctx context.Context, id uuid.UUID) (*models.DonationMatch, error) {
	if s.row == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.row
	return &copied, nil
}

func (s *stubMatchRepo) FindByPair(ctx context.Context, donationID, beneficiaryOrgID uuid.UUID) (*models.DonationMatch, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubMatchRepo) ListByDonation(ctx context.Context, donationID uuid.UUID) ([]models.DonationMatch, error) {
	return nil, nil
}

func (s *stubMatchRepo) ListForBeneficiary(ctx context.Context, beneficiaryOrgID uuid.UUID, params pagination.Params, filters matches.ListFilters) (*matches.List, error) {
	return nil, nil
}

func (s *stubMatchRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if s.updates == nil {
		s.updates = map[uuid.UUID]map[string]any{}
	}
	s.updates[id] = updates
	return nil
}

func (s *stubMatchRepo) SumAllocated(ctx context.Context, donationID uuid.UUID, excludeMatchID uuid.UUID) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (s *stubMatchRepo) FindDonationForUpdate(ctx context.Context, donationID uuid.UUID) (*models.Donation, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubMatchRepo) ListDonationsAwaitingCompletion(ctx context.Context, limit int) ([]models.Donation, error) {
	return nil, nil
}

type stubDonationRepo struct {
	row       *models.Donation
	updates   []map[string]any
	updateErr error
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
	return nil
}

func (s *stubDonationRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = append(s.updates, updates)
	return nil
}

type stubOrgRepo struct {
	rows map[uuid.UUID]*models.Organization
}

func (s *stubOrgRepo) WithTx(tx *gorm.DB) organizations.Repository { return s }

func (s *stubOrgRepo) Create(ctx context.Context, org *models.Organization) (*models.Organization, error) {
	return org, nil
}

func (s *stubOrgRepo) Find(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	org, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return org, nil
}

func (s *stubOrgRepo) FindByRegistrationNo(ctx context.Context, registrationNo string) (*models.Organization, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrgRepo) List(ctx context.Context, params pagination.Params, filters organizations.ListFilters) (*organizations.List, error) {
	return nil, nil
}

func (s *stubOrgRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

type stubQuoteRepo struct {
	active *models.Quote
}

func (s *stubQuoteRepo) WithTx(tx *gorm.DB) quotes.Repository { return s }

func (s *stubQuoteRepo) Create(ctx context.Context, quote *models.Quote) (*models.Quote, error) {
	return quote, nil
}

func (s *stubQuoteRepo) Find(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubQuoteRepo) FindActive(ctx context.Context, donationID uuid.UUID) (*models.Quote, error) {
	if s.active == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.active, nil
}

func (s *stubQuoteRepo) ListByDonation(ctx context.Context, donationID uuid.UUID) ([]models.Quote, error) {
	return nil, nil
}

func (s *stubQuoteRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubQuoteRepo) CountAcceptedMatches(ctx context.Context, donationID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *stubQuoteRepo) MarkMatchesQuoteSent(ctx context.Context, donationID uuid.UUID) error {
	return nil
}

func (s *stubQuoteRepo) MarkMatchesAccepted(ctx context.Context, donationID uuid.UUID) error {
	return nil
}

type stubUploader struct {
	calls int
	err   error
	key   string
}

func (s *stubUploader) Upload(ctx context.Context, objectKey string, contentType string, data []byte) (string, error) {
	s.calls++
	s.key = objectKey
	if s.err != nil {
		return "", s.err
	}
	return "https://storage.googleapis.com/nanumlink-uploads/" + objectKey, nil
}

type fixture struct {
	match       *stubMatchRepo
	donation    *stubDonationRepo
	orgs        *stubOrgRepo
	quotes      *stubQuoteRepo
	outbox      *stubOutbox
	uploads     *stubUploader
	businessID  uuid.UUID
	beneficiary uuid.UUID
}

func newFixture(t *testing.T) (*fixture, Service) {
	t.Helper()
	businessID := uuid.New()
	beneficiaryID := uuid.New()
	donationID := uuid.New()
	receivedAt := time.Now().Add(-time.Hour)

	f := &fixture{
		match: &stubMatchRepo{row: &models.DonationMatch{
			ID:               uuid.New(),
			DonationID:       donationID,
			BeneficiaryOrgID: beneficiaryID,
			Status:           enums.MatchStatusReceived,
			ReceivedAt:       &receivedAt,
		}},
		donation: &stubDonationRepo{row: &models.Donation{
			ID:            donationID,
			BusinessOrgID: businessID,
			Name:          "Day-old bread",
			Quantity:      decimal.NewFromInt(40),
			Unit:          "loaf",
			Status:        enums.DonationStatusCompleted,
		}},
		orgs: &stubOrgRepo{rows: map[uuid.UUID]*models.Organization{
			businessID:    {ID: businessID, Name: "Haneul Bakery"},
			beneficiaryID: {ID: beneficiaryID, Name: "Green Table Food Bank"},
		}},
		quotes:      &stubQuoteRepo{},
		outbox:      &stubOutbox{},
		uploads:     &stubUploader{},
		businessID:  businessID,
		beneficiary: beneficiaryID,
	}

	svc, err := NewService(f.match, f.donation, f.orgs, f.quotes, &fakeTx{}, f.outbox, f.uploads, nil)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return f, svc
}

func TestIssueRecordsReceiptOnMatch(t *testing.T) {
	f, svc := newFixture(t)

	issued, err := svc.Issue(context.Background(), IssueInput{
		MatchID:     f.match.row.ID,
		ActorUserID: uuid.New(),
		ActorRole:   "admin",
	})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if !strings.HasPrefix(issued.ReceiptNo, "NL-") {
		t.Fatalf("receipt no = %q, want NL- prefix", issued.ReceiptNo)
	}
	if issued.Reissued {
		t.Fatal("first issue should not be flagged as reissue")
	}
	if f.uploads.calls != 1 {
		t.Fatalf("upload calls = %d, want 1", f.uploads.calls)
	}
	updates := f.match.updates[f.match.row.ID]
	if updates["receipt_issued"] != true {
		t.Fatalf("receipt_issued update = %v, want true", updates["receipt_issued"])
	}
	if updates["receipt_file_url"] != issued.ReceiptFileURL {
		t.Fatalf("receipt_file_url update = %v, want %q", updates["receipt_file_url"], issued.ReceiptFileURL)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventReceiptIssued {
		t.Fatalf("expected receipt_issued event, got %v", f.outbox.events)
	}
}

func TestIssueRequiresReceivedMatch(t *testing.T) {
	f, svc := newFixture(t)
	f.match.row.Status = enums.MatchStatusAccepted

	_, err := svc.Issue(context.Background(), IssueInput{MatchID: f.match.row.ID, ActorUserID: uuid.New()})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestIssueReissueNeedsConfirmation(t *testing.T) {
	f, svc := newFixture(t)
	f.match.row.ReceiptIssued = true

	_, err := svc.Issue(context.Background(), IssueInput{MatchID: f.match.row.ID, ActorUserID: uuid.New()})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict without confirmation, got %v", err)
	}

	issued, err := svc.Issue(context.Background(), IssueInput{
		MatchID:        f.match.row.ID,
		ConfirmReissue: true,
		ActorUserID:    uuid.New(),
	})
	if err != nil {
		t.Fatalf("confirmed reissue returned error: %v", err)
	}
	if !issued.Reissued {
		t.Fatal("expected reissue flag on the result")
	}
}

func TestIssueWithAcceptedQuoteValuation(t *testing.T) {
	f, svc := newFixture(t)
	f.quotes.active = &models.Quote{
		ID:         uuid.New(),
		DonationID: f.donation.row.ID,
		UnitPrice:  decimal.RequireFromString("1.50"),
		Status:     enums.QuoteStatusAccepted,
	}

	if _, err := svc.Issue(context.Background(), IssueInput{MatchID: f.match.row.ID, ActorUserID: uuid.New()}); err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
}

func TestIssueCompletesStalledDonation(t *testing.T) {
	f, svc := newFixture(t)
	f.donation.row.Status = enums.DonationStatusPickupScheduled

	if _, err := svc.Issue(context.Background(), IssueInput{MatchID: f.match.row.ID, ActorUserID: uuid.New()}); err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if len(f.donation.updates) != 1 {
		t.Fatalf("donation updates = %d, want one completion write", len(f.donation.updates))
	}
	if f.donation.updates[0]["status"] != enums.DonationStatusCompleted {
		t.Fatalf("donation update = %v, want completed", f.donation.updates[0])
	}
	if len(f.outbox.events) != 2 || f.outbox.events[1].EventType != enums.EventDonationCompleted {
		t.Fatalf("expected receipt_issued then donation_completed, got %v", f.outbox.events)
	}
}

func TestIssueSurvivesCompletionFailure(t *testing.T) {
	f, svc := newFixture(t)
	f.donation.row.Status = enums.DonationStatusPickupScheduled
	f.donation.updateErr = gorm.ErrInvalidDB

	issued, err := svc.Issue(context.Background(), IssueInput{MatchID: f.match.row.ID, ActorUserID: uuid.New()})
	if err != nil {
		t.Fatalf("Issue must succeed despite completion failure: %v", err)
	}
	if !strings.HasPrefix(issued.ReceiptNo, "NL-") {
		t.Fatalf("receipt no = %q", issued.ReceiptNo)
	}
	if f.match.updates[f.match.row.ID]["receipt_issued"] != true {
		t.Fatal("receipt must be recorded on the match either way")
	}
}

func TestIssueUploadFailure(t *testing.T) {
	f, svc := newFixture(t)
	f.uploads.err = errors.New("bucket unavailable")

	_, err := svc.Issue(context.Background(), IssueInput{MatchID: f.match.row.ID, ActorUserID: uuid.New()})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if updates := f.match.updates[f.match.row.ID]; updates != nil {
		t.Fatalf("match must not be updated after failed upload, got %v", updates)
	}
}

func TestIssueUnknownMatch(t *testing.T) {
	f, svc := newFixture(t)
	f.match.row = nil

	_, err := svc.Issue(context.Background(), IssueInput{MatchID: uuid.New(), ActorUserID: uuid.New()})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReceiptNoFormat(t *testing.T) {
	matchID := uuid.MustParse("a1b2c3d4-0000-0000-0000-000000000000")
	issuedAt := time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

	got := receiptNo(matchID, issuedAt)
	if got != "NL-20260314-A1B2C3D4" {
		t.Fatalf("receipt no = %q", got)
	}
}

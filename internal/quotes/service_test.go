package quotes

import (
	"context"
	"testing"

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

type stubQuoteRepo struct {
	created          *models.Quote
	createErr        error
	row              *models.Quote
	findErr          error
	active           *models.Quote
	acceptedCount    int64
	updates          []map[string]any
	quoteSentCalls   int
	revertCalls      int
	listRows         []models.Quote
}

func (s *stubQuoteRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubQuoteRepo) Create(ctx context.Context, quote *models.Quote) (*models.Quote, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if quote.ID == uuid.Nil {
		quote.ID = uuid.New()
	}
	s.created = quote
	return quote, nil
}

func (s *stubQuoteRepo) Find(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.row == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.row
	return &copied, nil
}

func (s *stubQuoteRepo) FindActive(ctx context.Context, donationID uuid.UUID) (*models.Quote, error) {
	if s.active == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.active, nil
}

func (s *stubQuoteRepo) ListByDonation(ctx context.Context, donationID uuid.UUID) ([]models.Quote, error) {
	return s.listRows, nil
}

func (s *stubQuoteRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates = append(s.updates, updates)
	return nil
}

func (s *stubQuoteRepo) CountAcceptedMatches(ctx context.Context, donationID uuid.UUID) (int64, error) {
	return s.acceptedCount, nil
}

func (s *stubQuoteRepo) MarkMatchesQuoteSent(ctx context.Context, donationID uuid.UUID) error {
	s.quoteSentCalls++
	return nil
}

func (s *stubQuoteRepo) MarkMatchesAccepted(ctx context.Context, donationID uuid.UUID) error {
	s.revertCalls++
	return nil
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
	s.row.Status = status
	return nil
}

func (s *stubDonationRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func money(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func newQuoteService(t *testing.T, repo *stubQuoteRepo, donationRepo *stubDonationRepo, box *stubOutbox) Service {
	t.Helper()
	svc, err := NewService(repo, donationRepo, &fakeTx{}, box)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func TestIssueDerivesTotalAmount(t *testing.T) {
	donation := &models.Donation{
		ID:       uuid.New(),
		Quantity: money("40"),
		Status:   enums.DonationStatusMatched,
	}
	repo := &stubQuoteRepo{acceptedCount: 2}
	donationRepo := &stubDonationRepo{row: donation}
	box := &stubOutbox{}
	svc := newQuoteService(t, repo, donationRepo, box)

	quote, err := svc.Issue(context.Background(), IssueInput{
		DonationID:    donation.ID,
		UnitPrice:     money("1.50"),
		LogisticsCost: money("20"),
		ActorUserID:   uuid.New(),
		ActorRole:     "admin",
	})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	// 1.50 * 40 + 20
	if !quote.TotalAmount.Equal(money("80")) {
		t.Fatalf("total = %s, want 80", quote.TotalAmount)
	}
	if quote.Status != enums.QuoteStatusPending {
		t.Fatalf("status = %s, want pending", quote.Status)
	}
	if repo.quoteSentCalls != 1 {
		t.Fatal("expected accepted matches advanced to quote_sent")
	}
	if len(donationRepo.statusUpdates) != 1 || donationRepo.statusUpdates[0] != enums.DonationStatusQuoteSent {
		t.Fatalf("donation status updates = %v, want quote_sent", donationRepo.statusUpdates)
	}
	if len(box.events) != 1 || box.events[0].EventType != enums.EventQuoteIssued {
		t.Fatalf("expected quote_issued event, got %v", box.events)
	}
}

func TestIssueRequiresAcceptedMatch(t *testing.T) {
	donation := &models.Donation{
		ID:       uuid.New(),
		Quantity: money("10"),
		Status:   enums.DonationStatusMatched,
	}
	svc := newQuoteService(t, &stubQuoteRepo{acceptedCount: 0}, &stubDonationRepo{row: donation}, &stubOutbox{})

	_, err := svc.Issue(context.Background(), IssueInput{
		DonationID:  donation.ID,
		UnitPrice:   money("1"),
		ActorUserID: uuid.New(),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestIssueBlocksWhenActiveQuoteExists(t *testing.T) {
	donation := &models.Donation{
		ID:       uuid.New(),
		Quantity: money("10"),
		Status:   enums.DonationStatusMatched,
	}
	repo := &stubQuoteRepo{
		acceptedCount: 1,
		active:        &models.Quote{ID: uuid.New(), Status: enums.QuoteStatusPending},
	}
	svc := newQuoteService(t, repo, &stubDonationRepo{row: donation}, &stubOutbox{})

	_, err := svc.Issue(context.Background(), IssueInput{
		DonationID:  donation.ID,
		UnitPrice:   money("1"),
		ActorUserID: uuid.New(),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestIssueRejectsNegativePricing(t *testing.T) {
	svc := newQuoteService(t, &stubQuoteRepo{}, &stubDonationRepo{}, &stubOutbox{})

	_, err := svc.Issue(context.Background(), IssueInput{
		DonationID:  uuid.New(),
		UnitPrice:   money("-1"),
		ActorUserID: uuid.New(),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIssueRejectsDonationNotReadyForQuote(t *testing.T) {
	donation := &models.Donation{
		ID:       uuid.New(),
		Quantity: money("10"),
		Status:   enums.DonationStatusPendingReview,
	}
	svc := newQuoteService(t, &stubQuoteRepo{acceptedCount: 1}, &stubDonationRepo{row: donation}, &stubOutbox{})

	_, err := svc.Issue(context.Background(), IssueInput{
		DonationID:  donation.ID,
		UnitPrice:   money("1"),
		ActorUserID: uuid.New(),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRespondAcceptAdvancesDonation(t *testing.T) {
	orgID := uuid.New()
	donation := &models.Donation{
		ID:            uuid.New(),
		BusinessOrgID: orgID,
		Quantity:      money("10"),
		Status:        enums.DonationStatusQuoteSent,
	}
	quoteRow := &models.Quote{
		ID:         uuid.New(),
		DonationID: donation.ID,
		Status:     enums.QuoteStatusPending,
	}
	repo := &stubQuoteRepo{row: quoteRow}
	donationRepo := &stubDonationRepo{row: donation}
	box := &stubOutbox{}
	svc := newQuoteService(t, repo, donationRepo, box)

	quote, err := svc.Respond(context.Background(), RespondInput{
		QuoteID:     quoteRow.ID,
		Accept:      true,
		ActorUserID: uuid.New(),
		ActorOrgID:  orgID,
		ActorRole:   "business",
	})
	if err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}
	if quote.Status != enums.QuoteStatusAccepted {
		t.Fatalf("status = %s, want accepted", quote.Status)
	}
	if len(donationRepo.statusUpdates) != 1 || donationRepo.statusUpdates[0] != enums.DonationStatusQuoteAccepted {
		t.Fatalf("donation status updates = %v, want quote_accepted", donationRepo.statusUpdates)
	}
	if repo.revertCalls != 0 {
		t.Fatal("accept must not revert matches")
	}
}

func TestRespondRejectLoopsDonationBackToReview(t *testing.T) {
	orgID := uuid.New()
	donation := &models.Donation{
		ID:            uuid.New(),
		BusinessOrgID: orgID,
		Quantity:      money("10"),
		Status:        enums.DonationStatusQuoteSent,
	}
	quoteRow := &models.Quote{
		ID:         uuid.New(),
		DonationID: donation.ID,
		Status:     enums.QuoteStatusPending,
	}
	repo := &stubQuoteRepo{row: quoteRow}
	donationRepo := &stubDonationRepo{row: donation}
	box := &stubOutbox{}
	svc := newQuoteService(t, repo, donationRepo, box)

	quote, err := svc.Respond(context.Background(), RespondInput{
		QuoteID:     quoteRow.ID,
		Accept:      false,
		ActorUserID: uuid.New(),
		ActorOrgID:  orgID,
	})
	if err != nil {
		t.Fatalf("Respond returned error: %v", err)
	}
	if quote.Status != enums.QuoteStatusRejected {
		t.Fatalf("status = %s, want rejected", quote.Status)
	}
	if len(donationRepo.statusUpdates) != 1 || donationRepo.statusUpdates[0] != enums.DonationStatusPendingReview {
		t.Fatalf("donation status updates = %v, want pending_review loop-back", donationRepo.statusUpdates)
	}
	if repo.revertCalls != 1 {
		t.Fatal("expected quote_sent matches reverted to accepted")
	}
	data := box.events[0].Data.(QuoteRespondedEvent)
	if data.DonationStatus != enums.DonationStatusPendingReview {
		t.Fatalf("event donation status = %s, want pending_review", data.DonationStatus)
	}
}

func TestRespondForeignOrgForbidden(t *testing.T) {
	donation := &models.Donation{
		ID:            uuid.New(),
		BusinessOrgID: uuid.New(),
		Quantity:      money("10"),
		Status:        enums.DonationStatusQuoteSent,
	}
	quoteRow := &models.Quote{
		ID:         uuid.New(),
		DonationID: donation.ID,
		Status:     enums.QuoteStatusPending,
	}
	svc := newQuoteService(t, &stubQuoteRepo{row: quoteRow}, &stubDonationRepo{row: donation}, &stubOutbox{})

	_, err := svc.Respond(context.Background(), RespondInput{
		QuoteID:     quoteRow.ID,
		Accept:      true,
		ActorUserID: uuid.New(),
		ActorOrgID:  uuid.New(),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRespondDecidedQuoteConflicts(t *testing.T) {
	quoteRow := &models.Quote{
		ID:         uuid.New(),
		DonationID: uuid.New(),
		Status:     enums.QuoteStatusRejected,
	}
	svc := newQuoteService(t, &stubQuoteRepo{row: quoteRow}, &stubDonationRepo{}, &stubOutbox{})

	_, err := svc.Respond(context.Background(), RespondInput{
		QuoteID:     quoteRow.ID,
		Accept:      true,
		ActorUserID: uuid.New(),
		ActorOrgID:  uuid.New(),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

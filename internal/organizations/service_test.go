package organizations

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

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

type stubRepo struct {
	created   *models.Organization
	createErr error
	row       *models.Organization
	updates   map[uuid.UUID]map[string]any
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, org *models.Organization) (*models.Organization, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	s.created = org
	return org, nil
}

func (s *stubRepo) Find(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	if s.row == nil {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.row
	return &copied, nil
}

func (s *stubRepo) FindByRegistrationNo(ctx context.Context, registrationNo string) (*models.Organization, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) List(ctx context.Context, params pagination.Params, filters ListFilters) (*List, error) {
	return &List{}, nil
}

func (s *stubRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if s.updates == nil {
		s.updates = map[uuid.UUID]map[string]any{}
	}
	s.updates[id] = updates
	return nil
}

type stubUploader struct {
	calls int
	err   error
}

func (s *stubUploader) Upload(ctx context.Context, objectKey string, contentType string, data []byte) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "https://storage.googleapis.com/nanumlink-uploads/" + objectKey, nil
}

func validRegisterInput() RegisterInput {
	return RegisterInput{
		Type:           enums.OrgTypeBusiness,
		Name:           "  Haneul Bakery  ",
		RegistrationNo: "123-45-67890",
		Representative: "Park Jiwoo",
		Phone:          "02-555-0101",
		Email:          "contact@haneul-bakery.kr",
		Address:        "Seoul, Mapo-gu, World Cup-ro 12",
	}
}

func TestRegisterEntersReviewQueue(t *testing.T) {
	repo := &stubRepo{}
	box := &stubOutbox{}
	svc, err := NewService(repo, &fakeTx{}, box, nil, nil)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	org, err := svc.Register(context.Background(), validRegisterInput())
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if org.Name != "Haneul Bakery" {
		t.Fatalf("name = %q, want trimmed", org.Name)
	}
	if org.ApprovalStatus != enums.OrgApprovalPending {
		t.Fatalf("approval status = %s, want pending", org.ApprovalStatus)
	}
	if len(box.events) != 1 || box.events[0].EventType != enums.EventOrgRegistered {
		t.Fatalf("expected org_registered event, got %v", box.events)
	}
}

func TestRegisterValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{"invalid type", func(in *RegisterInput) { in.Type = enums.OrgType("charity") }},
		{"blank name", func(in *RegisterInput) { in.Name = "   " }},
		{"blank registration number", func(in *RegisterInput) { in.RegistrationNo = "" }},
		{"blank email", func(in *RegisterInput) { in.Email = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := NewService(&stubRepo{}, &fakeTx{}, &stubOutbox{}, nil, nil)
			input := validRegisterInput()
			tc.mutate(&input)

			_, err := svc.Register(context.Background(), input)
			appErr := pkgerrors.As(err)
			if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRegisterDuplicateRegistrationNo(t *testing.T) {
	repo := &stubRepo{createErr: errors.New(`duplicate key value violates unique constraint "ux_organizations_registration_no"`)}
	svc, _ := NewService(repo, &fakeTx{}, &stubOutbox{}, nil, nil)

	_, err := svc.Register(context.Background(), validRegisterInput())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterSurvivesLicenseUploadFailure(t *testing.T) {
	uploads := &stubUploader{err: errors.New("bucket unavailable")}
	repo := &stubRepo{}
	svc, _ := NewService(repo, &fakeTx{}, &stubOutbox{}, uploads, nil)

	input := validRegisterInput()
	input.License = &LicenseUpload{FileName: "license.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}

	org, err := svc.Register(context.Background(), input)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if uploads.calls != 1 {
		t.Fatalf("upload calls = %d, want 1", uploads.calls)
	}
	if org.LicenseFileURL != nil {
		t.Fatalf("license url = %v, want nil after failed upload", *org.LicenseFileURL)
	}
}

func TestRegisterStoresLicenseURL(t *testing.T) {
	uploads := &stubUploader{}
	repo := &stubRepo{}
	svc, _ := NewService(repo, &fakeTx{}, &stubOutbox{}, uploads, nil)

	input := validRegisterInput()
	input.License = &LicenseUpload{FileName: "license.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}

	org, err := svc.Register(context.Background(), input)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if org.LicenseFileURL == nil {
		t.Fatal("expected license url after successful upload")
	}
}

func TestReviewApprovesPendingOrganization(t *testing.T) {
	pending := &models.Organization{
		ID:             uuid.New(),
		Type:           enums.OrgTypeBeneficiary,
		Name:           "Green Table Food Bank",
		ApprovalStatus: enums.OrgApprovalPending,
	}
	repo := &stubRepo{row: pending}
	box := &stubOutbox{}
	svc, _ := NewService(repo, &fakeTx{}, box, nil, nil)

	org, err := svc.Review(context.Background(), ReviewInput{
		OrgID:       pending.ID,
		Approve:     true,
		ActorUserID: uuid.New(),
		ActorRole:   "admin",
	})
	if err != nil {
		t.Fatalf("Review returned error: %v", err)
	}
	if org.ApprovalStatus != enums.OrgApprovalApproved {
		t.Fatalf("approval status = %s, want approved", org.ApprovalStatus)
	}
	if org.ReviewedAt == nil {
		t.Fatal("expected reviewed_at to be set")
	}
	updates := repo.updates[pending.ID]
	if updates["approval_status"] != enums.OrgApprovalApproved {
		t.Fatalf("persisted status = %v, want approved", updates["approval_status"])
	}
	if len(box.events) != 1 || box.events[0].EventType != enums.EventOrgReviewed {
		t.Fatalf("expected org_reviewed event, got %v", box.events)
	}
}

func TestReviewRejectionRequiresReason(t *testing.T) {
	svc, _ := NewService(&stubRepo{}, &fakeTx{}, &stubOutbox{}, nil, nil)

	_, err := svc.Review(context.Background(), ReviewInput{
		OrgID:       uuid.New(),
		Approve:     false,
		Reason:      "   ",
		ActorUserID: uuid.New(),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReviewRejectionStoresReason(t *testing.T) {
	pending := &models.Organization{ID: uuid.New(), ApprovalStatus: enums.OrgApprovalPending}
	repo := &stubRepo{row: pending}
	svc, _ := NewService(repo, &fakeTx{}, &stubOutbox{}, nil, nil)

	org, err := svc.Review(context.Background(), ReviewInput{
		OrgID:       pending.ID,
		Approve:     false,
		Reason:      "business license expired",
		ActorUserID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Review returned error: %v", err)
	}
	if org.ApprovalStatus != enums.OrgApprovalRejected {
		t.Fatalf("approval status = %s, want rejected", org.ApprovalStatus)
	}
	if org.RejectionReason == nil || *org.RejectionReason != "business license expired" {
		t.Fatalf("rejection reason = %v", org.RejectionReason)
	}
	if repo.updates[pending.ID]["rejection_reason"] != "business license expired" {
		t.Fatalf("persisted reason = %v", repo.updates[pending.ID]["rejection_reason"])
	}
}

func TestReviewAlreadyDecidedConflicts(t *testing.T) {
	decided := &models.Organization{ID: uuid.New(), ApprovalStatus: enums.OrgApprovalApproved}
	svc, _ := NewService(&stubRepo{row: decided}, &fakeTx{}, &stubOutbox{}, nil, nil)

	_, err := svc.Review(context.Background(), ReviewInput{
		OrgID:       decided.ID,
		Approve:     true,
		ActorUserID: uuid.New(),
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestGetUnknownOrganization(t *testing.T) {
	svc, _ := NewService(&stubRepo{}, &fakeTx{}, &stubOutbox{}, nil, nil)

	_, err := svc.Get(context.Background(), uuid.New())
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

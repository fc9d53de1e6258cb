package organizations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nanumlink/nanumlink-backend/pkg/db"
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

// LicenseUploader stores license documents and returns stable URLs.
type LicenseUploader interface {
	Upload(ctx context.Context, objectKey string, contentType string, data []byte) (string, error)
}

// Service defines organization registration and review operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Organization, error)
	Review(ctx context.Context, input ReviewInput) (*models.Organization, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*List, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	uploads LicenseUploader
	logg    *logger.Logger
}

// OrgRegisteredEvent is emitted when a registration enters the review queue.
type OrgRegisteredEvent struct {
	OrgID uuid.UUID     `json:"org_id"`
	Type  enums.OrgType `json:"type"`
	Name  string        `json:"name"`
}

// OrgReviewedEvent is emitted when an admin decides a registration.
type OrgReviewedEvent struct {
	OrgID    uuid.UUID               `json:"org_id"`
	Decision enums.OrgApprovalStatus `json:"decision"`
	Reason   string                  `json:"reason,omitempty"`
}

// NewService builds an organizations service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, uploads LicenseUploader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("organizations repository required")
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

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Organization, error) {
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization type must be business or beneficiary")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization name required")
	}
	if strings.TrimSpace(input.RegistrationNo) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "registration number required")
	}
	if strings.TrimSpace(input.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact email required")
	}

	// License upload is best-effort like donation photos: the registration
	// still enters the review queue and the admin can request the document.
	var licenseURL *string
	if s.uploads != nil && input.License != nil {
		key := fmt.Sprintf("licenses/%s/%d_%s", strings.TrimSpace(input.RegistrationNo), time.Now().UnixNano(), input.License.FileName)
		url, err := s.uploads.Upload(ctx, key, input.License.ContentType, input.License.Data)
		if err != nil {
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{"file": input.License.FileName, "error": err.Error()})
				s.logg.Warn(logCtx, "license upload failed, continuing without it")
			}
		} else {
			licenseURL = &url
		}
	}

	org := &models.Organization{
		Type:           input.Type,
		Name:           strings.TrimSpace(input.Name),
		RegistrationNo: strings.TrimSpace(input.RegistrationNo),
		Representative: input.Representative,
		Phone:          input.Phone,
		Email:          strings.TrimSpace(input.Email),
		Address:        input.Address,
		PostalCode:     input.PostalCode,
		LicenseFileURL: licenseURL,
		ApprovalStatus: enums.OrgApprovalPending,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		created, err := repo.Create(ctx, org)
		if err != nil {
			if db.IsUniqueViolation(err, "ux_organizations_registration_no") {
				return pkgerrors.New(pkgerrors.CodeConflict, "registration number already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create organization")
		}
		org = created

		event := outbox.DomainEvent{
			EventType:     enums.EventOrgRegistered,
			AggregateType: enums.AggregateOrganization,
			AggregateID:   org.ID,
			Version:       1,
			Data: OrgRegisteredEvent{
				OrgID: org.ID,
				Type:  org.Type,
				Name:  org.Name,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (s *service) Review(ctx context.Context, input ReviewInput) (*models.Organization, error) {
	if input.OrgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Approve && strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}

	var org *models.Organization
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.Find(ctx, input.OrgID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "organization not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
		}
		if found.ApprovalStatus != enums.OrgApprovalPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "organization has already been reviewed")
		}

		decision := enums.OrgApprovalApproved
		if !input.Approve {
			decision = enums.OrgApprovalRejected
		}

		now := time.Now()
		updates := map[string]any{
			"approval_status": decision,
			"reviewed_at":     now,
		}
		if !input.Approve {
			reason := strings.TrimSpace(input.Reason)
			updates["rejection_reason"] = reason
			found.RejectionReason = &reason
		}
		if err := repo.Update(ctx, found.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update organization")
		}

		found.ApprovalStatus = decision
		found.ReviewedAt = &now
		org = found

		event := outbox.DomainEvent{
			EventType:     enums.EventOrgReviewed,
			AggregateType: enums.AggregateOrganization,
			AggregateID:   found.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole},
			Data: OrgReviewedEvent{
				OrgID:    found.ID,
				Decision: decision,
				Reason:   strings.TrimSpace(input.Reason),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	org, err := s.repo.Find(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "organization not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
	}
	return org, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*List, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list organizations")
	}
	return list, nil
}

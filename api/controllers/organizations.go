package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nanumlink/nanumlink-backend/api/responses"
	"github.com/nanumlink/nanumlink-backend/api/validators"
	"github.com/nanumlink/nanumlink-backend/internal/organizations"
	"github.com/nanumlink/nanumlink-backend/pkg/enums"
	pkgerrors "github.com/nanumlink/nanumlink-backend/pkg/errors"
	"github.com/nanumlink/nanumlink-backend/pkg/logger"
	"github.com/nanumlink/nanumlink-backend/pkg/pagination"
)

type organizationRegisterRequest struct {
	Type           string           `json:"type" validate:"required,oneof=business beneficiary"`
	Name           string           `json:"name" validate:"required"`
	RegistrationNo string           `json:"registration_no" validate:"required"`
	Representative string           `json:"representative" validate:"required"`
	Phone          string           `json:"phone" validate:"required"`
	Email          string           `json:"email" validate:"required,email"`
	Address        string           `json:"address" validate:"required"`
	PostalCode     *string          `json:"postal_code"`
	License        *documentPayload `json:"license"`
}

type documentPayload struct {
	FileName    string `json:"file_name" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
	Data        []byte `json:"data" validate:"required"`
}

// OrganizationRegister handles the public registration endpoint; the created
// organization waits in the admin review queue.
func OrganizationRegister(svc organizations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "organizations service unavailable"))
			return
		}

		var payload organizationRegisterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orgType, err := enums.ParseOrgType(strings.TrimSpace(payload.Type))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid organization type"))
			return
		}

		input := organizations.RegisterInput{
			Type:           orgType,
			Name:           payload.Name,
			RegistrationNo: payload.RegistrationNo,
			Representative: payload.Representative,
			Phone:          payload.Phone,
			Email:          payload.Email,
			Address:        payload.Address,
			PostalCode:     payload.PostalCode,
		}
		if payload.License != nil {
			input.License = &organizations.LicenseUpload{
				FileName:    payload.License.FileName,
				ContentType: payload.License.ContentType,
				Data:        payload.License.Data,
			}
		}

		org, err := svc.Register(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, org)
	}
}

// OrganizationGet returns a single organization.
func OrganizationGet(svc organizations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "organizations service unavailable"))
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "orgID"), "orgID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		org, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, org)
	}
}

// AdminOrganizationList returns the paginated review queue.
func AdminOrganizationList(svc organizations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "organizations service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters := organizations.ListFilters{
			Query: strings.TrimSpace(r.URL.Query().Get("q")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			orgType, err := enums.ParseOrgType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid organization type"))
				return
			}
			filters.Type = &orgType
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("approval_status")); raw != "" {
			status := enums.OrgApprovalStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid approval status"))
				return
			}
			filters.ApprovalStatus = &status
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type organizationReviewRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

// AdminOrganizationReview decides a pending registration.
func AdminOrganizationReview(svc organizations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "organizations service unavailable"))
			return
		}

		orgID, err := validators.PathUUID(chi.URLParam(r, "orgID"), "orgID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload organizationReviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		org, err := svc.Review(r.Context(), organizations.ReviewInput{
			OrgID:       orgID,
			Approve:     payload.Approve,
			Reason:      payload.Reason,
			ActorUserID: userID,
			ActorRole:   actorRole(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, org)
	}
}

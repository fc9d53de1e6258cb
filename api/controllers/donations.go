package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/nanumlink/nanumlink-backend/api/responses"
	"github.com/nanumlink/nanumlink-backend/api/validators"
	"github.com/nanumlink/nanumlink-backend/internal/donations"
	"github.com/nanumlink/nanumlink-backend/pkg/enums"
	pkgerrors "github.com/nanumlink/nanumlink-backend/pkg/errors"
	"github.com/nanumlink/nanumlink-backend/pkg/logger"
	"github.com/nanumlink/nanumlink-backend/pkg/pagination"
)

type donationCreateRequest struct {
	Name           string            `json:"name" validate:"required"`
	Description    string            `json:"description"`
	Quantity       decimal.Decimal   `json:"quantity" validate:"required"`
	Unit           string            `json:"unit" validate:"required"`
	PickupDeadline time.Time         `json:"pickup_deadline" validate:"required"`
	PickupLocation string            `json:"pickup_location" validate:"required"`
	Photos         []documentPayload `json:"photos" validate:"omitempty,dive"`
}

// DonationCreate registers a surplus-goods offer for the caller's business.
func DonationCreate(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "donations service unavailable"))
			return
		}

		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orgID, err := actorOrgID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload donationCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := donations.CreateInput{
			BusinessOrgID:  orgID,
			Name:           payload.Name,
			Description:    payload.Description,
			Quantity:       payload.Quantity,
			Unit:           payload.Unit,
			PickupDeadline: payload.PickupDeadline,
			PickupLocation: payload.PickupLocation,
			ActorUserID:    userID,
			ActorRole:      actorRole(r),
		}
		for _, photo := range payload.Photos {
			input.Photos = append(input.Photos, donations.PhotoUpload{
				FileName:    photo.FileName,
				ContentType: photo.ContentType,
				Data:        photo.Data,
			})
		}

		donation, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, donation)
	}
}

// DonationGet returns one donation with its matches.
func DonationGet(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "donations service unavailable"))
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "donationID"), "donationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		donation, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, donation)
	}
}

// DonationList returns the paginated donation feed. Business members only
// ever see their own organization's donations; admins see everything and may
// filter by organization.
func DonationList(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "donations service unavailable"))
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

		filters := donations.ListFilters{
			Query: strings.TrimSpace(r.URL.Query().Get("q")),
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.DonationStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid donation status"))
				return
			}
			filters.Status = &status
		}

		if filters.DateFrom, err = validators.ParseQueryDate(r, "date_from"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.DateTo, err = validators.ParseQueryDate(r, "date_to"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if actorRole(r) == string(enums.MemberRoleAdmin) {
			if filters.BusinessOrgID, err = validators.ParseQueryUUID(r, "business_org_id"); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		} else {
			orgID, err := actorOrgID(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			filters.BusinessOrgID = &orgID
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

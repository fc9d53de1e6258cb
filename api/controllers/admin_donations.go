package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nanumlink/nanumlink-backend/api/responses"
	"github.com/nanumlink/nanumlink-backend/api/validators"
	"github.com/nanumlink/nanumlink-backend/internal/donations"
	"github.com/nanumlink/nanumlink-backend/internal/matches"
	"github.com/nanumlink/nanumlink-backend/internal/pickups"
	"github.com/nanumlink/nanumlink-backend/internal/quotes"
	pkgerrors "github.com/nanumlink/nanumlink-backend/pkg/errors"
	"github.com/nanumlink/nanumlink-backend/pkg/logger"
)

type donationRejectRequest struct {
	Notes string `json:"notes"`
}

// AdminDonationReject rejects a donation at intake review.
func AdminDonationReject(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "donations service unavailable"))
			return
		}

		donationID, err := validators.PathUUID(chi.URLParam(r, "donationID"), "donationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload donationRejectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		donation, err := svc.RejectIntake(r.Context(), donations.RejectInput{
			DonationID:  donationID,
			Notes:       payload.Notes,
			ActorUserID: userID,
			ActorRole:   actorRole(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, donation)
	}
}

// AdminDonationComplete closes out a donation from any live status.
func AdminDonationComplete(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "donations service unavailable"))
			return
		}

		donationID, err := validators.PathUUID(chi.URLParam(r, "donationID"), "donationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		donation, err := svc.MarkComplete(r.Context(), donations.CompleteInput{
			DonationID:  donationID,
			ActorUserID: userID,
			ActorRole:   actorRole(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, donation)
	}
}

type matchProposeRequest struct {
	BeneficiaryOrgIDs []uuid.UUID `json:"beneficiary_org_ids" validate:"required,min=1"`
}

// AdminMatchPropose fans a donation out to one or more beneficiaries.
func AdminMatchPropose(svc matches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "matches service unavailable"))
			return
		}

		donationID, err := validators.PathUUID(chi.URLParam(r, "donationID"), "donationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload matchProposeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		proposed, err := svc.Propose(r.Context(), matches.ProposeInput{
			DonationID:        donationID,
			BeneficiaryOrgIDs: payload.BeneficiaryOrgIDs,
			ActorUserID:       userID,
			ActorRole:         actorRole(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, proposed)
	}
}

// DonationMatchList returns every match row for one donation.
func DonationMatchList(svc matches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "matches service unavailable"))
			return
		}

		donationID, err := validators.PathUUID(chi.URLParam(r, "donationID"), "donationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListByDonation(r.Context(), donationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// DonationRemainingQuantity reports the still-unallocated quantity.
func DonationRemainingQuantity(svc matches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "matches service unavailable"))
			return
		}

		donationID, err := validators.PathUUID(chi.URLParam(r, "donationID"), "donationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		remaining, err := svc.RemainingQuantity(r.Context(), donationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]decimal.Decimal{"remaining_quantity": remaining})
	}
}

type quoteIssueRequest struct {
	UnitPrice     decimal.Decimal `json:"unit_price" validate:"required"`
	LogisticsCost decimal.Decimal `json:"logistics_cost"`
	PickupDate    *time.Time      `json:"pickup_date"`
	PickupTime    *string         `json:"pickup_time"`
	Notes         *string         `json:"notes"`
}

// AdminQuoteIssue prices a matched donation for its business.
func AdminQuoteIssue(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quotes service unavailable"))
			return
		}

		donationID, err := validators.PathUUID(chi.URLParam(r, "donationID"), "donationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload quoteIssueRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Issue(r.Context(), quotes.IssueInput{
			DonationID:    donationID,
			UnitPrice:     payload.UnitPrice,
			LogisticsCost: payload.LogisticsCost,
			PickupDate:    payload.PickupDate,
			PickupTime:    payload.PickupTime,
			Notes:         payload.Notes,
			ActorUserID:   userID,
			ActorRole:     actorRole(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, quote)
	}
}

// DonationQuoteList returns the quote history for a donation.
func DonationQuoteList(svc quotes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quotes service unavailable"))
			return
		}

		donationID, err := validators.PathUUID(chi.URLParam(r, "donationID"), "donationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListByDonation(r.Context(), donationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type pickupScheduleRequest struct {
	PickupDate time.Time `json:"pickup_date" validate:"required"`
	TimeWindow string    `json:"time_window" validate:"required"`
	StaffName  string    `json:"staff_name"`
	Vehicle    string    `json:"vehicle"`
	Notes      *string   `json:"notes"`
}

// AdminPickupSchedule books collection for an accepted quote.
func AdminPickupSchedule(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pickups service unavailable"))
			return
		}

		donationID, err := validators.PathUUID(chi.URLParam(r, "donationID"), "donationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload pickupScheduleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		schedule, err := svc.Schedule(r.Context(), pickups.ScheduleInput{
			DonationID:  donationID,
			PickupDate:  payload.PickupDate,
			TimeWindow:  payload.TimeWindow,
			StaffName:   payload.StaffName,
			Vehicle:     payload.Vehicle,
			Notes:       payload.Notes,
			ActorUserID: userID,
			ActorRole:   actorRole(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, schedule)
	}
}

// DonationPickupSchedule lets the donating business book collection for its
// own donation. Ownership is enforced against the session organization.
func DonationPickupSchedule(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pickups service unavailable"))
			return
		}

		donationID, err := validators.PathUUID(chi.URLParam(r, "donationID"), "donationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
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

		var payload pickupScheduleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		schedule, err := svc.Schedule(r.Context(), pickups.ScheduleInput{
			DonationID:  donationID,
			PickupDate:  payload.PickupDate,
			TimeWindow:  payload.TimeWindow,
			StaffName:   payload.StaffName,
			Vehicle:     payload.Vehicle,
			Notes:       payload.Notes,
			ActorUserID: userID,
			ActorOrgID:  &orgID,
			ActorRole:   actorRole(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, schedule)
	}
}

// DonationPickupLatest returns the current schedule for a donation.
func DonationPickupLatest(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pickups service unavailable"))
			return
		}

		donationID, err := validators.PathUUID(chi.URLParam(r, "donationID"), "donationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		schedule, err := svc.Latest(r.Context(), donationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, schedule)
	}
}

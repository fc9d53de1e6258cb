package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/nanumlink/nanumlink-backend/api/responses"
	"github.com/nanumlink/nanumlink-backend/api/validators"
	"github.com/nanumlink/nanumlink-backend/internal/matches"
	"github.com/nanumlink/nanumlink-backend/pkg/enums"
	pkgerrors "github.com/nanumlink/nanumlink-backend/pkg/errors"
	"github.com/nanumlink/nanumlink-backend/pkg/logger"
	"github.com/nanumlink/nanumlink-backend/pkg/pagination"
)

// MatchList returns the paginated proposals addressed to the caller's
// beneficiary organization.
func MatchList(svc matches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "matches service unavailable"))
			return
		}

		orgID, err := actorOrgID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
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

		var filters matches.ListFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.MatchStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid match status"))
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

		list, err := svc.ListForBeneficiary(r.Context(), orgID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type matchRespondRequest struct {
	Accept   bool             `json:"accept"`
	Quantity *decimal.Decimal `json:"quantity"`
	Unit     string           `json:"unit"`
	Notes    *string          `json:"notes"`
}

// MatchRespond lets a beneficiary accept or decline a proposal.
func MatchRespond(svc matches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "matches service unavailable"))
			return
		}

		matchID, err := validators.PathUUID(chi.URLParam(r, "matchID"), "matchID")
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

		var payload matchRespondRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		match, err := svc.Respond(r.Context(), matches.RespondInput{
			MatchID:     matchID,
			Accept:      payload.Accept,
			Quantity:    payload.Quantity,
			Unit:        payload.Unit,
			Notes:       payload.Notes,
			ActorUserID: userID,
			ActorOrgID:  orgID,
			ActorRole:   actorRole(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, match)
	}
}

// MatchReceive records physical receipt of the goods.
func MatchReceive(svc matches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "matches service unavailable"))
			return
		}

		matchID, err := validators.PathUUID(chi.URLParam(r, "matchID"), "matchID")
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

		match, err := svc.ConfirmReceipt(r.Context(), matches.ConfirmReceiptInput{
			MatchID:     matchID,
			ActorUserID: userID,
			ActorOrgID:  orgID,
			ActorRole:   actorRole(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, match)
	}
}

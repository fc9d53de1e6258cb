package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nanumlink/nanumlink-backend/api/responses"
	"github.com/nanumlink/nanumlink-backend/api/validators"
	"github.com/nanumlink/nanumlink-backend/internal/receipts"
	pkgerrors "github.com/nanumlink/nanumlink-backend/pkg/errors"
	"github.com/nanumlink/nanumlink-backend/pkg/logger"
)

type receiptIssueRequest struct {
	ConfirmReissue bool `json:"confirm_reissue"`
}

// AdminReceiptIssue renders, stores and records a donation receipt for a
// received match.
func AdminReceiptIssue(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "receipts service unavailable"))
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

		var payload receiptIssueRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issued, err := svc.Issue(r.Context(), receipts.IssueInput{
			MatchID:        matchID,
			ConfirmReissue: payload.ConfirmReissue,
			ActorUserID:    userID,
			ActorRole:      actorRole(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, issued)
	}
}

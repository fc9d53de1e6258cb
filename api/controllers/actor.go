package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nanumlink/nanumlink-backend/api/middleware"
	pkgerrors "github.com/nanumlink/nanumlink-backend/pkg/errors"
)

// actorUserID pulls the authenticated user id out of the request context.
func actorUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}

// actorOrgID pulls the authenticated organization id out of the request
// context; admins carry none and get CodeForbidden.
func actorOrgID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.OrgIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid organization id")
	}
	return id, nil
}

func actorRole(r *http.Request) string {
	return middleware.RoleFromContext(r.Context())
}

package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasklist-api/internal/identity"
	"github.com/BuzzLyutic/tasklist-api/internal/repo"
	"github.com/BuzzLyutic/tasklist-api/internal/service"
	"github.com/BuzzLyutic/tasklist-api/internal/session"
	"github.com/BuzzLyutic/tasklist-api/pkg/respond"
)

// handleErrors is the single place where domain errors become HTTP responses.
func handleErrors(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, session.ErrRevoked):
		respond.Error(w, r, http.StatusUnauthorized, "token has been revoked")
	case errors.Is(err, identity.ErrUnauthenticated):
		respond.Error(w, r, http.StatusUnauthorized, "invalid or expired token")
	case errors.Is(err, identity.ErrProvider):
		logger.Warn("identity provider call failed", zap.Error(err))
		respond.Error(w, r, http.StatusUnauthorized, "authentication with identity provider failed")
	case errors.Is(err, service.ErrUserNotFound):
		respond.Error(w, r, http.StatusNotFound, "user not found")
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrForbidden):
		respond.Error(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrValidation):
		respond.Error(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, repo.ErrorInvalid):
		respond.Error(w, r, http.StatusBadRequest, "validation error")
	case errors.Is(err, repo.ErrorConflict):
		respond.Error(w, r, http.StatusConflict, "conflict")
	default:
		logger.Error("internal error",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}

package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/tasklist-api/internal/identity"
	"github.com/BuzzLyutic/tasklist-api/internal/model"
	"github.com/BuzzLyutic/tasklist-api/pkg/respond"
)

// AuthService covers sign-in, the current user and logout.
type AuthService interface {
	SignIn(ctx context.Context, code string) (identity.TokenSet, error)
	Me(ctx context.Context, username string) (model.User, error)
	Logout(ctx context.Context, token string, expiresAt time.Time) error
}

type AuthHandler struct {
	service AuthService
	logger  *zap.Logger
}

func NewAuthHandler(srv AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: srv,
		logger:  logger,
	}
}

// SignIn handles POST /api/auth/sign-in?code=...
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		respond.Error(w, r, http.StatusBadRequest, "code query parameter is required")
		return
	}

	tokens, err := h.service.SignIn(r.Context(), code)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tokens)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	user, err := h.service.Me(r.Context(), p.Username)
	if err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, toUserResponse(user))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	if err := h.service.Logout(r.Context(), p.Token, p.ExpiresAt); err != nil {
		handleErrors(w, r, h.logger, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, map[string]string{"message": "Logout successful"})
}

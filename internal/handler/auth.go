package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/plantkeeper/internal/apperror"
	"github.com/sakif/plantkeeper/internal/respond"
	"github.com/sakif/plantkeeper/internal/service"
)

// Authenticator exchanges the admin password for a token.
// *service.AuthService satisfies it.
type Authenticator interface {
	Login(password string) (*service.Token, error)
}

var _ Authenticator = (*service.AuthService)(nil)

// AuthHandler issues admin bearer tokens for the write routes.
//
// FLOW:
//
//	POST /api/auth/token {"password": "..."}  →  {"access_token": "...", "token_type": "Bearer", ...}
//	PUT  /api/plants/42  Authorization: Bearer <access_token>
type AuthHandler struct {
	auth   Authenticator
	logger *slog.Logger
}

func NewAuthHandler(auth Authenticator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type tokenRequest struct {
	Password string `json:"password"`
}

// HandleToken verifies the password and returns a token.
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, r, h.logger, apperror.BadRequest("invalid JSON body"))
		return
	}
	if req.Password == "" {
		fail(w, r, h.logger, apperror.ValidationFailed("password", "Missing data for required field."))
		return
	}

	tok, err := h.auth.Login(req.Password)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	respond.OK(w, tok)
}

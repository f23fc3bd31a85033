package handler

import (
	"encoding/json"
	"net/http"
	"teamquest/internal/model"
	"teamquest/internal/service"
	"teamquest/internal/transport/rest/middleware"

	"github.com/rs/zerolog/log"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authSvc *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.authSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Logout handles POST /v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.authSvc.Logout(ctx, middleware.GetSessionID(ctx)); err != nil {
		writeServiceError(w, err)
		return
	}

	log.Info().
		Str("admin_id", middleware.GetAdminID(ctx)).
		Int("team_id", middleware.GetTeamID(ctx)).
		Msg("logged out")
	w.WriteHeader(http.StatusNoContent)
}

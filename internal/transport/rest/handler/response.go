package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"teamquest/internal/service"
	"teamquest/internal/store"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// statusFor maps service and store errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrInvalidRoomConfig),
		errors.Is(err, service.ErrInvalidTeam),
		errors.Is(err, service.ErrInvalidRound),
		errors.Is(err, service.ErrInvalidValue),
		errors.Is(err, service.ErrInvalidEventType),
		errors.Is(err, service.ErrInvalidMiniGame),
		errors.Is(err, service.ErrLeaderRequired):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrIdentityConflict),
		errors.Is(err, service.ErrEventNotExpired),
		errors.Is(err, service.ErrEventNotDismissible):
		return http.StatusConflict
	case errors.Is(err, service.ErrValidationRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrGenerationFailed),
		errors.Is(err, service.ErrJudgeUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrSessionExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("unhandled service error")
	}
	writeError(w, status, err.Error())
}

func pathInt(r *http.Request, name string) (int, error) {
	raw := mux.Vars(r)[name]
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return n, nil
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body")
	}
	return nil
}

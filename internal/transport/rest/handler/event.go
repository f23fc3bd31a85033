package handler

import (
	"net/http"
	"teamquest/internal/model"
	"teamquest/internal/service"

	"github.com/gorilla/mux"
)

// EventHandler handles break/lunch/announcement overlay endpoints
type EventHandler struct {
	eventSvc *service.EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventSvc *service.EventService) *EventHandler {
	return &EventHandler{eventSvc: eventSvc}
}

// ToggleRequest is the request body for toggling an event
type ToggleRequest struct {
	EventType model.EventType `json:"eventType"`
	Minutes   int             `json:"minutes"`
}

// ToggleTeam handles POST /v1/rooms/{roomId}/teams/{teamId}/event
func (h *EventHandler) ToggleTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathInt(r, "teamId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req ToggleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev, err := h.eventSvc.ToggleTeamEvent(r.Context(), mux.Vars(r)["roomId"], teamID, req.EventType, req.Minutes)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"currentEvent": ev})
}

// ToggleAll handles POST /v1/rooms/{roomId}/events
func (h *EventHandler) ToggleAll(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev, err := h.eventSvc.ToggleAllTeamsEvent(r.Context(), mux.Vars(r)["roomId"], req.EventType, req.Minutes)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"currentEvent": ev})
}

// Dismiss handles POST /v1/rooms/{roomId}/teams/{teamId}/event/dismiss
func (h *EventHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathInt(r, "teamId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.eventSvc.EndTeamEvent(r.Context(), mux.Vars(r)["roomId"], teamID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Release handles DELETE /v1/rooms/{roomId}/teams/{teamId}/event
func (h *EventHandler) Release(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathInt(r, "teamId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.eventSvc.ReleaseTeamEvent(r.Context(), mux.Vars(r)["roomId"], teamID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// State handles GET /v1/rooms/{roomId}/teams/{teamId}/event
func (h *EventHandler) State(w http.ResponseWriter, r *http.Request) {
	teamID, err := pathInt(r, "teamId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := h.eventSvc.TeamEventState(r.Context(), mux.Vars(r)["roomId"], teamID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

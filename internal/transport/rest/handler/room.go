package handler

import (
	"errors"
	"net/http"
	"teamquest/internal/service"
	"teamquest/internal/store"

	"github.com/gorilla/mux"
)

// RoomHandler handles room endpoints
type RoomHandler struct {
	roomSvc *service.RoomService
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(roomSvc *service.RoomService) *RoomHandler {
	return &RoomHandler{roomSvc: roomSvc}
}

// Create handles POST /v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRoomRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	room, err := h.roomSvc.CreateRoom(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, room)
}

// List handles GET /v1/rooms. When the store is unreachable the last known
// rooms are still returned, flagged as stale.
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomSvc.ListRooms(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrStoreUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"error": err.Error(),
				"stale": true,
				"rooms": rooms,
			})
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"rooms": rooms})
}

// Get handles GET /v1/rooms/{roomId}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room, err := h.roomSvc.GetRoom(r.Context(), mux.Vars(r)["roomId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// RenameRequest is the request body for renaming a group
type RenameRequest struct {
	GroupName string `json:"groupName"`
}

// Rename handles PUT /v1/rooms/{roomId}/group
func (h *RoomHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	room, err := h.roomSvc.RenameGroup(r.Context(), mux.Vars(r)["roomId"], req.GroupName)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// StartMissionRequest is the request body for starting the mission clock
type StartMissionRequest struct {
	TimerMinutes int `json:"timerMinutes"`
}

// StartMission handles POST /v1/rooms/{roomId}/mission/start
func (h *RoomHandler) StartMission(w http.ResponseWriter, r *http.Request) {
	var req StartMissionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	room, err := h.roomSvc.StartMission(r.Context(), mux.Vars(r)["roomId"], req.TimerMinutes)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, room)
}

// Reset handles POST /v1/rooms/{roomId}/reset
func (h *RoomHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.roomSvc.ResetRoom(r.Context(), mux.Vars(r)["roomId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /v1/rooms/{roomId}
func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.roomSvc.DeleteRoom(r.Context(), mux.Vars(r)["roomId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

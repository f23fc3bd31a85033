package handler

import (
	"net/http"
	"strconv"
	"teamquest/internal/model"
	"teamquest/internal/service"

	"github.com/gorilla/mux"
)

// TeamHandler handles team join and progress endpoints
type TeamHandler struct {
	teamSvc *service.TeamService
	authSvc *service.AuthService
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(teamSvc *service.TeamService, authSvc *service.AuthService) *TeamHandler {
	return &TeamHandler{
		teamSvc: teamSvc,
		authSvc: authSvc,
	}
}

// Join handles POST /v1/rooms/{roomId}/teams/{teamId}/join
func (h *TeamHandler) Join(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomId"]
	teamID, err := pathInt(r, "teamId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req service.JoinRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	team, err := h.teamSvc.JoinTeam(r.Context(), roomID, teamID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	token, err := h.authSvc.IssueLearnerToken(r.Context(), roomID, teamID, team.LeaderName())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.JoinResponse{Token: token, Team: team})
}

// RoundRequest is the request body for moving a team to a round
type RoundRequest struct {
	Round int `json:"round"`
}

// UpdateRound handles PUT /v1/rooms/{roomId}/teams/{teamId}/round
func (h *TeamHandler) UpdateRound(w http.ResponseWriter, r *http.Request) {
	var req RoundRequest
	h.mutate(w, r, &req, func(roomID string, teamID int) (*model.Team, error) {
		return h.teamSvc.UpdateTeamRound(r.Context(), roomID, teamID, req.Round)
	})
}

// InstructionRequest is the request body for a round instruction override
type InstructionRequest struct {
	Text string `json:"text"`
}

// SetInstruction handles PUT /v1/rooms/{roomId}/teams/{teamId}/instructions/{round}
func (h *TeamHandler) SetInstruction(w http.ResponseWriter, r *http.Request) {
	round, err := pathInt(r, "round")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req InstructionRequest
	h.mutate(w, r, &req, func(roomID string, teamID int) (*model.Team, error) {
		return h.teamSvc.SetRoundInstruction(r.Context(), roomID, teamID, round, req.Text)
	})
}

// RecordHelp handles POST /v1/rooms/{roomId}/teams/{teamId}/help
func (h *TeamHandler) RecordHelp(w http.ResponseWriter, r *http.Request) {
	var req RoundRequest
	h.mutate(w, r, &req, func(roomID string, teamID int) (*model.Team, error) {
		return h.teamSvc.RecordHelp(r.Context(), roomID, teamID, req.Round)
	})
}

// RoundTimeRequest is the request body for recording time spent on a round
type RoundTimeRequest struct {
	Seconds int `json:"seconds"`
}

// RecordRoundTime handles PUT /v1/rooms/{roomId}/teams/{teamId}/rounds/{round}/time
func (h *TeamHandler) RecordRoundTime(w http.ResponseWriter, r *http.Request) {
	round, err := pathInt(r, "round")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req RoundTimeRequest
	h.mutate(w, r, &req, func(roomID string, teamID int) (*model.Team, error) {
		return h.teamSvc.RecordRoundTime(r.Context(), roomID, teamID, round, req.Seconds)
	})
}

// BonusRequest is the request body for earned bonus time
type BonusRequest struct {
	Seconds int `json:"seconds"`
}

// AddBonus handles POST /v1/rooms/{roomId}/teams/{teamId}/bonus
func (h *TeamHandler) AddBonus(w http.ResponseWriter, r *http.Request) {
	var req BonusRequest
	h.mutate(w, r, &req, func(roomID string, teamID int) (*model.Team, error) {
		return h.teamSvc.AddBonusTime(r.Context(), roomID, teamID, req.Seconds)
	})
}

// MarkClear handles POST /v1/rooms/{roomId}/teams/{teamId}/clear
func (h *TeamHandler) MarkClear(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, nil, func(roomID string, teamID int) (*model.Team, error) {
		return h.teamSvc.MarkMissionClear(r.Context(), roomID, teamID)
	})
}

// RecordMiniGame handles POST /v1/rooms/{roomId}/teams/{teamId}/minigames/{game}
func (h *TeamHandler) RecordMiniGame(w http.ResponseWriter, r *http.Request) {
	game := model.MiniGame(mux.Vars(r)["game"])
	var req model.MiniGameOutcome
	h.mutate(w, r, &req, func(roomID string, teamID int) (*model.Team, error) {
		return h.teamSvc.RecordMiniGame(r.Context(), roomID, teamID, game, req)
	})
}

// Leaderboard handles GET /v1/rooms/{roomId}/minigames/{game}/leaderboard
func (h *TeamHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	topStr := r.URL.Query().Get("top")
	top := 10
	if topStr != "" {
		if n, err := strconv.Atoi(topStr); err == nil && n > 0 {
			top = n
		}
	}

	entries, err := h.teamSvc.Leaderboard(r.Context(), vars["roomId"], model.MiniGame(vars["game"]), top)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": entries})
}

// mutate decodes body (when non-nil), runs fn for the path's room and team,
// and writes the updated team. A nil team means the team was never joined.
func (h *TeamHandler) mutate(w http.ResponseWriter, r *http.Request, body interface{}, fn func(roomID string, teamID int) (*model.Team, error)) {
	teamID, err := pathInt(r, "teamId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body != nil {
		if err := decode(r, body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	team, err := fn(mux.Vars(r)["roomId"], teamID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if team == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, team)
}

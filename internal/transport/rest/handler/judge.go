package handler

import (
	"errors"
	"net/http"
	"teamquest/internal/model"
	"teamquest/internal/service"

	"github.com/gorilla/mux"
)

// JudgeHandler exposes the AI judge to team screens
type JudgeHandler struct {
	judgeSvc *service.JudgeService
}

// NewJudgeHandler creates a new judge handler
func NewJudgeHandler(judgeSvc *service.JudgeService) *JudgeHandler {
	return &JudgeHandler{judgeSvc: judgeSvc}
}

// VerifyPlant handles POST /v1/rooms/{roomId}/teams/{teamId}/judge/plant
func (h *JudgeHandler) VerifyPlant(w http.ResponseWriter, r *http.Request) {
	var req model.PlantCheckRequest
	if !h.admit(w, r, &req) {
		return
	}
	res, err := h.judgeSvc.VerifyPlant(r.Context(), &req)
	writeVerdict(w, res, err)
}

// EmpathyChat handles POST /v1/rooms/{roomId}/teams/{teamId}/judge/empathy
func (h *JudgeHandler) EmpathyChat(w http.ResponseWriter, r *http.Request) {
	var req model.EmpathyChatRequest
	if !h.admit(w, r, &req) {
		return
	}
	res, err := h.judgeSvc.EmpathyChat(r.Context(), &req)
	writeVerdict(w, res, err)
}

// ValidateReport handles POST /v1/rooms/{roomId}/teams/{teamId}/judge/report
func (h *JudgeHandler) ValidateReport(w http.ResponseWriter, r *http.Request) {
	var req model.ReportCheckRequest
	if !h.admit(w, r, &req) {
		return
	}
	res, err := h.judgeSvc.ValidateReport(r.Context(), &req)
	writeVerdict(w, res, err)
}

// GenerateInfographic handles POST /v1/rooms/{roomId}/teams/{teamId}/judge/infographic
func (h *JudgeHandler) GenerateInfographic(w http.ResponseWriter, r *http.Request) {
	var req model.InfographicRequest
	if !h.admit(w, r, &req) {
		return
	}
	res, err := h.judgeSvc.GenerateInfographic(r.Context(), &req)
	writeVerdict(w, res, err)
}

// admit applies the team's rate limit and decodes the body
func (h *JudgeHandler) admit(w http.ResponseWriter, r *http.Request, body interface{}) bool {
	teamID, err := pathInt(r, "teamId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := h.judgeSvc.Allow(mux.Vars(r)["roomId"], teamID); err != nil {
		writeServiceError(w, err)
		return false
	}
	if err := decode(r, body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// writeVerdict sends the judge result. Rejections and failed generations
// still carry their result body so the UI can show the judge's message.
func writeVerdict[T any](w http.ResponseWriter, res *T, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, res)
		return
	}
	if res != nil && (errors.Is(err, service.ErrValidationRejected) || errors.Is(err, service.ErrGenerationFailed)) {
		writeJSON(w, statusFor(err), res)
		return
	}
	writeServiceError(w, err)
}

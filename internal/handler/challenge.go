package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/ecocycle/internal/service"
)

type ChallengeHandler struct {
	challenges *service.ChallengeService
	logger     *slog.Logger
}

func NewChallengeHandler(challenges *service.ChallengeService, logger *slog.Logger) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges, logger: logger}
}

// HandleList returns the caller's challenges, creating them on first visit.
//
// HTTP: GET /api/challenges
func (h *ChallengeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	challenges, err := h.challenges.List(r.Context(), id)
	if err != nil {
		failed(w, h.logger, "listing challenges failed", err)
		return
	}
	writeJSON(w, http.StatusOK, challenges)
}

type claimResponse struct {
	ChallengeID string `json:"challengeId"`
	Reward      int    `json:"reward"`
}

// HandleClaim pays out a completed challenge.
//
// HTTP: POST /api/challenges/{id}/claim
func (h *ChallengeHandler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	challengeID := chi.URLParam(r, "id")

	reward, err := h.challenges.Claim(r.Context(), id, challengeID)
	if err != nil {
		failed(w, h.logger, "claiming challenge failed", err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{ChallengeID: challengeID, Reward: reward})
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/ecocycle/internal/service"
)

// RewardHandler serves the wallet and its two ways of spending points.
//
//	GET  /api/rewards           wallet, tier and catalog
//	POST /api/rewards/redeem    {"optionId": "coffee"}
//	POST /api/rewards/withdraw  {"optionId": "upi", "amount": 150}
type RewardHandler struct {
	rewards *service.RewardService
	logger  *slog.Logger
}

func NewRewardHandler(rewards *service.RewardService, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewards: rewards, logger: logger}
}

func (h *RewardHandler) HandleWallet(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	wallet, err := h.rewards.Wallet(r.Context(), id)
	if err != nil {
		failed(w, h.logger, "loading wallet failed", err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (h *RewardHandler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var in struct {
		OptionID string `json:"optionId"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	redemption, err := h.rewards.Redeem(r.Context(), id, in.OptionID)
	if err != nil {
		failed(w, h.logger, "redeem failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, redemption)
}

func (h *RewardHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var in struct {
		OptionID string `json:"optionId"`
		Amount   int    `json:"amount"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	redemption, err := h.rewards.Withdraw(r.Context(), id, in.OptionID, in.Amount)
	if err != nil {
		failed(w, h.logger, "withdraw failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, redemption)
}

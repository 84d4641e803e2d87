package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/ecocycle/internal/auth"
	"github.com/sakif/ecocycle/internal/service"
)

// LeaderboardHandler serves GET /api/leaderboard?period=weekly|monthly|allTime.
// The route is public; a signed-in caller also gets their own entry.
type LeaderboardHandler struct {
	board  *service.LeaderboardService
	logger *slog.Logger
}

func NewLeaderboardHandler(board *service.LeaderboardService, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{board: board, logger: logger}
}

func (h *LeaderboardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	period, err := service.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, err)
		return
	}
	id, _ := auth.UserIDFromContext(r.Context())

	board, err := h.board.Get(r.Context(), period, id)
	if err != nil {
		failed(w, h.logger, "loading leaderboard failed", err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/ecocycle/internal/service"
)

type ImpactHandler struct {
	impact *service.ImpactService
	logger *slog.Logger
}

func NewImpactHandler(impact *service.ImpactService, logger *slog.Logger) *ImpactHandler {
	return &ImpactHandler{impact: impact, logger: logger}
}

// HandleGet serves GET /api/impact.
func (h *ImpactHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	report, err := h.impact.Report(r.Context(), id)
	if err != nil {
		failed(w, h.logger, "building impact report failed", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

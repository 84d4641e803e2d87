package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/ecocycle/internal/apperror"
	"github.com/sakif/ecocycle/internal/model"
	"github.com/sakif/ecocycle/internal/service"
)

// UserHandler serves the signed-in user's own data under /api/me.
type UserHandler struct {
	users  *service.UserService
	demo   *service.DemoService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, demo *service.DemoService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, demo: demo, logger: logger}
}

// HandleMe returns the profile with badges and history.
//
// HTTP: GET /api/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	user, err := h.users.Profile(r.Context(), id)
	if err != nil {
		failed(w, h.logger, "loading profile failed", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleHistory returns a page of deposits.
//
// HTTP: GET /api/me/history?limit=20&offset=0
func (h *UserHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, err)
		return
	}

	records, err := h.users.History(r.Context(), id, limit, offset)
	if err != nil {
		failed(w, h.logger, "loading history failed", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *UserHandler) HandleBadges(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	badges, err := h.users.Badges(r.Context(), id)
	if err != nil {
		failed(w, h.logger, "loading badges failed", err)
		return
	}
	writeJSON(w, http.StatusOK, badges)
}

func (h *UserHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	settings, err := h.users.Settings(r.Context(), id)
	if err != nil {
		failed(w, h.logger, "loading settings failed", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *UserHandler) HandlePutSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var settings model.Settings
	if err := decodeJSON(w, r, &settings); err != nil {
		writeError(w, err)
		return
	}
	if err := h.users.SaveSettings(r.Context(), id, settings); err != nil {
		failed(w, h.logger, "saving settings failed", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// HandleSeedDemo fills the caller's account with sample deposits and badges.
//
// HTTP: POST /api/me/demo
func (h *UserHandler) HandleSeedDemo(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	result, err := h.demo.SeedDemo(r.Context(), id)
	if err != nil {
		failed(w, h.logger, "seeding demo data failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// queryInt parses an optional integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}

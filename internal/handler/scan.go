package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/ecocycle/internal/apperror"
	"github.com/sakif/ecocycle/internal/model"
	"github.com/sakif/ecocycle/internal/service"
)

// maxImageBytes bounds uploaded frames.
const maxImageBytes = 8 << 20

// ScanHandler drives the caller's scan session:
//
//	GET    /api/scan           current session
//	DELETE /api/scan           reset
//	POST   /api/scan           classify from a label, dimensions or nothing (demo)
//	POST   /api/scan/image     classify an uploaded image
//	PUT    /api/scan/condition set the item's condition
//	POST   /api/scan/confirm   confirm or correct the type, freezing the reward
//	POST   /api/scan/complete  commit the reward
type ScanHandler struct {
	sessions *service.SessionService
	logger   *slog.Logger
}

func NewScanHandler(sessions *service.SessionService, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{sessions: sessions, logger: logger}
}

func (h *ScanHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.sessions.State(id))
}

func (h *ScanHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	h.sessions.ResetSession(id)
	writeJSON(w, http.StatusOK, h.sessions.State(id))
}

func (h *ScanHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var in service.ScanInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	h.scan(w, r, id, in)
}

// HandleScanImage accepts either a multipart form with an "image" file (and
// optional "binId" field) or the raw image as the request body.
func (h *ScanHandler) HandleScanImage(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)

	var in service.ScanInput
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		in.Image, err = readFormImage(r)
		in.BinID = r.FormValue("binId")
	} else {
		in.Image, err = io.ReadAll(r.Body)
		in.BinID = r.URL.Query().Get("binId")
	}
	if err != nil {
		writeError(w, apperror.ValidationFailed("image", "Could not read image"))
		return
	}
	if len(in.Image) == 0 {
		writeError(w, apperror.ValidationFailed("image", "Image is required"))
		return
	}
	h.scan(w, r, id, in)
}

func readFormImage(r *http.Request) ([]byte, error) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func (h *ScanHandler) scan(w http.ResponseWriter, r *http.Request, id string, in service.ScanInput) {
	result, err := h.sessions.Scan(r.Context(), id, in)
	if err != nil {
		failed(w, h.logger, "scan failed", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ScanHandler) HandleCondition(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var in struct {
		Condition *float64 `json:"condition"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	if in.Condition == nil {
		writeError(w, apperror.ValidationFailed("condition", "condition is required"))
		return
	}
	if err := h.sessions.SetCondition(id, *in.Condition); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessions.State(id))
}

func (h *ScanHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var in struct {
		Confirmed  bool             `json:"confirmed"`
		ManualType model.DeviceType `json:"manualType"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	reward, err := h.sessions.ConfirmDisposal(r.Context(), id, in.Confirmed, in.ManualType)
	if err != nil {
		failed(w, h.logger, "confirm failed", err)
		return
	}
	writeJSON(w, http.StatusOK, reward)
}

type completeResponse struct {
	Completed bool                    `json:"completed"`
	Result    *service.CompleteResult `json:"result,omitempty"`
}

// HandleComplete commits the pending reward. Completing with nothing pending
// is not an error: the response reports completed=false.
func (h *ScanHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	result, err := h.sessions.CompleteSession(r.Context(), id)
	if err != nil {
		failed(w, h.logger, "completing session failed", err)
		return
	}
	writeJSON(w, http.StatusOK, completeResponse{Completed: result != nil, Result: result})
}

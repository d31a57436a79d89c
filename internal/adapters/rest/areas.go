package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ewilliams-labs/jamhub/internal/core/services"
)

type createAreaRequest struct {
	ID string `json:"id"`
}

// CreateArea handles POST /areas
func (h *Handler) CreateArea(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req createAreaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "area id is required")
		return
	}

	area, err := h.registry.CreateArea(req.ID)
	if err != nil {
		if errors.Is(err, services.ErrAreaExists) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Location", "/areas/"+area.ID())
	writeJSON(w, http.StatusCreated, area.Model())
}

// ListAreas handles GET /areas
func (h *Handler) ListAreas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

// GetArea handles GET /areas/{id}
func (h *Handler) GetArea(w http.ResponseWriter, r *http.Request) {
	areaID := r.PathValue("id")
	area, ok := h.registry.Get(areaID)
	if !ok {
		writeError(w, http.StatusNotFound, "area not found")
		return
	}
	writeJSON(w, http.StatusOK, area.Model())
}

// Package rest exposes the read-side HTTP surface: health, area management
// and catalog search. All queue mutation goes through the websocket command
// channel, never through REST.
package rest

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ewilliams-labs/jamhub/internal/core/ports"
	"github.com/ewilliams-labs/jamhub/internal/core/services"
)

// Handler manages the HTTP interface for our application.
type Handler struct {
	registry *services.AreaRegistry
	catalog  ports.CatalogProvider
	router   *http.ServeMux
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(registry *services.AreaRegistry, catalog ports.CatalogProvider) *Handler {
	h := &Handler{
		registry: registry,
		catalog:  catalog,
		router:   http.NewServeMux(),
	}
	h.routes()
	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	h.router.HandleFunc("GET /health", h.HealthCheck)
	h.router.HandleFunc("POST /areas", h.CreateArea)
	h.router.HandleFunc("GET /areas", h.ListAreas)
	h.router.HandleFunc("GET /areas/{id}", h.GetArea)
	h.router.HandleFunc("GET /search", h.Search)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func isJSONContentType(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return ct == "" || strings.HasPrefix(ct, "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

package rest

import "net/http"

// Search handles GET /search?q=term
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		writeError(w, http.StatusBadRequest, "search term is required")
		return
	}

	songs, err := h.catalog.Search(r.Context(), term)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

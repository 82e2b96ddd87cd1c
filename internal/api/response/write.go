package response

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/tapearn/internal/model"
)

// JSON writes a JSON response. Player state changes on every request, so
// responses are never cacheable.
func JSON(w http.ResponseWriter, status int, data any) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Player writes a 200 with the player snapshot
func Player(w http.ResponseWriter, p *model.PlayerState) {
	JSON(w, http.StatusOK, p)
}

// NoContent writes a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}

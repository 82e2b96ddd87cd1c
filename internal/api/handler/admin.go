package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/tapearn/internal/api/request"
	"github.com/mcoot/tapearn/internal/api/response"
	"github.com/mcoot/tapearn/internal/model"
	"github.com/mcoot/tapearn/internal/services/playerstore"
)

// AdminHandler handles /api/admin/users. Requests reach it only through the
// admin key middleware.
type AdminHandler struct {
	players *playerstore.Service
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(players *playerstore.Service) *AdminHandler {
	return &AdminHandler{players: players}
}

// List handles GET /api/admin/users
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	players, err := h.players.ListPlayers(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := response.PlayerListResponse{Users: make([]model.PlayerState, 0, len(players)), Total: len(players)}
	for _, p := range players {
		resp.Users = append(resp.Users, *p)
	}
	response.JSON(w, http.StatusOK, resp)
}

// Get handles GET /api/admin/users/{id}
func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	player, err := h.players.GetPlayer(r.Context(), model.PlayerID(mux.Vars(r)["id"]))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.Player(w, player)
}

// Update handles PUT /api/admin/users/{id}
func (h *AdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req request.AdminUpdateRequest
	if !decode(w, r, &req) {
		return
	}

	player, err := h.players.AdminUpdate(r.Context(), model.PlayerID(mux.Vars(r)["id"]), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.Player(w, player)
}

// Delete handles DELETE /api/admin/users/{id}
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.players.DeletePlayer(r.Context(), model.PlayerID(mux.Vars(r)["id"])); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

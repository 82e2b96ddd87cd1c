package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/tapearn/internal/api/request"
	"github.com/mcoot/tapearn/internal/api/response"
	"github.com/mcoot/tapearn/internal/model"
	"github.com/mcoot/tapearn/internal/services/playerstore"
)

// PlayerHandler handles the player store contract under /api/users
type PlayerHandler struct {
	players *playerstore.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(players *playerstore.Service) *PlayerHandler {
	return &PlayerHandler{
		players: players,
	}
}

// Login handles POST /api/users/login
func (h *PlayerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if !decode(w, r, &req) || !requirePlayerID(w, req.TelegramID) {
		return
	}

	player, isNew, err := h.players.Login(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	response.JSON(w, status, response.LoginResponse{User: *player, IsNewUser: isNew})
}

// Get handles GET /api/users/{id}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.PlayerID(mux.Vars(r)["id"])

	player, err := h.players.Get(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Player(w, player)
}

// Update handles POST /api/users/update
func (h *PlayerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateRequest
	if !decode(w, r, &req) || !requirePlayerID(w, req.TelegramID) {
		return
	}

	player, err := h.players.Update(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Player(w, player)
}

// BuyTapBot handles POST /api/users/buy-tap-bot
func (h *PlayerHandler) BuyTapBot(w http.ResponseWriter, r *http.Request) {
	h.feature(w, r, h.players.BuyTapBot)
}

// ToggleTapBot handles POST /api/users/toggle-tap-bot
func (h *PlayerHandler) ToggleTapBot(w http.ResponseWriter, r *http.Request) {
	h.feature(w, r, h.players.ToggleTapBot)
}

// RefillStamina handles POST /api/users/refill-stamina
func (h *PlayerHandler) RefillStamina(w http.ResponseWriter, r *http.Request) {
	h.feature(w, r, h.players.RefillStamina)
}

// ClaimReferral handles POST /api/users/claim-referral
func (h *PlayerHandler) ClaimReferral(w http.ResponseWriter, r *http.Request) {
	var req request.ClaimReferralRequest
	if !decode(w, r, &req) || !requirePlayerID(w, req.TelegramID) {
		return
	}
	if req.ReferrerUsername == "" {
		WriteError(w, NewInvalidRequestError("referrerUsername is required"))
		return
	}

	player, err := h.players.ClaimReferral(r.Context(), req.TelegramID, req.ReferrerUsername)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Player(w, player)
}

// ReferralLeaderboard handles GET /api/users/referral-leaderboard
func (h *PlayerHandler) ReferralLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteError(w, NewInvalidRequestError("limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := h.players.ReferralLeaderboard(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := response.LeaderboardResponse{Entries: make([]response.LeaderboardEntry, 0, len(entries))}
	for i, e := range entries {
		resp.Entries = append(resp.Entries, response.LeaderboardEntry{
			Rank:       i + 1,
			TelegramID: e.Player.PlayerID,
			Username:   e.Player.Username,
			Referrals:  e.Referrals,
		})
	}
	response.JSON(w, http.StatusOK, resp)
}

func (h *PlayerHandler) feature(w http.ResponseWriter, r *http.Request, action func(context.Context, model.PlayerID) (*model.PlayerState, error)) {
	var req request.PlayerRequest
	if !decode(w, r, &req) || !requirePlayerID(w, req.TelegramID) {
		return
	}

	player, err := action(r.Context(), req.TelegramID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Player(w, player)
}

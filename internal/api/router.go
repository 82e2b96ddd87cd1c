package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/tapearn/internal/api/handler"
	"github.com/mcoot/tapearn/internal/api/middleware"
	"github.com/mcoot/tapearn/internal/api/response"
	"github.com/mcoot/tapearn/internal/services/auth"
	"github.com/mcoot/tapearn/internal/services/playerstore"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	AuthService *auth.Service
	Players     *playerstore.Service
	// StorageName is reported by the health endpoint
	StorageName string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	playerHandler := handler.NewPlayerHandler(cfg.Players)
	adminHandler := handler.NewAdminHandler(cfg.Players)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))

	// Player store contract. The leaderboard is registered before {id} so it is not taken for a player id.
	users := api.PathPrefix("/users").Subrouter()
	users.HandleFunc("/referral-leaderboard", playerHandler.ReferralLeaderboard).Methods(http.MethodGet)
	users.HandleFunc("/login", playerHandler.Login).Methods(http.MethodPost)
	users.HandleFunc("/update", playerHandler.Update).Methods(http.MethodPost)
	users.HandleFunc("/buy-tap-bot", playerHandler.BuyTapBot).Methods(http.MethodPost)
	users.HandleFunc("/toggle-tap-bot", playerHandler.ToggleTapBot).Methods(http.MethodPost)
	users.HandleFunc("/refill-stamina", playerHandler.RefillStamina).Methods(http.MethodPost)
	users.HandleFunc("/claim-referral", playerHandler.ClaimReferral).Methods(http.MethodPost)
	users.HandleFunc("/{id}", playerHandler.Get).Methods(http.MethodGet)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AdminKey(cfg.AuthService))
	admin.HandleFunc("/users", adminHandler.List).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}", adminHandler.Get).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}", adminHandler.Update).Methods(http.MethodPut)
	admin.HandleFunc("/users/{id}", adminHandler.Delete).Methods(http.MethodDelete)

	api.HandleFunc("/health", healthHandler(cfg.StorageName)).Methods(http.MethodGet)

	return r
}

func healthHandler(storage string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, response.HealthResponse{Status: "ok", Storage: storage})
	}
}

package response

import (
	"github.com/mcoot/tapearn/internal/model"
)

// LoginResponse is the response for POST /users/login
type LoginResponse struct {
	User      model.PlayerState `json:"user"`
	IsNewUser bool              `json:"isNewUser"`
}

// LeaderboardEntry is one row of the referral leaderboard
type LeaderboardEntry struct {
	Rank       int            `json:"rank"`
	TelegramID model.PlayerID `json:"telegramId"`
	Username   string         `json:"username"`
	Referrals  int            `json:"referrals"`
}

// LeaderboardResponse is the response for GET /users/referral-leaderboard
type LeaderboardResponse struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// PlayerListResponse is the response for GET /admin/users
type PlayerListResponse struct {
	Users []model.PlayerState `json:"users"`
	Total int                 `json:"total"`
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

// ErrorBody is the error payload of every failed request
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	// RetryAfterSeconds is set on rate-limit errors
	RetryAfterSeconds int64 `json:"retryAfterSeconds,omitempty"`
}

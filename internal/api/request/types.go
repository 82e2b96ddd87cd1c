package request

import (
	"time"

	"github.com/mcoot/tapearn/internal/model"
)

// LoginRequest is the request body for POST /users/login
type LoginRequest struct {
	TelegramID model.PlayerID `json:"telegramId"`
	Username   string         `json:"username"`
	FullName   string         `json:"fullName"`
	// Referrer is an optional player id or username that invited this player
	Referrer string `json:"referrer,omitempty"`
}

// PlayerRequest is the request body for feature endpoints that only need the player
type PlayerRequest struct {
	TelegramID model.PlayerID `json:"telegramId"`
}

// ClaimReferralRequest is the request body for POST /users/claim-referral
type ClaimReferralRequest struct {
	TelegramID       model.PlayerID `json:"telegramId"`
	ReferrerUsername string         `json:"referrerUsername"`
}

// UpdateRequest is a partial player state. Nil fields are left untouched.
// Balance only moves by BalanceDelta so credits applied by other endpoints
// survive. Tap-bot ownership and referrals are only changed by their own endpoints.
type UpdateRequest struct {
	TelegramID model.PlayerID `json:"telegramId"`

	BalanceDelta           int64      `json:"balanceDelta,omitempty"`
	Stamina                *int       `json:"stamina,omitempty"`
	StaminaRegenIntervalMs *int64     `json:"staminaRegenSpeed,omitempty"`
	LastRegenAt            *time.Time `json:"lastRegenAt,omitempty"`
	Multiplier             *int       `json:"multiplier,omitempty"`
	LastAutoTapAt          *time.Time `json:"lastAutoTapAt,omitempty"`

	PackageTier      *model.PackageTier `json:"packageType,omitempty"`
	PackageExpiresAt *time.Time         `json:"packageExpiresAt,omitempty"`

	DailyCounters     map[model.Feature]model.DailyCounter `json:"dailyCounters,omitempty"`
	LastDailyRewardAt *time.Time                           `json:"lastDailyRewardAt,omitempty"`
	ClaimedTaskIDs    []model.TaskID                       `json:"claimedTasks,omitempty"`
}

// UpdateFromState builds a full-snapshot update of the fields a client may push.
// balanceDelta is the change the pushed action made to the balance.
func UpdateFromState(s model.PlayerState, balanceDelta int64) UpdateRequest {
	s = s.Clone()
	req := UpdateRequest{
		TelegramID:             s.PlayerID,
		BalanceDelta:           balanceDelta,
		Stamina:                &s.Stamina,
		StaminaRegenIntervalMs: &s.StaminaRegenIntervalMs,
		LastRegenAt:            &s.LastRegenAt,
		Multiplier:             &s.Multiplier,
		PackageTier:            &s.PackageTier,
		PackageExpiresAt:       s.PackageExpiresAt,
		DailyCounters:          s.DailyCounters,
		LastDailyRewardAt:      s.LastDailyRewardAt,
		ClaimedTaskIDs:         s.ClaimedTaskIDs,
	}
	if !s.LastAutoTapAt.IsZero() {
		req.LastAutoTapAt = &s.LastAutoTapAt
	}
	return req
}

// AdminUpdateRequest is the request body for PUT /admin/users/{id}.
// Unlike UpdateRequest it can set any field and bypasses the merge rules.
type AdminUpdateRequest struct {
	Balance          *int64             `json:"balance,omitempty"`
	Stamina          *int               `json:"stamina,omitempty"`
	Multiplier       *int               `json:"multiplier,omitempty"`
	HasTapBot        *bool              `json:"hasTapBot,omitempty"`
	PackageTier      *model.PackageTier `json:"packageType,omitempty"`
	PackageExpiresAt *time.Time         `json:"packageExpiresAt,omitempty"`
}

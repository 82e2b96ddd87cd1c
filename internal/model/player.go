package model

import (
	"slices"
	"time"
)

// PlayerID is the opaque platform user id (the chat platform's user id)
type PlayerID string

// TaskID identifies a one-off task
type TaskID string

// PlayerState is the mutable resource state of a player.
// It is owned by the resource engine and mirrored by the local cache and the remote store.
type PlayerState struct {
	PlayerID PlayerID `json:"telegramId"`
	Username string   `json:"username,omitempty"`
	FullName string   `json:"fullName,omitempty"`

	Balance int64 `json:"balance"`

	Stamina                int       `json:"stamina"`
	MaxStamina             int       `json:"maxStamina"`
	StaminaRegenIntervalMs int64     `json:"staminaRegenSpeed"`
	LastRegenAt            time.Time `json:"lastRegenAt"`

	Multiplier int `json:"multiplier"`

	HasAutoTapper    bool      `json:"hasTapBot"`
	AutoTapperActive bool      `json:"tapBotActive"`
	LastAutoTapAt    time.Time `json:"lastAutoTapAt"`

	PackageTier      PackageTier `json:"packageType"`
	PackageExpiresAt *time.Time  `json:"packageExpiresAt"`

	DailyCounters     map[Feature]DailyCounter `json:"dailyCounters"`
	LastDailyRewardAt *time.Time               `json:"lastDailyRewardAt"`

	ClaimedTaskIDs []TaskID   `json:"claimedTasks"`
	ReferredBy     *PlayerID  `json:"referredBy"`
	Referrals      []PlayerID `json:"referrals"`

	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a deep copy so engines can build a new state without aliasing the old one
func (p PlayerState) Clone() PlayerState {
	out := p
	if p.PackageExpiresAt != nil {
		t := *p.PackageExpiresAt
		out.PackageExpiresAt = &t
	}
	if p.LastDailyRewardAt != nil {
		t := *p.LastDailyRewardAt
		out.LastDailyRewardAt = &t
	}
	if p.ReferredBy != nil {
		r := *p.ReferredBy
		out.ReferredBy = &r
	}
	if p.DailyCounters != nil {
		out.DailyCounters = make(map[Feature]DailyCounter, len(p.DailyCounters))
		for k, v := range p.DailyCounters {
			out.DailyCounters[k] = v
		}
	}
	out.ClaimedTaskIDs = slices.Clone(p.ClaimedTaskIDs)
	out.Referrals = slices.Clone(p.Referrals)
	return out
}

// HasClaimedTask reports whether the task was already rewarded
func (p PlayerState) HasClaimedTask(id TaskID) bool {
	return slices.Contains(p.ClaimedTaskIDs, id)
}

// HasReferral reports whether the given player is in the referrals list
func (p PlayerState) HasReferral(id PlayerID) bool {
	return slices.Contains(p.Referrals, id)
}

// IsVIP reports whether a paid package is recorded. Callers must evaluate expiry first.
func (p PlayerState) IsVIP() bool {
	return p.PackageTier != TierFree && p.PackageTier != ""
}

// Counter returns the stored counter for a feature (zero value if never used)
func (p PlayerState) Counter(f Feature) DailyCounter {
	if p.DailyCounters == nil {
		return DailyCounter{}
	}
	return p.DailyCounters[f]
}

// LocalState is per-device UI state that never leaves the local cache
// and is unaffected by reconciliation.
type LocalState struct {
	VisitedTaskIDs []TaskID `json:"visitedTasks"`
}

// HasVisited reports whether the task's link was opened on this device
func (l LocalState) HasVisited(id TaskID) bool {
	return slices.Contains(l.VisitedTaskIDs, id)
}

// Clone returns a deep copy
func (l LocalState) Clone() LocalState {
	return LocalState{VisitedTaskIDs: slices.Clone(l.VisitedTaskIDs)}
}

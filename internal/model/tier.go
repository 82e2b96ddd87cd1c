package model

import "fmt"

// PackageTier is a subscription-like entitlement level
type PackageTier string

const (
	TierFree   PackageTier = "free"
	TierBronze PackageTier = "bronze"
	TierSilver PackageTier = "silver"
	TierGold   PackageTier = "gold"
)

// Tiers lists every tier from lowest to highest
var Tiers = []PackageTier{TierFree, TierBronze, TierSilver, TierGold}

// Rank orders tiers; unknown tiers rank -1
func (t PackageTier) Rank() int {
	for i, tier := range Tiers {
		if tier == t {
			return i
		}
	}
	return -1
}

// Valid reports whether t is a known tier
func (t PackageTier) Valid() bool {
	return t.Rank() >= 0
}

// ParsePackageTier converts user input to a tier
func ParsePackageTier(s string) (PackageTier, error) {
	t := PackageTier(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPackage, s)
	}
	return t, nil
}

// Feature identifies a daily-limited action
type Feature string

const (
	FeatureSpins             Feature = "spins"
	FeatureStaminaRefills    Feature = "staminaRefills"
	FeatureAutoTapperToggles Feature = "autoTapperToggles"

	// FeatureDailyReward is cooldown-gated rather than counted
	FeatureDailyReward Feature = "dailyReward"
)

// CountedFeatures lists the features tracked in PlayerState.DailyCounters
var CountedFeatures = []Feature{FeatureSpins, FeatureStaminaRefills, FeatureAutoTapperToggles}

// DailyCounter tracks usage of a feature for a single day
type DailyCounter struct {
	Count  int    `json:"count"`
	DayKey string `json:"dayKey"`
}

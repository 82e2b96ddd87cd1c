package economy

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcoot/tapearn/internal/model"
)

// PayoutEntry is one slot on the spin wheel
type PayoutEntry struct {
	ID     string `yaml:"id" json:"id"`
	Label  string `yaml:"label" json:"label"`
	Amount int64  `yaml:"amount" json:"amount"`
}

// Task is a one-off action rewarded once per player
type Task struct {
	ID     model.TaskID `yaml:"id" json:"id"`
	Action string       `yaml:"action" json:"action"`
	URL    string       `yaml:"url" json:"url,omitempty"`
	Reward int64        `yaml:"reward" json:"reward"`
}

// PackageOffer is the price of a paid tier
type PackageOffer struct {
	Label string `yaml:"label"`
	// PriceNano is the price in the payment currency's smallest unit
	PriceNano int64 `yaml:"price_nano"`
}

// Config holds the product configuration of the economy.
// None of these values are protocol: they can be tuned per deployment.
type Config struct {
	MaxStamina             int   `yaml:"max_stamina"`
	DefaultRegenIntervalMs int64 `yaml:"default_regen_interval_ms"`
	MinRegenIntervalMs     int64 `yaml:"min_regen_interval_ms"`
	RegenStepMs            int64 `yaml:"regen_step_ms"`
	RegenUpgradeCost       int64 `yaml:"regen_upgrade_cost"`

	MaxMultiplier  int   `yaml:"max_multiplier"`
	MultiplierCost int64 `yaml:"multiplier_cost"`

	AutoTapperCost       int64 `yaml:"auto_tapper_cost"`
	AutoTapperIntervalMs int64 `yaml:"auto_tapper_interval_ms"`
	// AutoTapperMaxOffline caps how far back an active auto-tapper is replayed
	AutoTapperMaxOffline time.Duration `yaml:"auto_tapper_max_offline"`

	StaminaRefillCost int64 `yaml:"stamina_refill_cost"`

	DailyReward         int64         `yaml:"daily_reward"`
	DailyRewardCooldown time.Duration `yaml:"daily_reward_cooldown"`

	RefereeReward  int64 `yaml:"referee_reward"`
	ReferrerReward int64 `yaml:"referrer_reward"`

	PackageDuration time.Duration                      `yaml:"package_duration"`
	Packages        map[model.PackageTier]PackageOffer `yaml:"packages"`

	// DailyLimits maps feature -> tier -> uses per day
	DailyLimits map[model.Feature]map[model.PackageTier]int `yaml:"daily_limits"`

	SpinTable []PayoutEntry `yaml:"spin_table"`
	Tasks     []Task        `yaml:"tasks"`
}

// Default returns the reference economy
func Default() Config {
	return Config{
		MaxStamina:             100,
		DefaultRegenIntervalMs: 10000,
		MinRegenIntervalMs:     2000,
		RegenStepMs:            1000,
		RegenUpgradeCost:       80,

		MaxMultiplier:  20,
		MultiplierCost: 50,

		AutoTapperCost:       100,
		AutoTapperIntervalMs: 3000,
		AutoTapperMaxOffline: 24 * time.Hour,

		DailyReward:         100,
		DailyRewardCooldown: 24 * time.Hour,

		RefereeReward:  20,
		ReferrerReward: 20,

		PackageDuration: 180 * 24 * time.Hour,
		Packages: map[model.PackageTier]PackageOffer{
			model.TierBronze: {Label: "Bronze", PriceNano: 10_000_000_000},
			model.TierSilver: {Label: "Silver", PriceNano: 25_000_000_000},
			model.TierGold:   {Label: "Gold", PriceNano: 40_000_000_000},
		},

		DailyLimits: map[model.Feature]map[model.PackageTier]int{
			model.FeatureSpins: {
				model.TierFree: 1, model.TierBronze: 4, model.TierSilver: 10, model.TierGold: 20,
			},
			model.FeatureStaminaRefills: {
				model.TierFree: 4, model.TierBronze: 4, model.TierSilver: 4, model.TierGold: 4,
			},
			model.FeatureAutoTapperToggles: {
				model.TierFree: 4, model.TierBronze: 4, model.TierSilver: 4, model.TierGold: 4,
			},
		},

		SpinTable: []PayoutEntry{
			{ID: "coins-0", Label: "+0", Amount: 0},
			{ID: "coins-10", Label: "+10", Amount: 10},
			{ID: "coins-1000", Label: "+1000", Amount: 1000},
			{ID: "coins-5000", Label: "+5000", Amount: 5000},
			{ID: "miss", Label: "ZERO", Amount: 0},
			{ID: "coins-10000", Label: "+10000", Amount: 10000},
			{ID: "coins-15", Label: "+15", Amount: 15},
			{ID: "coins-5", Label: "+5", Amount: 5},
		},

		Tasks: []Task{
			{ID: "follow-twitter", Action: "Follow us on Twitter", Reward: 10},
			{ID: "join-telegram", Action: "Join Telegram Group", Reward: 8},
			{ID: "refer-friend", Action: "Refer a Friend", Reward: 20},
		},
	}
}

// Load reads a YAML economy file. Fields absent from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("economy %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("economy %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the invariants the engines rely on
func (c Config) Validate() error {
	var errs []error
	if c.MaxStamina <= 0 {
		errs = append(errs, errors.New("max_stamina must be positive"))
	}
	if c.MinRegenIntervalMs <= 0 || c.DefaultRegenIntervalMs < c.MinRegenIntervalMs {
		errs = append(errs, errors.New("regen intervals must satisfy 0 < min <= default"))
	}
	if c.RegenStepMs <= 0 {
		errs = append(errs, errors.New("regen_step_ms must be positive"))
	}
	if c.MaxMultiplier < 1 {
		errs = append(errs, errors.New("max_multiplier must be at least 1"))
	}
	if c.AutoTapperIntervalMs <= 0 || c.AutoTapperMaxOffline <= 0 {
		errs = append(errs, errors.New("auto_tapper_interval_ms and auto_tapper_max_offline must be positive"))
	}
	if len(c.SpinTable) == 0 {
		errs = append(errs, errors.New("spin_table must not be empty"))
	}
	for _, e := range c.SpinTable {
		if e.Amount < 0 {
			errs = append(errs, fmt.Errorf("spin_table entry %q has negative amount", e.ID))
		}
	}
	seen := make(map[model.TaskID]bool)
	for _, t := range c.Tasks {
		if t.ID == "" || t.Reward < 0 {
			errs = append(errs, fmt.Errorf("task %q is invalid", t.ID))
		}
		if seen[t.ID] {
			errs = append(errs, fmt.Errorf("task %q is duplicated", t.ID))
		}
		seen[t.ID] = true
	}
	for _, cost := range []int64{c.MultiplierCost, c.RegenUpgradeCost, c.AutoTapperCost, c.StaminaRefillCost} {
		if cost < 0 {
			errs = append(errs, errors.New("costs must not be negative"))
			break
		}
	}
	for _, f := range model.CountedFeatures {
		if _, ok := c.DailyLimits[f]; !ok {
			errs = append(errs, fmt.Errorf("daily_limits missing feature %q", f))
		}
	}
	return errors.Join(errs...)
}

// NewPlayer returns the initial state for a player seen for the first time
func (c Config) NewPlayer(id model.PlayerID, username, fullName string, now time.Time) model.PlayerState {
	return model.PlayerState{
		PlayerID:               id,
		Username:               username,
		FullName:               fullName,
		Stamina:                c.MaxStamina,
		MaxStamina:             c.MaxStamina,
		StaminaRegenIntervalMs: c.DefaultRegenIntervalMs,
		LastRegenAt:            now,
		Multiplier:             1,
		PackageTier:            model.TierFree,
		DailyCounters:          make(map[model.Feature]model.DailyCounter),
		ClaimedTaskIDs:         []model.TaskID{},
		Referrals:              []model.PlayerID{},
		CreatedAt:              now,
	}
}

// DailyLimit returns the per-day limit of a counted feature for a tier
func (c Config) DailyLimit(f model.Feature, tier model.PackageTier) (int, error) {
	byTier, ok := c.DailyLimits[f]
	if !ok {
		return 0, fmt.Errorf("%w: %s", model.ErrUnknownFeature, f)
	}
	if tier == "" {
		tier = model.TierFree
	}
	return byTier[tier], nil
}

// Task looks up a task in the catalog
func (c Config) Task(id model.TaskID) (Task, bool) {
	for _, t := range c.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// AutoTapperInterval returns how often an active auto-tapper taps
func (c Config) AutoTapperInterval() time.Duration {
	return time.Duration(c.AutoTapperIntervalMs) * time.Millisecond
}

package resource

import (
	"time"

	"github.com/mcoot/tapearn/internal/economy"
	"github.com/mcoot/tapearn/internal/model"
)

// Engine owns balance, stamina, multiplier, regen speed and package expiry.
// Every operation takes a state by value and returns the new state; when an
// error is returned the caller keeps its original state, so a rejected action
// never mutates anything.
type Engine struct {
	cfg economy.Config
}

// New creates a new resource Engine
func New(cfg economy.Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the economy the engine was built with
func (e *Engine) Config() economy.Config {
	return e.cfg
}

// SettleReport describes what a Settle call changed
type SettleReport struct {
	PackageExpired bool
	AutoTaps       int
	Earned         int64
}

// Settle brings a state up to date with the wall clock: package expiry,
// auto-tapper firing and stamina regeneration. It is idempotent for a given now.
func (e *Engine) Settle(s model.PlayerState, now time.Time) (model.PlayerState, SettleReport) {
	var report SettleReport

	expired := e.EvaluatePackageExpiry(s, now)
	report.PackageExpired = expired.PackageTier != s.PackageTier
	s = expired

	before := s.Balance
	s, report.AutoTaps = e.SettleAutoTapper(s, now)
	report.Earned = s.Balance - before

	s = e.RegenerateStamina(s, now)
	return s, report
}

// RegenerateStamina adds one stamina unit per whole regen interval elapsed
// since LastRegenAt, capped at max stamina. LastRegenAt advances only by the
// consumed whole intervals, so the remainder carries into the next call.
func (e *Engine) RegenerateStamina(s model.PlayerState, now time.Time) model.PlayerState {
	if s.LastRegenAt.IsZero() {
		s.LastRegenAt = now
		return s
	}
	if !now.After(s.LastRegenAt) {
		return s
	}

	interval := e.RegenInterval(s)
	units := int64(now.Sub(s.LastRegenAt) / interval)
	if units == 0 {
		return s
	}
	s.LastRegenAt = s.LastRegenAt.Add(time.Duration(units) * interval)

	limit := e.MaxStamina(s)
	if s.Stamina < limit {
		gain := int64(limit - s.Stamina)
		if units < gain {
			gain = units
		}
		s.Stamina += int(gain)
	}
	if s.Stamina > limit {
		s.Stamina = limit
	}
	return s
}

// SettleAutoTapper replays the taps an active auto-tapper made since
// LastAutoTapAt. Stamina regenerates between ticks, so a drained bot keeps
// tapping every unit that regenerates.
func (e *Engine) SettleAutoTapper(s model.PlayerState, now time.Time) (model.PlayerState, int) {
	if !s.HasAutoTapper || !s.AutoTapperActive {
		return s, 0
	}
	if s.LastAutoTapAt.IsZero() || s.LastAutoTapAt.After(now) {
		s.LastAutoTapAt = now
		return s, 0
	}

	if horizon := now.Add(-e.cfg.AutoTapperMaxOffline); s.LastAutoTapAt.Before(horizon) {
		s = e.RegenerateStamina(s, horizon)
		s.LastAutoTapAt = horizon
	}

	interval := e.cfg.AutoTapperInterval()
	taps := 0
	for next := s.LastAutoTapAt.Add(interval); !next.After(now); next = next.Add(interval) {
		s = e.RegenerateStamina(s, next)
		s.LastAutoTapAt = next
		if s.Stamina > 0 {
			s.Stamina--
			s.Balance += int64(s.Multiplier)
			taps++
		}
	}
	return s, taps
}

// SpendStamina removes amount stamina, failing if not enough is available
func (e *Engine) SpendStamina(s model.PlayerState, amount int) (model.PlayerState, error) {
	if amount <= 0 {
		return s, model.ErrInvalidAmount
	}
	if s.Stamina < amount {
		return s, &model.ResourceError{Resource: model.ResourceStamina, Have: int64(s.Stamina), Need: int64(amount)}
	}
	s.Stamina -= amount
	return s, nil
}

// Credit adds amount to the balance
func (e *Engine) Credit(s model.PlayerState, amount int64) (model.PlayerState, error) {
	if amount < 0 {
		return s, model.ErrInvalidAmount
	}
	s.Balance += amount
	return s, nil
}

// Debit removes amount from the balance; the balance never goes below zero
func (e *Engine) Debit(s model.PlayerState, amount int64) (model.PlayerState, error) {
	if amount < 0 {
		return s, model.ErrInvalidAmount
	}
	if s.Balance < amount {
		return s, &model.ResourceError{Resource: model.ResourceBalance, Have: s.Balance, Need: amount}
	}
	s.Balance -= amount
	return s, nil
}

// EvaluatePackageExpiry reverts an expired paid tier to free. A paid tier
// without an expiry is treated as expired.
func (e *Engine) EvaluatePackageExpiry(s model.PlayerState, now time.Time) model.PlayerState {
	if s.PackageTier == "" {
		s.PackageTier = model.TierFree
	}
	if s.PackageTier == model.TierFree {
		s.PackageExpiresAt = nil
		return s
	}
	if s.PackageExpiresAt == nil || now.After(*s.PackageExpiresAt) {
		s.PackageTier = model.TierFree
		s.PackageExpiresAt = nil
	}
	return s
}

// UpgradeMultiplier buys one multiplier level
func (e *Engine) UpgradeMultiplier(s model.PlayerState) (model.PlayerState, error) {
	if s.Multiplier >= e.cfg.MaxMultiplier {
		return s, model.ErrLimitReached
	}
	out, err := e.Debit(s, e.cfg.MultiplierCost)
	if err != nil {
		return s, err
	}
	if out.Multiplier < 1 {
		out.Multiplier = 1
	}
	out.Multiplier++
	return out, nil
}

// UpgradeRegenSpeed shortens the regen interval by one step, floored at the minimum
func (e *Engine) UpgradeRegenSpeed(s model.PlayerState) (model.PlayerState, error) {
	current := e.RegenInterval(s)
	floor := time.Duration(e.cfg.MinRegenIntervalMs) * time.Millisecond
	if current <= floor {
		return s, model.ErrLimitReached
	}
	out, err := e.Debit(s, e.cfg.RegenUpgradeCost)
	if err != nil {
		return s, err
	}
	next := current.Milliseconds() - e.cfg.RegenStepMs
	if next < e.cfg.MinRegenIntervalMs {
		next = e.cfg.MinRegenIntervalMs
	}
	out.StaminaRegenIntervalMs = next
	return out, nil
}

// BuyAutoTapper purchases the auto-tapper capability. Ownership is permanent.
func (e *Engine) BuyAutoTapper(s model.PlayerState) (model.PlayerState, error) {
	if s.HasAutoTapper {
		return s, model.ErrAlreadyOwned
	}
	out, err := e.Debit(s, e.cfg.AutoTapperCost)
	if err != nil {
		return s, err
	}
	out.HasAutoTapper = true
	return out, nil
}

// ToggleAutoTapper flips the auto-tapper on or off. Daily toggle limits are
// enforced by the gatekeeper.
func (e *Engine) ToggleAutoTapper(s model.PlayerState, now time.Time) (model.PlayerState, error) {
	if !s.HasAutoTapper {
		return s, model.ErrNotEligible
	}
	s.AutoTapperActive = !s.AutoTapperActive
	if s.AutoTapperActive {
		s.LastAutoTapAt = now
	}
	return s, nil
}

// RefillStamina restores stamina to the cap
func (e *Engine) RefillStamina(s model.PlayerState, now time.Time) (model.PlayerState, error) {
	if s.Stamina >= e.MaxStamina(s) {
		return s, model.ErrNotEligible
	}
	out, err := e.Debit(s, e.cfg.StaminaRefillCost)
	if err != nil {
		return s, err
	}
	out.Stamina = e.MaxStamina(out)
	out.LastRegenAt = now
	return out, nil
}

// ActivatePackage moves the player to a higher paid tier for the configured
// duration. Packages can only be upgraded while active.
func (e *Engine) ActivatePackage(s model.PlayerState, tier model.PackageTier, now time.Time) (model.PlayerState, error) {
	if !tier.Valid() || tier == model.TierFree {
		return s, model.ErrInvalidPackage
	}
	out := e.EvaluatePackageExpiry(s, now)
	if out.PackageTier != model.TierFree && tier.Rank() <= out.PackageTier.Rank() {
		return s, model.ErrPackageDowngrade
	}
	expires := now.Add(e.cfg.PackageDuration)
	out.PackageTier = tier
	out.PackageExpiresAt = &expires
	return out, nil
}

// RegenInterval returns the player's regen interval, clamped to the configured floor
func (e *Engine) RegenInterval(s model.PlayerState) time.Duration {
	ms := s.StaminaRegenIntervalMs
	if ms <= 0 {
		ms = e.cfg.DefaultRegenIntervalMs
	}
	if ms < e.cfg.MinRegenIntervalMs {
		ms = e.cfg.MinRegenIntervalMs
	}
	return time.Duration(ms) * time.Millisecond
}

// MaxStamina returns the player's stamina cap
func (e *Engine) MaxStamina(s model.PlayerState) int {
	if s.MaxStamina > 0 {
		return s.MaxStamina
	}
	return e.cfg.MaxStamina
}

// NextRegenIn returns the wait until the next stamina unit, or zero at the cap
func (e *Engine) NextRegenIn(s model.PlayerState, now time.Time) time.Duration {
	if s.Stamina >= e.MaxStamina(s) {
		return 0
	}
	wait := e.RegenInterval(s) - now.Sub(s.LastRegenAt)
	if wait < 0 {
		return 0
	}
	return wait
}

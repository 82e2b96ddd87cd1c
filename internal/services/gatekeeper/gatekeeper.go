package gatekeeper

import (
	"fmt"
	"time"

	"github.com/mcoot/tapearn/internal/dependencies/clock"
	"github.com/mcoot/tapearn/internal/economy"
	"github.com/mcoot/tapearn/internal/model"
	"github.com/mcoot/tapearn/internal/services/resource"
)

// Gatekeeper enforces per-day limits on counted features and cooldowns on
// timestamp-gated ones. Counters reset lazily: a counter whose day key is not
// today's counts as zero.
//
// Check never mutates; RecordUsage must be called only after the gated action
// has succeeded.
type Gatekeeper struct {
	cfg       economy.Config
	resources *resource.Engine
}

// New creates a new Gatekeeper
func New(cfg economy.Config, resources *resource.Engine) *Gatekeeper {
	return &Gatekeeper{cfg: cfg, resources: resources}
}

// Check reports whether the feature may be used now. Package expiry is
// evaluated first so an expired tier's limit is never applied.
func (g *Gatekeeper) Check(s model.PlayerState, f model.Feature, now time.Time) error {
	limit, used, err := g.usage(s, f, now)
	if err != nil {
		return err
	}
	if used >= limit {
		return &model.RateLimitError{Feature: f, Limit: limit, RetryAfter: clock.UntilNextDay(now)}
	}
	return nil
}

// RecordUsage increments today's counter for the feature. It re-checks the
// limit so the count can never exceed it.
func (g *Gatekeeper) RecordUsage(s model.PlayerState, f model.Feature, now time.Time) (model.PlayerState, error) {
	if err := g.Check(s, f, now); err != nil {
		return s, err
	}
	out := s.Clone()
	if out.DailyCounters == nil {
		out.DailyCounters = make(map[model.Feature]model.DailyCounter)
	}
	counter := current(out.Counter(f), now)
	counter.Count++
	out.DailyCounters[f] = counter
	return out, nil
}

// ResetStale rewrites every counter from a previous day to zero for today.
// Check and RecordUsage do not need it; it keeps stored snapshots tidy.
func (g *Gatekeeper) ResetStale(s model.PlayerState, now time.Time) model.PlayerState {
	today := clock.DayKey(now)
	stale := false
	for _, c := range s.DailyCounters {
		if c.DayKey != today {
			stale = true
			break
		}
	}
	if !stale {
		return s
	}
	out := s.Clone()
	for f, c := range out.DailyCounters {
		out.DailyCounters[f] = current(c, now)
	}
	return out
}

// Remaining returns how many more uses of the feature are allowed today
func (g *Gatekeeper) Remaining(s model.PlayerState, f model.Feature, now time.Time) int {
	limit, used, err := g.usage(s, f, now)
	if err != nil || used >= limit {
		return 0
	}
	return limit - used
}

// Limit returns the feature's limit for the player's effective tier
func (g *Gatekeeper) Limit(s model.PlayerState, f model.Feature, now time.Time) (int, error) {
	limit, _, err := g.usage(s, f, now)
	return limit, err
}

// CheckCooldown fails while last+cooldown is still in the future
func (g *Gatekeeper) CheckCooldown(f model.Feature, last *time.Time, cooldown time.Duration, now time.Time) error {
	if last == nil {
		return nil
	}
	ready := last.Add(cooldown)
	if ready.After(now) {
		return &model.RateLimitError{Feature: f, RetryAfter: ready.Sub(now)}
	}
	return nil
}

func (g *Gatekeeper) usage(s model.PlayerState, f model.Feature, now time.Time) (int, int, error) {
	tier := g.resources.EvaluatePackageExpiry(s, now).PackageTier
	limit, err := g.cfg.DailyLimit(f, tier)
	if err != nil {
		return 0, 0, fmt.Errorf("check %s: %w", f, err)
	}
	return limit, current(s.Counter(f), now).Count, nil
}

func current(c model.DailyCounter, now time.Time) model.DailyCounter {
	today := clock.DayKey(now)
	if c.DayKey != today {
		return model.DailyCounter{Count: 0, DayKey: today}
	}
	return c
}

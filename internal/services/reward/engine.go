package reward

import (
	"time"

	"github.com/mcoot/tapearn/internal/dependencies/random"
	"github.com/mcoot/tapearn/internal/economy"
	"github.com/mcoot/tapearn/internal/model"
	"github.com/mcoot/tapearn/internal/services/gatekeeper"
	"github.com/mcoot/tapearn/internal/services/resource"
)

// TapOutcome is the result of a single tap
type TapOutcome struct {
	Reward int64
}

// SpinOutcome is the wheel slot a spin landed on
type SpinOutcome struct {
	Index int
	Entry economy.PayoutEntry
}

// Engine computes reward outcomes and applies them through the resource engine.
// Like the resource engine, every method returns its input unchanged on error.
type Engine struct {
	cfg        economy.Config
	resources  *resource.Engine
	gatekeeper *gatekeeper.Gatekeeper
}

// New creates a new reward Engine
func New(cfg economy.Config, resources *resource.Engine, gk *gatekeeper.Gatekeeper) *Engine {
	return &Engine{cfg: cfg, resources: resources, gatekeeper: gk}
}

// Tap spends one stamina and credits the multiplier
func (e *Engine) Tap(s model.PlayerState) (model.PlayerState, TapOutcome, error) {
	out, err := e.resources.SpendStamina(s, 1)
	if err != nil {
		return s, TapOutcome{}, err
	}
	reward := int64(max(out.Multiplier, 1))
	out, err = e.resources.Credit(out, reward)
	if err != nil {
		return s, TapOutcome{}, err
	}
	return out, TapOutcome{Reward: reward}, nil
}

// Draw picks a uniformly random slot on the wheel
func (e *Engine) Draw(rng random.Random) int {
	return rng.Intn(len(e.cfg.SpinTable))
}

// Spin credits the payout of the slot at draw. Daily limits are not checked
// here; the caller gates the spin and records usage.
func (e *Engine) Spin(s model.PlayerState, draw int) (model.PlayerState, SpinOutcome, error) {
	if draw < 0 || draw >= len(e.cfg.SpinTable) {
		return s, SpinOutcome{}, model.ErrInvalidAmount
	}
	entry := e.cfg.SpinTable[draw]
	out, err := e.resources.Credit(s, entry.Amount)
	if err != nil {
		return s, SpinOutcome{}, err
	}
	return out, SpinOutcome{Index: draw, Entry: entry}, nil
}

// ClaimTask rewards a catalog task once. The task must have been visited on
// this device first.
func (e *Engine) ClaimTask(s model.PlayerState, local model.LocalState, id model.TaskID) (model.PlayerState, economy.Task, error) {
	task, ok := e.cfg.Task(id)
	if !ok {
		return s, economy.Task{}, model.ErrUnknownTask
	}
	if s.HasClaimedTask(id) {
		return s, task, model.ErrAlreadyClaimed
	}
	if !local.HasVisited(id) {
		return s, task, model.ErrNotEligible
	}
	out, err := e.resources.Credit(s.Clone(), task.Reward)
	if err != nil {
		return s, task, err
	}
	out.ClaimedTaskIDs = append(out.ClaimedTaskIDs, id)
	return out, task, nil
}

// ClaimReferral records who referred the player and credits the referee
// reward. referrer may be the referring player's id or username; crediting
// the referrer belongs to the remote store.
func (e *Engine) ClaimReferral(s model.PlayerState, referrer model.PlayerID, reward int64) (model.PlayerState, error) {
	if s.ReferredBy != nil {
		return s, model.ErrAlreadyReferred
	}
	if referrer == "" || referrer == s.PlayerID || (s.Username != "" && string(referrer) == s.Username) {
		return s, model.ErrInvalidReferrer
	}
	out, err := e.resources.Credit(s.Clone(), reward)
	if err != nil {
		return s, err
	}
	out.ReferredBy = &referrer
	return out, nil
}

// ClaimDailyReward credits the daily bonus once per cooldown window
func (e *Engine) ClaimDailyReward(s model.PlayerState, now time.Time) (model.PlayerState, error) {
	if err := e.gatekeeper.CheckCooldown(model.FeatureDailyReward, s.LastDailyRewardAt, e.cfg.DailyRewardCooldown, now); err != nil {
		return s, err
	}
	out, err := e.resources.Credit(s.Clone(), e.cfg.DailyReward)
	if err != nil {
		return s, err
	}
	out.LastDailyRewardAt = &now
	return out, nil
}

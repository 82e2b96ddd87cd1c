package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcoot/tapearn/internal/api/request"
	"github.com/mcoot/tapearn/internal/api/response"
	"github.com/mcoot/tapearn/internal/cache"
	"github.com/mcoot/tapearn/internal/dependencies/clock"
	"github.com/mcoot/tapearn/internal/dependencies/random"
	"github.com/mcoot/tapearn/internal/economy"
	"github.com/mcoot/tapearn/internal/model"
	"github.com/mcoot/tapearn/internal/services/gatekeeper"
	"github.com/mcoot/tapearn/internal/services/resource"
	"github.com/mcoot/tapearn/internal/services/reward"
)

// ErrNotLoaded is returned by actions before Load or Login has produced a state
var ErrNotLoaded = errors.New("session not loaded")

// ErrClosed is returned by Flush after Close
var ErrClosed = errors.New("session closed")

// Remote is the authoritative player store
type Remote interface {
	Fetch(ctx context.Context, id model.PlayerID) (model.PlayerState, error)
	Login(ctx context.Context, req request.LoginRequest) (response.LoginResponse, error)
	Update(ctx context.Context, req request.UpdateRequest) (model.PlayerState, error)
	BuyTapBot(ctx context.Context, id model.PlayerID) (model.PlayerState, error)
	ToggleTapBot(ctx context.Context, id model.PlayerID) (model.PlayerState, error)
	RefillStamina(ctx context.Context, id model.PlayerID) (model.PlayerState, error)
	ClaimReferral(ctx context.Context, id model.PlayerID, referrer string) (model.PlayerState, error)
}

// Deps holds the collaborators of a Coordinator
type Deps struct {
	Remote Remote
	Cache  cache.Cache
	Clock  clock.Clock
	Random random.Random
	Logger *slog.Logger
}

// Config holds Coordinator configuration
type Config struct {
	Economy economy.Config
	// QueueSize bounds pushes waiting for the remote store
	QueueSize int
	// PushTimeout bounds each push request
	PushTimeout time.Duration
}

// PaymentReceipt is proof that a package was paid for
type PaymentReceipt struct {
	Tier       model.PackageTier
	AmountNano int64
	TxRef      string
}

// Status is a settled view of the session for display
type Status struct {
	State         model.PlayerState
	Synced        bool
	Remaining     map[model.Feature]int
	NextRegenIn   time.Duration
	DailyRewardIn time.Duration
}

// TapsResult reports a burst of taps
type TapsResult struct {
	Taps   int
	Earned int64
	State  model.PlayerState
}

// SpinResult reports a spin
type SpinResult struct {
	Outcome reward.SpinOutcome
	State   model.PlayerState
}

type sender func(ctx context.Context) error

type push struct {
	op    string
	epoch uint64
	send  sender
	// done marks a flush barrier
	done chan struct{}
}

// Coordinator owns one player's session: the in-memory state every action
// goes through, the local cache, and the ordered push queue to the remote
// store. Actions are serialized; pushes never block them.
type Coordinator struct {
	id     model.PlayerID
	cfg    Config
	remote Remote
	cache  cache.Cache
	clock  clock.Clock
	random random.Random
	logger *slog.Logger

	resources  *resource.Engine
	gatekeeper *gatekeeper.Gatekeeper
	rewards    *reward.Engine

	mu     sync.Mutex
	state  model.PlayerState
	local  model.LocalState
	loaded bool
	synced bool

	// epoch increments whenever a fetch replaces the state; pushes queued
	// under an older epoch are dropped
	epoch atomic.Uint64

	sendMu sync.RWMutex
	closed bool
	queue  chan push
	wg     sync.WaitGroup
}

// NewCoordinator creates a session for a player and starts its push worker
func NewCoordinator(id model.PlayerID, deps Deps, cfg Config) *Coordinator {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = 10 * time.Second
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Random == nil {
		deps.Random = random.New()
	}

	resources := resource.New(cfg.Economy)
	gk := gatekeeper.New(cfg.Economy, resources)
	c := &Coordinator{
		id:         id,
		cfg:        cfg,
		remote:     deps.Remote,
		cache:      deps.Cache,
		clock:      deps.Clock,
		random:     deps.Random,
		logger:     logger.With(slog.String("player_id", string(id))),
		resources:  resources,
		gatekeeper: gk,
		rewards:    reward.New(cfg.Economy, resources, gk),
		queue:      make(chan push, cfg.QueueSize),
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.work()
	}()
	return c
}

// Load fetches the authoritative state. If the store is unreachable the
// session continues from the cached snapshot, marked unsynced. It fails only
// when there is nothing to continue from, or the store does not know the player.
func (c *Coordinator) Load(ctx context.Context) error {
	remoteState, err := c.remote.Fetch(ctx, c.id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if !errors.Is(err, model.ErrSyncFailure) {
			return fmt.Errorf("load %s: %w", c.id, err)
		}
		return c.degrade(ctx, "fetch", err)
	}
	c.adopt(ctx, remoteState)
	return nil
}

// Login registers the player with the store on first contact and adopts the
// returned state. It degrades like Load when the store is unreachable.
func (c *Coordinator) Login(ctx context.Context, req request.LoginRequest) (bool, error) {
	req.TelegramID = c.id
	resp, err := c.remote.Login(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if !errors.Is(err, model.ErrSyncFailure) {
			return false, fmt.Errorf("login %s: %w", c.id, err)
		}
		return false, c.degrade(ctx, "login", err)
	}
	c.adopt(ctx, resp.User)
	return resp.IsNewUser, nil
}

// adopt replaces the session state with a fetched one. Remote wins for every
// authoritative field; device-local state survives. Must hold mu.
func (c *Coordinator) adopt(ctx context.Context, remoteState model.PlayerState) {
	c.epoch.Add(1)
	if !c.loaded {
		if snap, err := c.cache.Load(ctx, c.id); err == nil {
			c.local = snap.Local
		}
	}
	if c.state.Balance != remoteState.Balance && c.loaded {
		c.logger.Info("remote state replaced local state",
			slog.Int64("local_balance", c.state.Balance),
			slog.Int64("remote_balance", remoteState.Balance))
	}
	c.state, _ = c.resources.Settle(remoteState.Clone(), c.clock.Now())
	c.loaded = true
	c.synced = true
	c.persist(ctx)
}

// degrade keeps the session running without the remote store. Must hold mu.
func (c *Coordinator) degrade(ctx context.Context, op string, cause error) error {
	c.logger.Warn("remote store unavailable, continuing offline",
		slog.String("op", op), slog.String("error", cause.Error()))
	c.synced = false
	if c.loaded {
		c.persist(ctx)
		return nil
	}
	snap, err := c.cache.Load(ctx, c.id)
	if err != nil {
		return fmt.Errorf("%s %s offline: %w", op, c.id, errors.Join(cause, err))
	}
	c.state = snap.State
	c.local = snap.Local
	c.loaded = true
	c.persist(ctx)
	return nil
}

// Tap spends one stamina for multiplier coins
func (c *Coordinator) Tap(ctx context.Context) (TapsResult, error) {
	return c.TapN(ctx, 1)
}

// TapN taps up to n times, stopping when stamina runs out. It fails only if
// no tap succeeded.
func (c *Coordinator) TapN(ctx context.Context, n int) (TapsResult, error) {
	if n <= 0 {
		return TapsResult{}, model.ErrInvalidAmount
	}
	var result TapsResult
	state, err := c.mutate(ctx, "tap", func(s model.PlayerState, _ time.Time) (model.PlayerState, error) {
		for i := 0; i < n; i++ {
			next, outcome, err := c.rewards.Tap(s)
			if err != nil {
				if result.Taps == 0 {
					return s, err
				}
				break
			}
			s = next
			result.Taps++
			result.Earned += outcome.Reward
		}
		return s, nil
	}, nil)
	result.State = state
	return result, err
}

// Spin draws a wheel slot, gated by the daily spin limit
func (c *Coordinator) Spin(ctx context.Context) (SpinResult, error) {
	var result SpinResult
	state, err := c.mutate(ctx, "spin", func(s model.PlayerState, now time.Time) (model.PlayerState, error) {
		if err := c.gatekeeper.Check(s, model.FeatureSpins, now); err != nil {
			return s, err
		}
		next, outcome, err := c.rewards.Spin(s, c.rewards.Draw(c.random))
		if err != nil {
			return s, err
		}
		next, err = c.gatekeeper.RecordUsage(next, model.FeatureSpins, now)
		if err != nil {
			return s, err
		}
		result.Outcome = outcome
		return next, nil
	}, nil)
	result.State = state
	return result, err
}

// BuyMultiplier buys one multiplier level
func (c *Coordinator) BuyMultiplier(ctx context.Context) (model.PlayerState, error) {
	return c.mutate(ctx, "buy-multiplier", func(s model.PlayerState, _ time.Time) (model.PlayerState, error) {
		return c.resources.UpgradeMultiplier(s)
	}, nil)
}

// BuyRegenSpeed buys one regen speed step
func (c *Coordinator) BuyRegenSpeed(ctx context.Context) (model.PlayerState, error) {
	return c.mutate(ctx, "buy-regen", func(s model.PlayerState, _ time.Time) (model.PlayerState, error) {
		return c.resources.UpgradeRegenSpeed(s)
	}, nil)
}

// BuyAutoTapper buys the auto-tapper
func (c *Coordinator) BuyAutoTapper(ctx context.Context) (model.PlayerState, error) {
	return c.mutate(ctx, "buy-tap-bot", func(s model.PlayerState, _ time.Time) (model.PlayerState, error) {
		return c.resources.BuyAutoTapper(s)
	}, func(ctx context.Context) error {
		_, err := c.remote.BuyTapBot(ctx, c.id)
		return err
	})
}

// ToggleAutoTapper switches the auto-tapper on or off, gated by the daily toggle limit
func (c *Coordinator) ToggleAutoTapper(ctx context.Context) (model.PlayerState, error) {
	return c.mutate(ctx, "toggle-tap-bot", func(s model.PlayerState, now time.Time) (model.PlayerState, error) {
		return c.gated(s, model.FeatureAutoTapperToggles, now, c.resources.ToggleAutoTapper)
	}, func(ctx context.Context) error {
		_, err := c.remote.ToggleTapBot(ctx, c.id)
		return err
	})
}

// RefillStamina restores stamina to the cap, gated by the daily refill limit
func (c *Coordinator) RefillStamina(ctx context.Context) (model.PlayerState, error) {
	return c.mutate(ctx, "refill-stamina", func(s model.PlayerState, now time.Time) (model.PlayerState, error) {
		return c.gated(s, model.FeatureStaminaRefills, now, c.resources.RefillStamina)
	}, func(ctx context.Context) error {
		_, err := c.remote.RefillStamina(ctx, c.id)
		return err
	})
}

// ActivatePackage upgrades the package tier once the payment is confirmed
func (c *Coordinator) ActivatePackage(ctx context.Context, receipt PaymentReceipt) (model.PlayerState, error) {
	return c.mutate(ctx, "activate-package", func(s model.PlayerState, now time.Time) (model.PlayerState, error) {
		if err := c.verifyPayment(receipt); err != nil {
			return s, err
		}
		return c.resources.ActivatePackage(s, receipt.Tier, now)
	}, nil)
}

// VisitTask records that the task's link was opened on this device
func (c *Coordinator) VisitTask(ctx context.Context, id model.TaskID) error {
	if _, ok := c.cfg.Economy.Task(id); !ok {
		return model.ErrUnknownTask
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return ErrNotLoaded
	}
	if c.local.HasVisited(id) {
		return nil
	}
	c.local.VisitedTaskIDs = append(c.local.VisitedTaskIDs, id)
	c.persist(ctx)
	return nil
}

// ClaimTask rewards a visited task once
func (c *Coordinator) ClaimTask(ctx context.Context, id model.TaskID) (model.PlayerState, error) {
	return c.mutate(ctx, "claim-task", func(s model.PlayerState, _ time.Time) (model.PlayerState, error) {
		next, _, err := c.rewards.ClaimTask(s, c.local, id)
		return next, err
	}, nil)
}

// ClaimReferral records the player that invited this one. referrer may be
// a player id or username; the store credits the referrer.
func (c *Coordinator) ClaimReferral(ctx context.Context, referrer string) (model.PlayerState, error) {
	return c.mutate(ctx, "claim-referral", func(s model.PlayerState, _ time.Time) (model.PlayerState, error) {
		return c.rewards.ClaimReferral(s, model.PlayerID(referrer), c.cfg.Economy.RefereeReward)
	}, func(ctx context.Context) error {
		_, err := c.remote.ClaimReferral(ctx, c.id, referrer)
		return err
	})
}

// ClaimDailyReward credits the daily bonus
func (c *Coordinator) ClaimDailyReward(ctx context.Context) (model.PlayerState, error) {
	return c.mutate(ctx, "daily-reward", func(s model.PlayerState, now time.Time) (model.PlayerState, error) {
		return c.rewards.ClaimDailyReward(s, now)
	}, nil)
}

// State returns the settled state without changing the session
func (c *Coordinator) State() (model.PlayerState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return model.PlayerState{}, ErrNotLoaded
	}
	s, _ := c.resources.Settle(c.state, c.clock.Now())
	return s.Clone(), nil
}

// Local returns the device-local state
func (c *Coordinator) Local() model.LocalState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local.Clone()
}

// Synced reports whether the session matches the last successful fetch plus
// pushes that have not failed
func (c *Coordinator) Synced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.synced
}

// Status returns the settled state with limits and timers for display
func (c *Coordinator) Status() (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return Status{}, ErrNotLoaded
	}
	now := c.clock.Now()
	s, _ := c.resources.Settle(c.state, now)
	st := Status{
		State:       s.Clone(),
		Synced:      c.synced,
		Remaining:   make(map[model.Feature]int, len(model.CountedFeatures)),
		NextRegenIn: c.resources.NextRegenIn(s, now),
	}
	for _, f := range model.CountedFeatures {
		st.Remaining[f] = c.gatekeeper.Remaining(s, f, now)
	}
	var rl *model.RateLimitError
	if err := c.gatekeeper.CheckCooldown(model.FeatureDailyReward, s.LastDailyRewardAt, c.cfg.Economy.DailyRewardCooldown, now); errors.As(err, &rl) {
		st.DailyRewardIn = rl.RetryAfter
	}
	return st, nil
}

// Flush waits until every push queued so far has been attempted
func (c *Coordinator) Flush(ctx context.Context) error {
	done := make(chan struct{})

	c.sendMu.RLock()
	if c.closed {
		c.sendMu.RUnlock()
		return ErrClosed
	}
	select {
	case c.queue <- push{op: "flush", done: done}:
	case <-ctx.Done():
		c.sendMu.RUnlock()
		return ctx.Err()
	}
	c.sendMu.RUnlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting pushes and waits for queued ones to finish
func (c *Coordinator) Close() error {
	c.sendMu.Lock()
	if !c.closed {
		c.closed = true
		close(c.queue)
	}
	c.sendMu.Unlock()
	c.wg.Wait()
	return nil
}

// mutate runs one action against the settled state. A rejected action leaves
// the session untouched; an accepted one is committed, queued for the remote
// store and persisted, in that order. A nil send pushes a state snapshot
// carrying the balance change made by the action alone; auto-tapper earnings
// are settled by the store itself.
func (c *Coordinator) mutate(ctx context.Context, op string, action func(model.PlayerState, time.Time) (model.PlayerState, error), send sender) (model.PlayerState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return model.PlayerState{}, ErrNotLoaded
	}

	now := c.clock.Now()
	settled, report := c.resources.Settle(c.state, now)
	if report.AutoTaps > 0 {
		c.logger.Debug("auto-tapper settled", slog.Int("taps", report.AutoTaps), slog.Int64("earned", report.Earned))
	}

	next, err := action(settled.Clone(), now)
	if err != nil {
		c.logger.Debug("action rejected", slog.String("op", op), slog.String("error", err.Error()))
		return settled.Clone(), err
	}

	c.state = next
	if send == nil {
		update := request.UpdateFromState(next, next.Balance-settled.Balance)
		send = func(ctx context.Context) error {
			_, err := c.remote.Update(ctx, update)
			return err
		}
	}
	c.enqueue(op, send)
	c.persist(ctx)
	return next.Clone(), nil
}

// gated runs a daily-limited action and records the usage only when it succeeds
func (c *Coordinator) gated(s model.PlayerState, f model.Feature, now time.Time, action func(model.PlayerState, time.Time) (model.PlayerState, error)) (model.PlayerState, error) {
	if err := c.gatekeeper.Check(s, f, now); err != nil {
		return s, err
	}
	next, err := action(s, now)
	if err != nil {
		return s, err
	}
	return c.gatekeeper.RecordUsage(next, f, now)
}

func (c *Coordinator) verifyPayment(r PaymentReceipt) error {
	if !r.Tier.Valid() || r.Tier == model.TierFree {
		return model.ErrInvalidPackage
	}
	offer, ok := c.cfg.Economy.Packages[r.Tier]
	if !ok {
		return model.ErrInvalidPackage
	}
	if r.TxRef == "" || r.AmountNano < offer.PriceNano {
		return fmt.Errorf("%w: %s needs %d, got %d", model.ErrPaymentNotConfirmed, r.Tier, offer.PriceNano, r.AmountNano)
	}
	return nil
}

// enqueue hands a push to the worker without blocking. Must hold mu.
func (c *Coordinator) enqueue(op string, send sender) {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()
	if c.closed {
		c.synced = false
		return
	}
	select {
	case c.queue <- push{op: op, epoch: c.epoch.Load(), send: send}:
	default:
		c.logger.Warn("push queue full, dropping push", slog.String("op", op))
		c.synced = false
	}
}

// persist writes the session snapshot to the cache. Must hold mu.
func (c *Coordinator) persist(ctx context.Context) {
	snap := &cache.Snapshot{
		State:    c.state.Clone(),
		Local:    c.local.Clone(),
		Unsynced: !c.synced,
	}
	if err := c.cache.Save(ctx, snap); err != nil {
		c.logger.Warn("failed to save snapshot", slog.String("error", err.Error()))
	}
}

func (c *Coordinator) work() {
	for p := range c.queue {
		if p.done != nil {
			close(p.done)
			continue
		}
		if p.epoch != c.epoch.Load() {
			c.logger.Debug("dropping push superseded by fetch", slog.String("op", p.op))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.PushTimeout)
		err := p.send(ctx)
		cancel()
		if err != nil {
			c.pushFailed(p, err)
		}
	}
}

// pushFailed keeps the optimistic state and marks the session for
// reconciliation on the next load
func (c *Coordinator) pushFailed(p push, err error) {
	c.logger.Warn("push failed, will reconcile on next load",
		slog.String("op", p.op), slog.String("error", err.Error()))

	c.mu.Lock()
	defer c.mu.Unlock()
	if p.epoch != c.epoch.Load() {
		return
	}
	c.synced = false
	c.persist(context.Background())
}

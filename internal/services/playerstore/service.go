package playerstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/mcoot/tapearn/internal/api/request"
	"github.com/mcoot/tapearn/internal/dependencies/clock"
	"github.com/mcoot/tapearn/internal/economy"
	"github.com/mcoot/tapearn/internal/model"
	"github.com/mcoot/tapearn/internal/services/gatekeeper"
	"github.com/mcoot/tapearn/internal/services/resource"
	"github.com/mcoot/tapearn/internal/services/reward"
	"github.com/mcoot/tapearn/internal/storage"
)

// Leaderboard limits
const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// LeaderboardEntry is a player and how many players they referred
type LeaderboardEntry struct {
	Player    *model.PlayerState
	Referrals int
}

// Service is the authoritative player store. It applies the same economy
// rules as the client engines, and owns everything that touches more than
// one player.
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	cfg     economy.Config
	logger  *slog.Logger

	resources  *resource.Engine
	gatekeeper *gatekeeper.Gatekeeper
	rewards    *reward.Engine

	// mu serializes read-modify-write cycles; referrals update two players
	mu sync.Mutex
}

// New creates a new player store Service
func New(st storage.Storage, clk clock.Clock, cfg economy.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	resources := resource.New(cfg)
	gk := gatekeeper.New(cfg, resources)
	return &Service{
		storage:    st,
		clock:      clk,
		cfg:        cfg,
		logger:     logger,
		resources:  resources,
		gatekeeper: gk,
		rewards:    reward.New(cfg, resources, gk),
	}
}

// Login returns the player, creating it on first contact. A referrer given on
// creation is applied as a referral claim; an unusable referrer does not fail
// the login.
func (s *Service) Login(ctx context.Context, req request.LoginRequest) (*model.PlayerState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()

	existing, err := s.storage.GetPlayer(ctx, req.TelegramID)
	if err == nil {
		state, _ := s.resources.Settle(*existing, now)
		if req.Username != "" {
			state.Username = req.Username
		}
		if req.FullName != "" {
			state.FullName = req.FullName
		}
		if err := s.storage.SavePlayer(ctx, &state); err != nil {
			return nil, false, err
		}
		return &state, false, nil
	}
	if !errors.Is(err, model.ErrPlayerNotFound) {
		return nil, false, err
	}

	state := s.cfg.NewPlayer(req.TelegramID, req.Username, req.FullName, now)
	if req.Referrer != "" {
		referred, err := s.applyReferral(ctx, state, req.Referrer)
		if err != nil {
			s.logger.Info("ignoring referrer on login",
				slog.String("player_id", string(req.TelegramID)),
				slog.String("referrer", req.Referrer),
				slog.String("error", err.Error()))
		} else {
			state = referred
		}
	}
	if err := s.storage.SavePlayer(ctx, &state); err != nil {
		return nil, false, err
	}
	s.logger.Info("player created", slog.String("player_id", string(state.PlayerID)))
	return &state, true, nil
}

// Get returns the settled state of a player
func (s *Service) Get(ctx context.Context, id model.PlayerID) (*model.PlayerState, error) {
	player, err := s.storage.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	state, _ := s.resources.Settle(*player, s.clock.Now())
	return &state, nil
}

// Update merges a partial state pushed by a client. Monotonic fields only
// move forward and every value is clamped to the economy's invariants.
func (s *Service) Update(ctx context.Context, req request.UpdateRequest) (*model.PlayerState, error) {
	return s.modify(ctx, req.TelegramID, func(state model.PlayerState, now time.Time) (model.PlayerState, error) {
		return s.merge(state, req, now)
	})
}

// BuyTapBot buys the auto-tapper
func (s *Service) BuyTapBot(ctx context.Context, id model.PlayerID) (*model.PlayerState, error) {
	return s.modify(ctx, id, func(state model.PlayerState, _ time.Time) (model.PlayerState, error) {
		return s.resources.BuyAutoTapper(state)
	})
}

// ToggleTapBot switches the auto-tapper, subject to the daily toggle limit
func (s *Service) ToggleTapBot(ctx context.Context, id model.PlayerID) (*model.PlayerState, error) {
	return s.modify(ctx, id, func(state model.PlayerState, now time.Time) (model.PlayerState, error) {
		return s.gated(state, model.FeatureAutoTapperToggles, now, s.resources.ToggleAutoTapper)
	})
}

// RefillStamina refills stamina, subject to the daily refill limit
func (s *Service) RefillStamina(ctx context.Context, id model.PlayerID) (*model.PlayerState, error) {
	return s.modify(ctx, id, func(state model.PlayerState, now time.Time) (model.PlayerState, error) {
		return s.gated(state, model.FeatureStaminaRefills, now, s.resources.RefillStamina)
	})
}

// ClaimReferral records the referrer of a player, credits both sides and
// appends the player to the referrer's referrals
func (s *Service) ClaimReferral(ctx context.Context, id model.PlayerID, referrer string) (*model.PlayerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, err := s.storage.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	state, _ := s.resources.Settle(*player, s.clock.Now())
	state, err = s.applyReferral(ctx, state, referrer)
	if err != nil {
		return nil, err
	}
	if err := s.storage.SavePlayer(ctx, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ReferralLeaderboard returns the players with the most referrals, best first
func (s *Service) ReferralLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	limit = min(limit, MaxLeaderboardLimit)

	players, err := s.storage.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, 0, len(players))
	for _, p := range players {
		if len(p.Referrals) == 0 {
			continue
		}
		entries = append(entries, LeaderboardEntry{Player: p, Referrals: len(p.Referrals)})
	}
	slices.SortStableFunc(entries, func(a, b LeaderboardEntry) int {
		return cmp.Compare(b.Referrals, a.Referrals)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Admin operations

// ListPlayers returns every player as stored
func (s *Service) ListPlayers(ctx context.Context) ([]*model.PlayerState, error) {
	return s.storage.ListPlayers(ctx)
}

// GetPlayer returns a player exactly as stored, without settling
func (s *Service) GetPlayer(ctx context.Context, id model.PlayerID) (*model.PlayerState, error) {
	return s.storage.GetPlayer(ctx, id)
}

// AdminUpdate overwrites selected fields, bypassing the client merge rules
// but not the invariants
func (s *Service) AdminUpdate(ctx context.Context, id model.PlayerID, req request.AdminUpdateRequest) (*model.PlayerState, error) {
	return s.modify(ctx, id, func(state model.PlayerState, now time.Time) (model.PlayerState, error) {
		if req.Balance != nil {
			if *req.Balance < 0 {
				return state, model.ErrInvalidAmount
			}
			state.Balance = *req.Balance
		}
		if req.Stamina != nil {
			state.Stamina = clamp(*req.Stamina, 0, s.resources.MaxStamina(state))
		}
		if req.Multiplier != nil {
			state.Multiplier = clamp(*req.Multiplier, 1, s.cfg.MaxMultiplier)
		}
		if req.HasTapBot != nil {
			state.HasAutoTapper = *req.HasTapBot
			if !state.HasAutoTapper {
				state.AutoTapperActive = false
			}
		}
		if req.PackageTier != nil {
			if !req.PackageTier.Valid() {
				return state, model.ErrInvalidPackage
			}
			state.PackageTier = *req.PackageTier
			state.PackageExpiresAt = nil
			if state.PackageTier != model.TierFree {
				expires := now.Add(s.cfg.PackageDuration)
				if req.PackageExpiresAt != nil {
					expires = *req.PackageExpiresAt
				}
				state.PackageExpiresAt = &expires
			}
		}
		return state, nil
	})
}

// DeletePlayer removes a player
func (s *Service) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.storage.GetPlayer(ctx, id); err != nil {
		return err
	}
	return s.storage.DeletePlayer(ctx, id)
}

// modify loads, settles, changes and saves one player under the store lock
func (s *Service) modify(ctx context.Context, id model.PlayerID, change func(model.PlayerState, time.Time) (model.PlayerState, error)) (*model.PlayerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, err := s.storage.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	state, _ := s.resources.Settle(*player, now)
	state, err = change(state.Clone(), now)
	if err != nil {
		return nil, err
	}
	if err := s.storage.SavePlayer(ctx, &state); err != nil {
		return nil, fmt.Errorf("save player %s: %w", id, err)
	}
	return &state, nil
}

func (s *Service) gated(state model.PlayerState, f model.Feature, now time.Time, action func(model.PlayerState, time.Time) (model.PlayerState, error)) (model.PlayerState, error) {
	if err := s.gatekeeper.Check(state, f, now); err != nil {
		return state, err
	}
	next, err := action(state, now)
	if err != nil {
		return state, err
	}
	return s.gatekeeper.RecordUsage(next, f, now)
}

// applyReferral credits the referee in state and the referrer in storage.
// Must hold mu.
func (s *Service) applyReferral(ctx context.Context, state model.PlayerState, ref string) (model.PlayerState, error) {
	if state.ReferredBy != nil {
		return state, model.ErrAlreadyReferred
	}
	referrer, err := s.resolveReferrer(ctx, ref)
	if err != nil {
		return state, err
	}
	next, err := s.rewards.ClaimReferral(state, referrer.PlayerID, s.cfg.RefereeReward)
	if err != nil {
		return state, err
	}

	if !referrer.HasReferral(state.PlayerID) {
		referrer.Referrals = append(referrer.Referrals, state.PlayerID)
		credited, err := s.resources.Credit(*referrer, s.cfg.ReferrerReward)
		if err != nil {
			return state, err
		}
		if err := s.storage.SavePlayer(ctx, &credited); err != nil {
			return state, fmt.Errorf("save referrer %s: %w", referrer.PlayerID, err)
		}
	}
	s.logger.Info("referral claimed",
		slog.String("player_id", string(state.PlayerID)),
		slog.String("referrer_id", string(referrer.PlayerID)))
	return next, nil
}

// resolveReferrer looks a referrer up by id, then by username
func (s *Service) resolveReferrer(ctx context.Context, ref string) (*model.PlayerState, error) {
	if ref == "" {
		return nil, model.ErrInvalidReferrer
	}
	p, err := s.storage.GetPlayer(ctx, model.PlayerID(ref))
	if errors.Is(err, model.ErrPlayerNotFound) {
		p, err = s.storage.GetPlayerByUsername(ctx, ref)
	}
	if errors.Is(err, model.ErrPlayerNotFound) {
		return nil, fmt.Errorf("%w: %q is not a player", model.ErrInvalidReferrer, ref)
	}
	return p, err
}

func (s *Service) merge(state model.PlayerState, req request.UpdateRequest, now time.Time) (model.PlayerState, error) {
	if req.PackageTier != nil {
		next, err := s.mergePackage(state, *req.PackageTier, req.PackageExpiresAt, now)
		if err != nil {
			return state, err
		}
		state = next
	}
	if req.BalanceDelta != 0 {
		state.Balance = max(state.Balance+req.BalanceDelta, 0)
	}
	if req.Multiplier != nil {
		state.Multiplier = clamp(*req.Multiplier, 1, s.cfg.MaxMultiplier)
	}
	if req.StaminaRegenIntervalMs != nil {
		state.StaminaRegenIntervalMs = clamp(*req.StaminaRegenIntervalMs, s.cfg.MinRegenIntervalMs, s.cfg.DefaultRegenIntervalMs)
	}
	if req.Stamina != nil {
		state.Stamina = clamp(*req.Stamina, 0, s.resources.MaxStamina(state))
	}
	if req.LastRegenAt != nil && !req.LastRegenAt.IsZero() {
		state.LastRegenAt = *req.LastRegenAt
	}
	if req.LastAutoTapAt != nil && !req.LastAutoTapAt.IsZero() {
		state.LastAutoTapAt = *req.LastAutoTapAt
	}
	if req.LastDailyRewardAt != nil && (state.LastDailyRewardAt == nil || req.LastDailyRewardAt.After(*state.LastDailyRewardAt)) {
		t := *req.LastDailyRewardAt
		state.LastDailyRewardAt = &t
	}
	for _, id := range req.ClaimedTaskIDs {
		if _, ok := s.cfg.Task(id); ok && !state.HasClaimedTask(id) {
			state.ClaimedTaskIDs = append(state.ClaimedTaskIDs, id)
		}
	}
	for f, incoming := range req.DailyCounters {
		limit, err := s.gatekeeper.Limit(state, f, now)
		if err != nil {
			continue
		}
		if state.DailyCounters == nil {
			state.DailyCounters = make(map[model.Feature]model.DailyCounter)
		}
		stored := state.Counter(f)
		switch {
		case incoming.DayKey > stored.DayKey:
			stored = incoming
		case incoming.DayKey == stored.DayKey:
			stored.Count = max(stored.Count, incoming.Count)
		}
		stored.Count = clamp(stored.Count, 0, limit)
		state.DailyCounters[f] = stored
	}
	return state, nil
}

// mergePackage accepts upgrades and renewals and rejects downgrades of an active package
func (s *Service) mergePackage(state model.PlayerState, tier model.PackageTier, expiresAt *time.Time, now time.Time) (model.PlayerState, error) {
	if !tier.Valid() {
		return state, model.ErrInvalidPackage
	}
	current := s.resources.EvaluatePackageExpiry(state, now)
	if tier.Rank() < current.PackageTier.Rank() {
		return state, model.ErrPackageDowngrade
	}
	if tier == model.TierFree {
		return current, nil
	}
	expires := now.Add(s.cfg.PackageDuration)
	if expiresAt != nil {
		if !expiresAt.After(now) {
			return current, nil
		}
		expires = *expiresAt
	}
	if tier == current.PackageTier && current.PackageExpiresAt != nil && current.PackageExpiresAt.After(expires) {
		expires = *current.PackageExpiresAt
	}
	current.PackageTier = tier
	current.PackageExpiresAt = &expires
	return current, nil
}

func clamp[T cmp.Ordered](v, lo, hi T) T {
	return max(lo, min(v, hi))
}

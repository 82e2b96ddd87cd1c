package resource

import (
	"errors"
	"testing"
	"time"

	"github.com/mcoot/tapearn/internal/economy"
	"github.com/mcoot/tapearn/internal/model"
	"github.com/stretchr/testify/suite"
)

type EngineSuite struct {
	suite.Suite
	cfg    economy.Config
	engine *Engine
	now    time.Time
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.cfg = economy.Default()
	s.engine = New(s.cfg)
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *EngineSuite) newPlayer() model.PlayerState {
	return s.cfg.NewPlayer("player-1", "alice", "Alice A", s.now)
}

// Regeneration tests

func (s *EngineSuite) TestRegenerateAddsWholeIntervals() {
	state := s.newPlayer()
	state.Stamina = 50

	out := s.engine.RegenerateStamina(state, s.now.Add(35*time.Second))

	s.Equal(53, out.Stamina)
	s.Equal(s.now.Add(30*time.Second), out.LastRegenAt)
}

func (s *EngineSuite) TestRegenerateCarriesRemainder() {
	state := s.newPlayer()
	state.Stamina = 50

	out := s.engine.RegenerateStamina(state, s.now.Add(15*time.Second))
	s.Equal(51, out.Stamina)

	out = s.engine.RegenerateStamina(out, s.now.Add(20*time.Second))
	s.Equal(52, out.Stamina)
	s.Equal(s.now.Add(20*time.Second), out.LastRegenAt)
}

func (s *EngineSuite) TestRegenerateIsIdempotentForSameNow() {
	state := s.newPlayer()
	state.Stamina = 10
	later := s.now.Add(time.Minute)

	once := s.engine.RegenerateStamina(state, later)
	twice := s.engine.RegenerateStamina(once, later)

	s.Equal(once, twice)
}

func (s *EngineSuite) TestRegenerateCapsAtMax() {
	state := s.newPlayer()
	state.Stamina = 98

	out := s.engine.RegenerateStamina(state, s.now.Add(time.Hour))

	s.Equal(100, out.Stamina)
}

func (s *EngineSuite) TestRegenerateInitialisesZeroTimestamp() {
	state := s.newPlayer()
	state.LastRegenAt = time.Time{}
	state.Stamina = 0

	out := s.engine.RegenerateStamina(state, s.now)

	s.Equal(0, out.Stamina)
	s.Equal(s.now, out.LastRegenAt)
}

func (s *EngineSuite) TestRegenerateUsesUpgradedInterval() {
	state := s.newPlayer()
	state.Stamina = 0
	state.StaminaRegenIntervalMs = 2000

	out := s.engine.RegenerateStamina(state, s.now.Add(10*time.Second))

	s.Equal(5, out.Stamina)
}

func (s *EngineSuite) TestSpendThenRegenStaysInBounds() {
	for spend := 1; spend <= 100; spend += 11 {
		for k := 0; k <= 120; k += 13 {
			state := s.newPlayer()
			out, err := s.engine.SpendStamina(state, spend)
			s.Require().NoError(err)

			out = s.engine.RegenerateStamina(out, s.now.Add(time.Duration(k)*10*time.Second))
			s.GreaterOrEqual(out.Stamina, 0)
			s.LessOrEqual(out.Stamina, out.MaxStamina)
		}
	}
}

// Spend, credit, debit tests

func (s *EngineSuite) TestSpendStaminaFailsWhenEmpty() {
	state := s.newPlayer()
	state.Stamina = 0

	out, err := s.engine.SpendStamina(state, 1)

	s.True(errors.Is(err, model.ErrInsufficientResource))
	s.Equal(state, out)
	s.Contains(err.Error(), "out of stamina")
}

func (s *EngineSuite) TestSpendStaminaRejectsNonPositive() {
	_, err := s.engine.SpendStamina(s.newPlayer(), 0)
	s.ErrorIs(err, model.ErrInvalidAmount)
}

func (s *EngineSuite) TestCreditRejectsNegative() {
	state := s.newPlayer()

	out, err := s.engine.Credit(state, -1)

	s.ErrorIs(err, model.ErrInvalidAmount)
	s.Equal(int64(0), out.Balance)
}

func (s *EngineSuite) TestDebitNeverGoesNegative() {
	state := s.newPlayer()
	state.Balance = 10

	out, err := s.engine.Debit(state, 11)

	var resErr *model.ResourceError
	s.Require().ErrorAs(err, &resErr)
	s.Equal(model.ResourceBalance, resErr.Resource)
	s.Equal(int64(10), out.Balance)

	out, err = s.engine.Debit(state, 10)
	s.Require().NoError(err)
	s.Equal(int64(0), out.Balance)
}

// Upgrade tests

func (s *EngineSuite) TestUpgradeMultiplierAtExactCost() {
	state := s.newPlayer()
	state.Balance = 50

	out, err := s.engine.UpgradeMultiplier(state)

	s.Require().NoError(err)
	s.Equal(2, out.Multiplier)
	s.Equal(int64(0), out.Balance)
}

func (s *EngineSuite) TestUpgradeMultiplierShortByOneLeavesStateUnchanged() {
	state := s.newPlayer()
	state.Balance = 49

	out, err := s.engine.UpgradeMultiplier(state)

	s.ErrorIs(err, model.ErrInsufficientResource)
	s.Equal(state, out)
}

func (s *EngineSuite) TestUpgradeMultiplierAtCap() {
	state := s.newPlayer()
	state.Balance = 1000
	state.Multiplier = s.cfg.MaxMultiplier

	out, err := s.engine.UpgradeMultiplier(state)

	s.ErrorIs(err, model.ErrLimitReached)
	s.Equal(int64(1000), out.Balance)
}

func (s *EngineSuite) TestUpgradeRegenSpeedStepsDown() {
	state := s.newPlayer()
	state.Balance = 100

	out, err := s.engine.UpgradeRegenSpeed(state)

	s.Require().NoError(err)
	s.Equal(int64(9000), out.StaminaRegenIntervalMs)
	s.Equal(int64(20), out.Balance)
}

func (s *EngineSuite) TestUpgradeRegenSpeedAtFloor() {
	state := s.newPlayer()
	state.Balance = 100
	state.StaminaRegenIntervalMs = s.cfg.MinRegenIntervalMs

	_, err := s.engine.UpgradeRegenSpeed(state)

	s.ErrorIs(err, model.ErrLimitReached)
}

func (s *EngineSuite) TestUpgradeRegenSpeedFloorsStep() {
	state := s.newPlayer()
	state.Balance = 100
	state.StaminaRegenIntervalMs = 2500

	out, err := s.engine.UpgradeRegenSpeed(state)

	s.Require().NoError(err)
	s.Equal(int64(2000), out.StaminaRegenIntervalMs)
}

// Package tests

func (s *EngineSuite) TestExpiredPackageRevertsToFree() {
	state := s.newPlayer()
	state.PackageTier = model.TierGold
	expired := s.now.Add(-time.Second)
	state.PackageExpiresAt = &expired

	out := s.engine.EvaluatePackageExpiry(state, s.now)

	s.Equal(model.TierFree, out.PackageTier)
	s.Nil(out.PackageExpiresAt)
}

func (s *EngineSuite) TestActivePackageUnchanged() {
	state := s.newPlayer()
	state.PackageTier = model.TierGold
	expires := s.now.Add(time.Hour)
	state.PackageExpiresAt = &expires

	out := s.engine.EvaluatePackageExpiry(state, s.now)

	s.Equal(state, out)
}

func (s *EngineSuite) TestPaidTierWithoutExpiryIsExpired() {
	state := s.newPlayer()
	state.PackageTier = model.TierSilver

	out := s.engine.EvaluatePackageExpiry(state, s.now)

	s.Equal(model.TierFree, out.PackageTier)
}

func (s *EngineSuite) TestActivatePackageSetsExpiry() {
	out, err := s.engine.ActivatePackage(s.newPlayer(), model.TierBronze, s.now)

	s.Require().NoError(err)
	s.Equal(model.TierBronze, out.PackageTier)
	s.Require().NotNil(out.PackageExpiresAt)
	s.Equal(s.now.Add(180*24*time.Hour), *out.PackageExpiresAt)
}

func (s *EngineSuite) TestActivatePackageUpgrade() {
	state, err := s.engine.ActivatePackage(s.newPlayer(), model.TierBronze, s.now)
	s.Require().NoError(err)

	out, err := s.engine.ActivatePackage(state, model.TierGold, s.now.Add(time.Hour))

	s.Require().NoError(err)
	s.Equal(model.TierGold, out.PackageTier)
}

func (s *EngineSuite) TestActivatePackageRejectsDowngradeWhileActive() {
	state, err := s.engine.ActivatePackage(s.newPlayer(), model.TierGold, s.now)
	s.Require().NoError(err)

	out, err := s.engine.ActivatePackage(state, model.TierSilver, s.now.Add(time.Hour))
	s.ErrorIs(err, model.ErrPackageDowngrade)
	s.Equal(model.TierGold, out.PackageTier)

	_, err = s.engine.ActivatePackage(state, model.TierGold, s.now.Add(time.Hour))
	s.ErrorIs(err, model.ErrPackageDowngrade)
}

func (s *EngineSuite) TestActivatePackageAfterExpiryAllowsLowerTier() {
	state, err := s.engine.ActivatePackage(s.newPlayer(), model.TierGold, s.now)
	s.Require().NoError(err)

	later := s.now.Add(181 * 24 * time.Hour)
	out, err := s.engine.ActivatePackage(state, model.TierBronze, later)

	s.Require().NoError(err)
	s.Equal(model.TierBronze, out.PackageTier)
}

func (s *EngineSuite) TestActivatePackageRejectsFree() {
	_, err := s.engine.ActivatePackage(s.newPlayer(), model.TierFree, s.now)
	s.ErrorIs(err, model.ErrInvalidPackage)

	_, err = s.engine.ActivatePackage(s.newPlayer(), "platinum", s.now)
	s.ErrorIs(err, model.ErrInvalidPackage)
}

// Auto-tapper tests

func (s *EngineSuite) TestBuyAutoTapper() {
	state := s.newPlayer()
	state.Balance = 150

	out, err := s.engine.BuyAutoTapper(state)
	s.Require().NoError(err)
	s.True(out.HasAutoTapper)
	s.Equal(int64(50), out.Balance)

	_, err = s.engine.BuyAutoTapper(out)
	s.ErrorIs(err, model.ErrAlreadyOwned)
}

func (s *EngineSuite) TestToggleAutoTapperRequiresOwnership() {
	_, err := s.engine.ToggleAutoTapper(s.newPlayer(), s.now)
	s.ErrorIs(err, model.ErrNotEligible)
}

func (s *EngineSuite) TestAutoTapperTapsWhileActive() {
	state := s.newPlayer()
	state.HasAutoTapper = true
	state, err := s.engine.ToggleAutoTapper(state, s.now)
	s.Require().NoError(err)

	out, taps := s.engine.SettleAutoTapper(state, s.now.Add(10*time.Second))

	s.Equal(3, taps)
	s.Equal(int64(3), out.Balance)
	s.Equal(s.now.Add(9*time.Second), out.LastAutoTapAt)
}

func (s *EngineSuite) TestAutoTapperUsesMultiplier() {
	state := s.newPlayer()
	state.HasAutoTapper = true
	state.Multiplier = 3
	state, err := s.engine.ToggleAutoTapper(state, s.now)
	s.Require().NoError(err)

	out, _ := s.engine.SettleAutoTapper(state, s.now.Add(6*time.Second))

	s.Equal(int64(6), out.Balance)
}

func (s *EngineSuite) TestAutoTapperInactiveDoesNothing() {
	state := s.newPlayer()
	state.HasAutoTapper = true

	out, taps := s.engine.SettleAutoTapper(state, s.now.Add(time.Hour))

	s.Equal(0, taps)
	s.Equal(state, out)
}

func (s *EngineSuite) TestAutoTapperStopsWhenDrained() {
	state := s.newPlayer()
	state.HasAutoTapper = true
	state.Stamina = 2
	state, err := s.engine.ToggleAutoTapper(state, s.now)
	s.Require().NoError(err)

	// 9s: three ticks, no regen interval completes
	out, taps := s.engine.SettleAutoTapper(state, s.now.Add(9*time.Second))

	s.Equal(2, taps)
	s.Equal(0, out.Stamina)
}

func (s *EngineSuite) TestSettleCombinesExpiryAutoTapperAndRegen() {
	state := s.newPlayer()
	state.Stamina = 90
	state.PackageTier = model.TierSilver
	expires := s.now.Add(time.Second)
	state.PackageExpiresAt = &expires

	out, report := s.engine.Settle(state, s.now.Add(20*time.Second))

	s.True(report.PackageExpired)
	s.Equal(model.TierFree, out.PackageTier)
	s.Equal(92, out.Stamina)
	s.Equal(0, report.AutoTaps)
}

// Refill tests

func (s *EngineSuite) TestRefillStaminaRestoresMax() {
	state := s.newPlayer()
	state.Stamina = 3

	out, err := s.engine.RefillStamina(state, s.now.Add(time.Second))

	s.Require().NoError(err)
	s.Equal(100, out.Stamina)
	s.Equal(s.now.Add(time.Second), out.LastRegenAt)
}

func (s *EngineSuite) TestRefillStaminaWhenFull() {
	_, err := s.engine.RefillStamina(s.newPlayer(), s.now)
	s.ErrorIs(err, model.ErrNotEligible)
}

func (s *EngineSuite) TestNextRegenIn() {
	state := s.newPlayer()
	s.Equal(time.Duration(0), s.engine.NextRegenIn(state, s.now))

	state.Stamina = 10
	s.Equal(6*time.Second, s.engine.NextRegenIn(state, s.now.Add(4*time.Second)))
}

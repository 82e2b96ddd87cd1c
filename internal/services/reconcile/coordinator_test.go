package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mcoot/tapearn/internal/api/request"
	"github.com/mcoot/tapearn/internal/api/response"
	"github.com/mcoot/tapearn/internal/cache"
	"github.com/mcoot/tapearn/internal/cache/memory"
	"github.com/mcoot/tapearn/internal/dependencies/mocks"
	"github.com/mcoot/tapearn/internal/economy"
	"github.com/mcoot/tapearn/internal/model"
	"github.com/mcoot/tapearn/internal/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type mockRemote struct {
	mock.Mock
}

func (m *mockRemote) Fetch(ctx context.Context, id model.PlayerID) (model.PlayerState, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.PlayerState), args.Error(1)
}

func (m *mockRemote) Login(ctx context.Context, req request.LoginRequest) (response.LoginResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(response.LoginResponse), args.Error(1)
}

func (m *mockRemote) Update(ctx context.Context, req request.UpdateRequest) (model.PlayerState, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.PlayerState), args.Error(1)
}

func (m *mockRemote) BuyTapBot(ctx context.Context, id model.PlayerID) (model.PlayerState, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.PlayerState), args.Error(1)
}

func (m *mockRemote) ToggleTapBot(ctx context.Context, id model.PlayerID) (model.PlayerState, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.PlayerState), args.Error(1)
}

func (m *mockRemote) RefillStamina(ctx context.Context, id model.PlayerID) (model.PlayerState, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.PlayerState), args.Error(1)
}

func (m *mockRemote) ClaimReferral(ctx context.Context, id model.PlayerID, referrer string) (model.PlayerState, error) {
	args := m.Called(ctx, id, referrer)
	return args.Get(0).(model.PlayerState), args.Error(1)
}

var errNetwork = &model.SyncError{Op: "test", Err: errors.New("connection refused")}

type CoordinatorSuite struct {
	suite.Suite
	cfg    economy.Config
	remote *mockRemote
	cache  *memory.Cache
	clock  *mocks.MockClock
	random *mocks.MockRandom
	coord  *Coordinator
	ctx    context.Context
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.cfg = economy.Default()
	s.remote = &mockRemote{}
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.cache = memory.New(s.clock)
	s.ctx = context.Background()
	s.coord = s.newCoordinator(Config{Economy: s.cfg})
}

func (s *CoordinatorSuite) TearDownTest() {
	_ = s.coord.Close()
}

func (s *CoordinatorSuite) newCoordinator(cfg Config) *Coordinator {
	return NewCoordinator("42", Deps{
		Remote: s.remote,
		Cache:  s.cache,
		Clock:  s.clock,
		Random: s.random,
		Logger: testutil.NopLogger(),
	}, cfg)
}

func (s *CoordinatorSuite) player() model.PlayerState {
	return s.cfg.NewPlayer("42", "alice", "Alice A", s.clock.Now())
}

func (s *CoordinatorSuite) loadRemote(state model.PlayerState) {
	s.remote.On("Fetch", mock.Anything, model.PlayerID("42")).Return(state, nil).Once()
	s.Require().NoError(s.coord.Load(s.ctx))
}

func (s *CoordinatorSuite) acceptUpdates() {
	s.remote.On("Update", mock.Anything, mock.Anything).Return(model.PlayerState{}, nil)
}

func (s *CoordinatorSuite) flush() {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	s.Require().NoError(s.coord.Flush(ctx))
}

func (s *CoordinatorSuite) cached() *cache.Snapshot {
	snap, err := s.cache.Load(s.ctx, "42")
	s.Require().NoError(err)
	return snap
}

// Load tests

func (s *CoordinatorSuite) TestActionsBeforeLoad() {
	_, err := s.coord.Tap(s.ctx)
	s.ErrorIs(err, ErrNotLoaded)

	_, err = s.coord.State()
	s.ErrorIs(err, ErrNotLoaded)
}

func (s *CoordinatorSuite) TestLoadAdoptsRemote() {
	remote := s.player()
	remote.Balance = 500

	s.loadRemote(remote)

	state, err := s.coord.State()
	s.Require().NoError(err)
	s.Equal(int64(500), state.Balance)
	s.True(s.coord.Synced())
	s.Equal(int64(500), s.cached().State.Balance)
	s.False(s.cached().Unsynced)
}

func (s *CoordinatorSuite) TestLoadOfflineFallsBackToCache() {
	cachedState := s.player()
	cachedState.Balance = 77
	s.Require().NoError(s.cache.Save(s.ctx, &cache.Snapshot{State: cachedState}))
	s.remote.On("Fetch", mock.Anything, model.PlayerID("42")).Return(model.PlayerState{}, errNetwork)

	s.Require().NoError(s.coord.Load(s.ctx))

	state, err := s.coord.State()
	s.Require().NoError(err)
	s.Equal(int64(77), state.Balance)
	s.False(s.coord.Synced())
	s.True(s.cached().Unsynced)
}

func (s *CoordinatorSuite) TestLoadOfflineWithoutCacheFails() {
	s.remote.On("Fetch", mock.Anything, model.PlayerID("42")).Return(model.PlayerState{}, errNetwork)

	err := s.coord.Load(s.ctx)

	s.ErrorIs(err, model.ErrSyncFailure)
	s.ErrorIs(err, cache.ErrSnapshotNotFound)
}

func (s *CoordinatorSuite) TestLoadUnknownPlayer() {
	s.remote.On("Fetch", mock.Anything, model.PlayerID("42")).Return(model.PlayerState{}, model.ErrPlayerNotFound)

	err := s.coord.Load(s.ctx)

	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *CoordinatorSuite) TestLoginCreatesPlayer() {
	s.remote.On("Login", mock.Anything, request.LoginRequest{TelegramID: "42", Username: "alice", Referrer: "bob"}).
		Return(response.LoginResponse{User: s.player(), IsNewUser: true}, nil)

	isNew, err := s.coord.Login(s.ctx, request.LoginRequest{Username: "alice", Referrer: "bob"})

	s.Require().NoError(err)
	s.True(isNew)
	state, err := s.coord.State()
	s.Require().NoError(err)
	s.Equal(100, state.Stamina)
}

// Reconciliation tests

func (s *CoordinatorSuite) TestRemoteWinsOverUnsyncedCache() {
	cachedState := s.player()
	cachedState.Balance = 120
	s.Require().NoError(s.cache.Save(s.ctx, &cache.Snapshot{State: cachedState, Unsynced: true}))
	remote := s.player()
	remote.Balance = 100

	s.loadRemote(remote)

	state, err := s.coord.State()
	s.Require().NoError(err)
	s.Equal(int64(100), state.Balance)
	s.True(s.coord.Synced())
	s.Equal(int64(100), s.cached().State.Balance)
}

func (s *CoordinatorSuite) TestRemoteWinsOverOfflineProgress() {
	cachedState := s.player()
	cachedState.Balance = 100
	s.Require().NoError(s.cache.Save(s.ctx, &cache.Snapshot{State: cachedState}))
	s.remote.On("Fetch", mock.Anything, model.PlayerID("42")).Return(model.PlayerState{}, errNetwork).Once()
	s.remote.On("Update", mock.Anything, mock.Anything).Return(model.PlayerState{}, errNetwork)
	s.Require().NoError(s.coord.Load(s.ctx))

	result, err := s.coord.TapN(s.ctx, 20)
	s.Require().NoError(err)
	s.Equal(int64(120), result.State.Balance)
	s.flush()
	s.False(s.coord.Synced())

	remote := s.player()
	remote.Balance = 100
	s.loadRemote(remote)

	state, err := s.coord.State()
	s.Require().NoError(err)
	s.Equal(int64(100), state.Balance)
	s.True(s.coord.Synced())
}

func (s *CoordinatorSuite) TestLocalStateSurvivesReconciliation() {
	s.loadRemote(s.player())
	s.Require().NoError(s.coord.VisitTask(s.ctx, "follow-twitter"))

	s.loadRemote(s.player())

	s.True(s.coord.Local().HasVisited("follow-twitter"))
}

func (s *CoordinatorSuite) TestLocalStateRestoredFromCacheOnLoad() {
	s.Require().NoError(s.cache.Save(s.ctx, &cache.Snapshot{
		State: s.player(),
		Local: model.LocalState{VisitedTaskIDs: []model.TaskID{"join-telegram"}},
	}))

	s.loadRemote(s.player())

	s.True(s.coord.Local().HasVisited("join-telegram"))
}

func (s *CoordinatorSuite) TestStalePushDroppedAfterFetch() {
	s.loadRemote(s.player())

	started := make(chan struct{})
	release := make(chan struct{})
	s.remote.On("Update", mock.Anything, mock.Anything).Return(model.PlayerState{}, nil).Run(func(mock.Arguments) {
		started <- struct{}{}
		<-release
	}).Once()

	_, err := s.coord.Tap(s.ctx)
	s.Require().NoError(err)
	<-started

	_, err = s.coord.Tap(s.ctx)
	s.Require().NoError(err)

	s.loadRemote(s.player())
	close(release)
	s.flush()

	s.remote.AssertNumberOfCalls(s.T(), "Update", 1)
}

// Action tests

func (s *CoordinatorSuite) TestTapPushesSnapshot() {
	s.loadRemote(s.player())
	s.remote.On("Update", mock.Anything, mock.MatchedBy(func(r request.UpdateRequest) bool {
		return r.TelegramID == "42" && r.BalanceDelta == 1 && *r.Stamina == 99
	})).Return(model.PlayerState{}, nil).Once()

	result, err := s.coord.Tap(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, result.Taps)
	s.Equal(int64(1), result.State.Balance)

	s.flush()
	s.remote.AssertExpectations(s.T())
	s.True(s.coord.Synced())
	s.Equal(int64(1), s.cached().State.Balance)
}

func (s *CoordinatorSuite) TestTapNStopsWhenStaminaRunsOut() {
	remote := s.player()
	remote.Stamina = 3
	s.loadRemote(remote)
	s.acceptUpdates()

	result, err := s.coord.TapN(s.ctx, 10)

	s.Require().NoError(err)
	s.Equal(3, result.Taps)
	s.Equal(int64(3), result.Earned)
	s.Equal(0, result.State.Stamina)
}

func (s *CoordinatorSuite) TestRejectedTapChangesNothing() {
	remote := s.player()
	remote.Stamina = 0
	remote.Balance = 9
	s.loadRemote(remote)

	_, err := s.coord.Tap(s.ctx)

	s.ErrorIs(err, model.ErrInsufficientResource)
	state, err := s.coord.State()
	s.Require().NoError(err)
	s.Equal(int64(9), state.Balance)
	s.flush()
	s.remote.AssertNotCalled(s.T(), "Update", mock.Anything, mock.Anything)
}

func (s *CoordinatorSuite) TestPushFailureKeepsOptimisticState() {
	s.loadRemote(s.player())
	s.remote.On("Update", mock.Anything, mock.Anything).Return(model.PlayerState{}, errNetwork)

	_, err := s.coord.Tap(s.ctx)
	s.Require().NoError(err)
	s.flush()

	s.False(s.coord.Synced())
	state, err := s.coord.State()
	s.Require().NoError(err)
	s.Equal(int64(1), state.Balance)
	s.True(s.cached().Unsynced)
	s.Equal(int64(1), s.cached().State.Balance)
}

func (s *CoordinatorSuite) TestSpinDailyLimit() {
	s.loadRemote(s.player())
	s.acceptUpdates()
	s.random.QueueIntn(5, 1)

	result, err := s.coord.Spin(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(10000), result.Outcome.Entry.Amount)
	s.Equal(int64(10000), result.State.Balance)
	s.Equal(1, result.State.Counter(model.FeatureSpins).Count)

	_, err = s.coord.Spin(s.ctx)
	s.ErrorIs(err, model.ErrRateLimited)
	state, err := s.coord.State()
	s.Require().NoError(err)
	s.Equal(1, state.Counter(model.FeatureSpins).Count)
	s.Equal(int64(10000), state.Balance)

	s.clock.Advance(12 * time.Hour)
	result, err = s.coord.Spin(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(10010), result.State.Balance)
}

func (s *CoordinatorSuite) TestBuyAutoTapperUsesFeatureEndpoint() {
	remote := s.player()
	remote.Balance = 100
	s.loadRemote(remote)
	s.remote.On("BuyTapBot", mock.Anything, model.PlayerID("42")).Return(model.PlayerState{}, nil).Once()

	state, err := s.coord.BuyAutoTapper(s.ctx)
	s.Require().NoError(err)
	s.True(state.HasAutoTapper)
	s.Equal(int64(0), state.Balance)

	s.flush()
	s.remote.AssertExpectations(s.T())
	s.remote.AssertNotCalled(s.T(), "Update", mock.Anything, mock.Anything)
}

func (s *CoordinatorSuite) TestAutoTapperEarnsWhileAway() {
	remote := s.player()
	remote.HasAutoTapper = true
	s.loadRemote(remote)
	s.remote.On("ToggleTapBot", mock.Anything, model.PlayerID("42")).Return(model.PlayerState{}, nil)

	_, err := s.coord.ToggleAutoTapper(s.ctx)
	s.Require().NoError(err)

	s.clock.Advance(30 * time.Second)
	state, err := s.coord.State()
	s.Require().NoError(err)
	// ten taps, three regen intervals
	s.Equal(int64(10), state.Balance)
	s.Equal(93, state.Stamina)
}

func (s *CoordinatorSuite) TestSnapshotDeltaLeavesOutAutoTapperEarnings() {
	remote := s.player()
	remote.HasAutoTapper = true
	remote.AutoTapperActive = true
	remote.LastAutoTapAt = s.clock.Now()
	s.loadRemote(remote)
	s.remote.On("Update", mock.Anything, mock.MatchedBy(func(r request.UpdateRequest) bool {
		return r.BalanceDelta == 1
	})).Return(model.PlayerState{}, nil).Once()

	s.clock.Advance(30 * time.Second)
	result, err := s.coord.Tap(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(11), result.State.Balance)

	s.flush()
	s.remote.AssertExpectations(s.T())
	s.True(s.coord.Synced())
}

func (s *CoordinatorSuite) TestUpgradePushesNegativeDelta() {
	remote := s.player()
	remote.Balance = 80
	s.loadRemote(remote)
	s.remote.On("Update", mock.Anything, mock.MatchedBy(func(r request.UpdateRequest) bool {
		return r.BalanceDelta == -s.cfg.MultiplierCost && *r.Multiplier == 2
	})).Return(model.PlayerState{}, nil).Once()

	_, err := s.coord.BuyMultiplier(s.ctx)
	s.Require().NoError(err)

	s.flush()
	s.remote.AssertExpectations(s.T())
}

func (s *CoordinatorSuite) TestToggleLimit() {
	remote := s.player()
	remote.HasAutoTapper = true
	s.loadRemote(remote)
	s.remote.On("ToggleTapBot", mock.Anything, model.PlayerID("42")).Return(model.PlayerState{}, nil)

	for i := 0; i < 4; i++ {
		_, err := s.coord.ToggleAutoTapper(s.ctx)
		s.Require().NoError(err)
	}
	_, err := s.coord.ToggleAutoTapper(s.ctx)
	s.ErrorIs(err, model.ErrRateLimited)

	s.flush()
	s.remote.AssertNumberOfCalls(s.T(), "ToggleTapBot", 4)
}

func (s *CoordinatorSuite) TestRefillCountsOnlySuccess() {
	s.loadRemote(s.player())
	s.remote.On("RefillStamina", mock.Anything, model.PlayerID("42")).Return(model.PlayerState{}, nil)

	_, err := s.coord.RefillStamina(s.ctx)
	s.ErrorIs(err, model.ErrNotEligible)

	status, err := s.coord.Status()
	s.Require().NoError(err)
	s.Equal(4, status.Remaining[model.FeatureStaminaRefills])
}

func (s *CoordinatorSuite) TestActivatePackage() {
	s.loadRemote(s.player())
	s.acceptUpdates()

	_, err := s.coord.ActivatePackage(s.ctx, PaymentReceipt{Tier: model.TierSilver, AmountNano: 1, TxRef: "tx"})
	s.ErrorIs(err, model.ErrPaymentNotConfirmed)

	state, err := s.coord.ActivatePackage(s.ctx, PaymentReceipt{Tier: model.TierSilver, AmountNano: 25_000_000_000, TxRef: "tx-1"})
	s.Require().NoError(err)
	s.Equal(model.TierSilver, state.PackageTier)

	_, err = s.coord.ActivatePackage(s.ctx, PaymentReceipt{Tier: model.TierBronze, AmountNano: 10_000_000_000, TxRef: "tx-2"})
	s.ErrorIs(err, model.ErrPackageDowngrade)

	status, err := s.coord.Status()
	s.Require().NoError(err)
	s.Equal(10, status.Remaining[model.FeatureSpins])
}

func (s *CoordinatorSuite) TestTaskClaim() {
	s.loadRemote(s.player())
	s.acceptUpdates()

	_, err := s.coord.ClaimTask(s.ctx, "follow-twitter")
	s.ErrorIs(err, model.ErrNotEligible)

	s.ErrorIs(s.coord.VisitTask(s.ctx, "nope"), model.ErrUnknownTask)
	s.Require().NoError(s.coord.VisitTask(s.ctx, "follow-twitter"))

	state, err := s.coord.ClaimTask(s.ctx, "follow-twitter")
	s.Require().NoError(err)
	s.Equal(int64(10), state.Balance)

	_, err = s.coord.ClaimTask(s.ctx, "follow-twitter")
	s.ErrorIs(err, model.ErrAlreadyClaimed)
	state, err = s.coord.State()
	s.Require().NoError(err)
	s.Equal(int64(10), state.Balance)
}

func (s *CoordinatorSuite) TestClaimReferralPushesToReferralEndpoint() {
	s.loadRemote(s.player())
	s.remote.On("ClaimReferral", mock.Anything, model.PlayerID("42"), "bob").Return(model.PlayerState{}, nil).Once()

	state, err := s.coord.ClaimReferral(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(int64(20), state.Balance)

	_, err = s.coord.ClaimReferral(s.ctx, "carol")
	s.ErrorIs(err, model.ErrAlreadyReferred)

	s.flush()
	s.remote.AssertExpectations(s.T())
}

func (s *CoordinatorSuite) TestRejectedReferralCreditNotPushed() {
	s.loadRemote(s.player())
	s.remote.On("ClaimReferral", mock.Anything, model.PlayerID("42"), "nobody").Return(model.PlayerState{}, model.ErrInvalidReferrer).Once()
	s.remote.On("Update", mock.Anything, mock.MatchedBy(func(r request.UpdateRequest) bool {
		return r.BalanceDelta == 1
	})).Return(model.PlayerState{}, nil).Once()

	_, err := s.coord.ClaimReferral(s.ctx, "nobody")
	s.Require().NoError(err)
	_, err = s.coord.Tap(s.ctx)
	s.Require().NoError(err)

	s.flush()
	s.remote.AssertExpectations(s.T())
	s.False(s.coord.Synced())
}

func (s *CoordinatorSuite) TestSelfReferralRejected() {
	s.loadRemote(s.player())

	_, err := s.coord.ClaimReferral(s.ctx, "alice")

	s.ErrorIs(err, model.ErrInvalidReferrer)
}

func (s *CoordinatorSuite) TestDailyRewardStatus() {
	s.loadRemote(s.player())
	s.acceptUpdates()

	_, err := s.coord.ClaimDailyReward(s.ctx)
	s.Require().NoError(err)
	s.clock.Advance(20 * time.Hour)

	_, err = s.coord.ClaimDailyReward(s.ctx)
	s.ErrorIs(err, model.ErrRateLimited)

	status, err := s.coord.Status()
	s.Require().NoError(err)
	s.Equal(4*time.Hour, status.DailyRewardIn)
}

// Queue tests

func (s *CoordinatorSuite) TestQueueOverflowDropsAndMarksUnsynced() {
	_ = s.coord.Close()
	s.coord = s.newCoordinator(Config{Economy: s.cfg, QueueSize: 1})
	s.loadRemote(s.player())

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	s.remote.On("Update", mock.Anything, mock.Anything).Return(model.PlayerState{}, nil).Run(func(mock.Arguments) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})

	_, err := s.coord.Tap(s.ctx)
	s.Require().NoError(err)
	<-started

	_, err = s.coord.Tap(s.ctx)
	s.Require().NoError(err)
	_, err = s.coord.Tap(s.ctx)
	s.Require().NoError(err)

	s.False(s.coord.Synced())
	close(release)
	s.flush()
	s.remote.AssertNumberOfCalls(s.T(), "Update", 2)

	state, err := s.coord.State()
	s.Require().NoError(err)
	s.Equal(int64(3), state.Balance)
}

func (s *CoordinatorSuite) TestFlushAfterClose() {
	s.Require().NoError(s.coord.Close())

	s.ErrorIs(s.coord.Flush(s.ctx), ErrClosed)
}

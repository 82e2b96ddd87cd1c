package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcoot/tapearn/internal/cache"
	"github.com/mcoot/tapearn/internal/dependencies/mocks"
	"github.com/mcoot/tapearn/internal/economy"
	"github.com/mcoot/tapearn/internal/model"
	"github.com/stretchr/testify/suite"
)

type CacheSuite struct {
	suite.Suite
	path  string
	clock *mocks.MockClock
	cache *Cache
	ctx   context.Context
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheSuite))
}

func (s *CacheSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "nested", "cache.sqlite")
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	c, err := Open(s.path, s.clock)
	s.Require().NoError(err)
	s.cache = c
	s.ctx = context.Background()
}

func (s *CacheSuite) TearDownTest() {
	_ = s.cache.Close()
}

func (s *CacheSuite) snapshot() *cache.Snapshot {
	state := economy.Default().NewPlayer("player-1", "alice", "Alice A", s.clock.Now())
	state.Balance = 120
	state.Stamina = 37
	state.ClaimedTaskIDs = []model.TaskID{"follow-twitter"}
	state.DailyCounters[model.FeatureSpins] = model.DailyCounter{Count: 1, DayKey: "2024-01-01"}
	expires := s.clock.Now().Add(time.Hour)
	state.PackageTier = model.TierSilver
	state.PackageExpiresAt = &expires
	return &cache.Snapshot{
		State:    state,
		Local:    model.LocalState{VisitedTaskIDs: []model.TaskID{"join-telegram"}},
		Unsynced: true,
	}
}

func (s *CacheSuite) TestOpenRejectsEmptyPath() {
	_, err := Open("", s.clock)
	s.Error(err)
}

func (s *CacheSuite) TestLoadMissing() {
	_, err := s.cache.Load(s.ctx, "nobody")
	s.ErrorIs(err, cache.ErrSnapshotNotFound)
}

func (s *CacheSuite) TestRoundTrip() {
	snap := s.snapshot()
	s.Require().NoError(s.cache.Save(s.ctx, snap))

	loaded, err := s.cache.Load(s.ctx, "player-1")
	s.Require().NoError(err)

	s.Equal(int64(120), loaded.State.Balance)
	s.Equal(37, loaded.State.Stamina)
	s.Equal(model.TierSilver, loaded.State.PackageTier)
	s.Require().NotNil(loaded.State.PackageExpiresAt)
	s.True(snap.State.PackageExpiresAt.Equal(*loaded.State.PackageExpiresAt))
	s.Equal(model.DailyCounter{Count: 1, DayKey: "2024-01-01"}, loaded.State.Counter(model.FeatureSpins))
	s.Equal([]model.TaskID{"follow-twitter"}, loaded.State.ClaimedTaskIDs)
	s.True(loaded.Local.HasVisited("join-telegram"))
	s.True(loaded.Unsynced)
	s.True(s.clock.Now().Equal(loaded.SavedAt))
}

func (s *CacheSuite) TestSaveReplacesWholeSnapshot() {
	snap := s.snapshot()
	s.Require().NoError(s.cache.Save(s.ctx, snap))

	snap.State.Balance = 5
	snap.Unsynced = false
	s.clock.Advance(time.Minute)
	s.Require().NoError(s.cache.Save(s.ctx, snap))

	loaded, err := s.cache.Load(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(int64(5), loaded.State.Balance)
	s.False(loaded.Unsynced)
	s.True(s.clock.Now().Equal(loaded.SavedAt))
}

func (s *CacheSuite) TestSurvivesReopen() {
	s.Require().NoError(s.cache.Save(s.ctx, s.snapshot()))
	s.Require().NoError(s.cache.Close())

	reopened, err := Open(s.path, s.clock)
	s.Require().NoError(err)
	s.cache = reopened

	loaded, err := s.cache.Load(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(int64(120), loaded.State.Balance)
}

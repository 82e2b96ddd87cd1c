// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/tapearn/internal/model"
	"github.com/mcoot/tapearn/internal/storage"
)

// Suite is embedded by each backend's test suite, which sets Storage in SetupTest
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

// Player returns a fresh player fixture
func (s *Suite) Player(id model.PlayerID, username string) *model.PlayerState {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return &model.PlayerState{
		PlayerID:               id,
		Username:               username,
		Balance:                10,
		Stamina:                100,
		MaxStamina:             100,
		StaminaRegenIntervalMs: 10000,
		LastRegenAt:            now,
		Multiplier:             1,
		PackageTier:            model.TierFree,
		DailyCounters:          map[model.Feature]model.DailyCounter{},
		ClaimedTaskIDs:         []model.TaskID{},
		Referrals:              []model.PlayerID{},
		CreatedAt:              now,
	}
}

func (s *Suite) TestSaveAndGetPlayer() {
	p := s.Player("100", "alice")
	p.ClaimedTaskIDs = []model.TaskID{"follow-twitter"}
	p.DailyCounters[model.FeatureSpins] = model.DailyCounter{Count: 1, DayKey: "2024-01-01"}

	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, p))

	got, err := s.Storage.GetPlayer(s.Ctx, "100")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("100"), got.PlayerID)
	s.Equal("alice", got.Username)
	s.Equal(int64(10), got.Balance)
	s.Equal([]model.TaskID{"follow-twitter"}, got.ClaimedTaskIDs)
	s.Equal(1, got.Counter(model.FeatureSpins).Count)
	s.True(p.LastRegenAt.Equal(got.LastRegenAt))
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.Storage.GetPlayer(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestSaveOverwrites() {
	p := s.Player("100", "alice")
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, p))

	p.Balance = 99
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, p))

	got, err := s.Storage.GetPlayer(s.Ctx, "100")
	s.Require().NoError(err)
	s.Equal(int64(99), got.Balance)
}

func (s *Suite) TestGetPlayerByUsername() {
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, s.Player("100", "Alice")))

	got, err := s.Storage.GetPlayerByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("100"), got.PlayerID)

	_, err = s.Storage.GetPlayerByUsername(s.Ctx, "bob")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestUsernameChangeMovesIndex() {
	p := s.Player("100", "alice")
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, p))

	p.Username = "alicia"
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, p))

	_, err := s.Storage.GetPlayerByUsername(s.Ctx, "alice")
	s.ErrorIs(err, model.ErrPlayerNotFound)
	got, err := s.Storage.GetPlayerByUsername(s.Ctx, "alicia")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("100"), got.PlayerID)
}

func (s *Suite) TestListPlayersOrderedByID() {
	for _, id := range []model.PlayerID{"300", "100", "200"} {
		s.Require().NoError(s.Storage.SavePlayer(s.Ctx, s.Player(id, "u"+string(id))))
	}

	players, err := s.Storage.ListPlayers(s.Ctx)
	s.Require().NoError(err)

	s.Require().Len(players, 3)
	s.Equal(model.PlayerID("100"), players[0].PlayerID)
	s.Equal(model.PlayerID("200"), players[1].PlayerID)
	s.Equal(model.PlayerID("300"), players[2].PlayerID)
}

func (s *Suite) TestListPlayersEmpty() {
	players, err := s.Storage.ListPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Empty(players)
}

func (s *Suite) TestDeletePlayer() {
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, s.Player("100", "alice")))

	s.Require().NoError(s.Storage.DeletePlayer(s.Ctx, "100"))

	_, err := s.Storage.GetPlayer(s.Ctx, "100")
	s.ErrorIs(err, model.ErrPlayerNotFound)
	_, err = s.Storage.GetPlayerByUsername(s.Ctx, "alice")
	s.ErrorIs(err, model.ErrPlayerNotFound)
	players, err := s.Storage.ListPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Empty(players)
}

func (s *Suite) TestDeleteMissingPlayer() {
	s.NoError(s.Storage.DeletePlayer(s.Ctx, "missing"))
}

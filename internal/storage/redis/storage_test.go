package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/tapearn/internal/model"
	"github.com/mcoot/tapearn/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini    *miniredis.Miniredis
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.storage = NewWithClient(client, DefaultConfig())
	s.Storage = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) TestKeysUsePrefix() {
	s.Require().NoError(s.storage.SavePlayer(s.Ctx, s.Player("100", "Alice")))

	s.True(s.mini.Exists("tapearn:player:100"))
	s.True(s.mini.Exists("tapearn:idx:username:alice"))
	members, err := s.mini.SMembers("tapearn:idx:players")
	s.Require().NoError(err)
	s.Equal([]string{"100"}, members)
}

func (s *StorageSuite) TestListSkipsDanglingIndexEntries() {
	s.Require().NoError(s.storage.SavePlayer(s.Ctx, s.Player("100", "alice")))
	_, err := s.mini.SAdd("tapearn:idx:players", "999")
	s.Require().NoError(err)

	players, err := s.storage.ListPlayers(s.Ctx)
	s.Require().NoError(err)
	s.Len(players, 1)
}

func (s *StorageSuite) TestNewRejectsBadURL() {
	cfg := DefaultConfig()
	cfg.URL = "not-a-url"

	_, err := New(cfg)
	s.Error(err)
}

func (s *StorageSuite) TestNewConnects() {
	cfg := DefaultConfig()
	cfg.URL = "redis://" + s.mini.Addr()

	st, err := New(cfg)
	s.Require().NoError(err)
	s.NoError(st.Close())
}

func (s *StorageSuite) TestKeyPrefixIsolatesStores() {
	cfg := DefaultConfig()
	cfg.KeyPrefix = "staging"
	other := NewWithClient(redis.NewClient(&redis.Options{Addr: s.mini.Addr()}), cfg)
	defer func() { _ = other.Close() }()

	s.Require().NoError(other.SavePlayer(s.Ctx, s.Player("100", "alice")))

	s.True(s.mini.Exists("staging:player:100"))
	_, err := s.storage.GetPlayer(s.Ctx, "100")
	s.ErrorIs(err, model.ErrPlayerNotFound)
	_, err = s.storage.GetPlayerByUsername(s.Ctx, "alice")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

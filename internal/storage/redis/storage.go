package redis

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/tapearn/internal/model"
	"github.com/mcoot/tapearn/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
	keys   keys
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.OpTimeout > 0 {
		opts.ReadTimeout = cfg.OpTimeout
		opts.WriteTimeout = cfg.OpTimeout
	}

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
		keys:   newKeys(cfg.KeyPrefix),
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
		keys:   newKeys(cfg.KeyPrefix),
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SavePlayer(ctx context.Context, player *model.PlayerState) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	old, err := s.GetPlayer(ctx, player.PlayerID)
	if err != nil && !errors.Is(err, model.ErrPlayerNotFound) {
		return err
	}

	// Use a transaction for atomic save + index update
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if old != nil && old.Username != "" && !strings.EqualFold(old.Username, player.Username) {
			pipe.Del(ctx, s.keys.username(old.Username))
		}
		pipe.Set(ctx, s.keys.player(player.PlayerID), data, 0)
		pipe.SAdd(ctx, s.keys.players(), string(player.PlayerID))
		if player.Username != "" {
			pipe.Set(ctx, s.keys.username(player.Username), string(player.PlayerID), 0)
		}
		return nil
	})
	return err
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.PlayerState, error) {
	data, err := s.client.Get(ctx, s.keys.player(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.PlayerState
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *Storage) GetPlayerByUsername(ctx context.Context, username string) (*model.PlayerState, error) {
	id, err := s.client.Get(ctx, s.keys.username(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	return s.GetPlayer(ctx, model.PlayerID(id))
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.PlayerState, error) {
	ids, err := s.client.SMembers(ctx, s.keys.players()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.PlayerState{}, nil
	}
	slices.Sort(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.keys.player(model.PlayerID(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	players := make([]*model.PlayerState, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a player (deleted concurrently)
			continue
		}
		var player model.PlayerState
		if err := json.Unmarshal([]byte(raw), &player); err != nil {
			return nil, err
		}
		players = append(players, &player)
	}
	return players, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	old, err := s.GetPlayer(ctx, id)
	if errors.Is(err, model.ErrPlayerNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.keys.player(id))
		pipe.SRem(ctx, s.keys.players(), string(id))
		if old.Username != "" {
			pipe.Del(ctx, s.keys.username(old.Username))
		}
		return nil
	})
	return err
}

package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/mcoot/tapearn/internal/model"
	"github.com/mcoot/tapearn/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players       map[model.PlayerID]*model.PlayerState
	usernameIndex map[string]model.PlayerID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:       make(map[model.PlayerID]*model.PlayerState),
		usernameIndex: make(map[string]model.PlayerID),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SavePlayer(ctx context.Context, player *model.PlayerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.players[player.PlayerID]; ok && old.Username != "" {
		delete(s.usernameIndex, strings.ToLower(old.Username))
	}
	stored := player.Clone()
	s.players[player.PlayerID] = &stored
	if player.Username != "" {
		s.usernameIndex[strings.ToLower(player.Username)] = player.PlayerID
	}
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.PlayerState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	out := player.Clone()
	return &out, nil
}

func (s *Storage) GetPlayerByUsername(ctx context.Context, username string) (*model.PlayerState, error) {
	s.mu.RLock()
	id, ok := s.usernameIndex[strings.ToLower(username)]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return s.GetPlayer(ctx, id)
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.PlayerState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.PlayerState, 0, len(s.players))
	for _, p := range s.players {
		c := p.Clone()
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *model.PlayerState) int {
		return strings.Compare(string(a.PlayerID), string(b.PlayerID))
	})
	return out, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.players[id]; ok && old.Username != "" {
		delete(s.usernameIndex, strings.ToLower(old.Username))
	}
	delete(s.players, id)
	return nil
}

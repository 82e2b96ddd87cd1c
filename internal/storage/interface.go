package storage

import (
	"context"

	"github.com/mcoot/tapearn/internal/model"
)

// Storage defines the interface for authoritative player persistence.
// Missing players are reported as model.ErrPlayerNotFound.
type Storage interface {
	SavePlayer(ctx context.Context, player *model.PlayerState) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.PlayerState, error)
	GetPlayerByUsername(ctx context.Context, username string) (*model.PlayerState, error)
	// ListPlayers returns every player ordered by id
	ListPlayers(ctx context.Context) ([]*model.PlayerState, error)
	DeletePlayer(ctx context.Context, id model.PlayerID) error
}

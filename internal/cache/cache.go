package cache

import (
	"context"
	"errors"
	"time"

	"github.com/mcoot/tapearn/internal/model"
)

// ErrSnapshotNotFound is returned when no snapshot has been saved for a player
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is everything a device remembers about one player between sessions.
// It is always written as a whole.
type Snapshot struct {
	State    model.PlayerState `json:"state"`
	Local    model.LocalState  `json:"local"`
	Unsynced bool              `json:"unsynced"`
	SavedAt  time.Time         `json:"savedAt"`
}

// Clone returns a deep copy
func (s *Snapshot) Clone() *Snapshot {
	return &Snapshot{
		State:    s.State.Clone(),
		Local:    s.Local.Clone(),
		Unsynced: s.Unsynced,
		SavedAt:  s.SavedAt,
	}
}

// Cache is the durable local store of player snapshots
type Cache interface {
	// Load returns the last saved snapshot or ErrSnapshotNotFound
	Load(ctx context.Context, id model.PlayerID) (*Snapshot, error)
	// Save stamps SavedAt and replaces the stored snapshot
	Save(ctx context.Context, snap *Snapshot) error
	Close() error
}

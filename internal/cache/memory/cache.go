package memory

import (
	"context"
	"sync"

	"github.com/mcoot/tapearn/internal/cache"
	"github.com/mcoot/tapearn/internal/dependencies/clock"
	"github.com/mcoot/tapearn/internal/model"
)

// Cache is an in-memory snapshot cache. It lives as long as the process.
type Cache struct {
	mu        sync.RWMutex
	clock     clock.Clock
	snapshots map[model.PlayerID]*cache.Snapshot
}

// Ensure Cache implements cache.Cache
var _ cache.Cache = (*Cache)(nil)

// New creates a new in-memory cache
func New(clk clock.Clock) *Cache {
	return &Cache{
		clock:     clk,
		snapshots: make(map[model.PlayerID]*cache.Snapshot),
	}
}

func (c *Cache) Load(ctx context.Context, id model.PlayerID) (*cache.Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.snapshots[id]
	if !ok {
		return nil, cache.ErrSnapshotNotFound
	}
	return snap.Clone(), nil
}

func (c *Cache) Save(ctx context.Context, snap *cache.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := snap.Clone()
	stored.SavedAt = c.clock.Now()
	snap.SavedAt = stored.SavedAt
	c.snapshots[stored.State.PlayerID] = stored
	return nil
}

func (c *Cache) Close() error {
	return nil
}

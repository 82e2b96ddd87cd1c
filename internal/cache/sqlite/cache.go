package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mcoot/tapearn/internal/cache"
	"github.com/mcoot/tapearn/internal/dependencies/clock"
	"github.com/mcoot/tapearn/internal/model"
)

// Cache stores snapshots in a SQLite file, one row per player, so a session
// can resume after the process exits.
type Cache struct {
	db    *sql.DB
	clock clock.Clock
}

// Ensure Cache implements cache.Cache
var _ cache.Cache = (*Cache)(nil)

// Open opens or creates the cache database at path
func Open(path string, clk clock.Clock) (*Cache, error) {
	if path == "" {
		return nil, fmt.Errorf("empty cache path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db, clock: clk}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=FULL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		player_id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		unsynced INTEGER NOT NULL DEFAULT 0,
		saved_at TEXT NOT NULL
	);`)
	return err
}

// Load returns the stored snapshot or cache.ErrSnapshotNotFound
func (c *Cache) Load(ctx context.Context, id model.PlayerID) (*cache.Snapshot, error) {
	var data string
	err := c.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE player_id = ?`, string(id)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}

	var snap cache.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// Save stamps the snapshot with the clock and upserts it
func (c *Cache) Save(ctx context.Context, snap *cache.Snapshot) error {
	snap.SavedAt = c.clock.Now().UTC()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `INSERT INTO snapshots (player_id, data, unsynced, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET data = excluded.data, unsynced = excluded.unsynced, saved_at = excluded.saved_at`,
		string(snap.State.PlayerID), string(data), snap.Unsynced, snap.SavedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", snap.State.PlayerID, err)
	}
	return nil
}

// Close closes the database
func (c *Cache) Close() error {
	return c.db.Close()
}

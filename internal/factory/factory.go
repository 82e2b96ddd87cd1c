package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/tapearn/internal/api"
	"github.com/mcoot/tapearn/internal/cache"
	memorycache "github.com/mcoot/tapearn/internal/cache/memory"
	sqlitecache "github.com/mcoot/tapearn/internal/cache/sqlite"
	"github.com/mcoot/tapearn/internal/dependencies/clock"
	"github.com/mcoot/tapearn/internal/dependencies/random"
	"github.com/mcoot/tapearn/internal/economy"
	"github.com/mcoot/tapearn/internal/model"
	"github.com/mcoot/tapearn/internal/remote"
	"github.com/mcoot/tapearn/internal/services/auth"
	"github.com/mcoot/tapearn/internal/services/playerstore"
	"github.com/mcoot/tapearn/internal/services/reconcile"
	"github.com/mcoot/tapearn/internal/storage"
	"github.com/mcoot/tapearn/internal/storage/memory"
	pgstorage "github.com/mcoot/tapearn/internal/storage/postgres"
	redisstorage "github.com/mcoot/tapearn/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypePostgres = "postgres"
)

// App contains all wired components of the player store server
type App struct {
	// Storage
	Storage     storage.Storage
	StorageType string

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	Economy economy.Config
	Logger  *slog.Logger

	// Services
	Players     *playerstore.Service
	AuthService *auth.Service

	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Economy overrides the reference economy (optional)
	Economy *economy.Config
	// AuthConfig holds the admin key settings (optional).
	// Without an AdminKeyHash the admin API answers 403.
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds database settings (required if StorageType is "postgres")
	PostgresConfig *pgstorage.Config
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	econ := economy.Default()
	if cfg.Economy != nil {
		econ = *cfg.Economy
	}
	if err := econ.Validate(); err != nil {
		return nil, fmt.Errorf("economy: %w", err)
	}

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	var store storage.Storage
	var closers []io.Closer
	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
		closers = append(closers, redisStore)
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		pgStore, err := pgstorage.New(ctx, *cfg.PostgresConfig)
		if err != nil {
			return nil, err
		}
		store = pgStore
		closers = append(closers, pgStore)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'postgres'", storageType)
	}

	app := newWithDependencies(store, clock.New(), random.New(), econ, cfg.AuthConfig, logger)
	app.StorageType = storageType
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, econ economy.Config, authCfg auth.Config, logger *slog.Logger) *App {
	return &App{
		Storage:     store,
		StorageType: StorageTypeMemory,
		Clock:       clk,
		Random:      rnd,
		Economy:     econ,
		Logger:      logger,
		Players:     playerstore.New(store, clk, econ, logger),
		AuthService: auth.New(clk, authCfg),
	}
}

// Router returns the HTTP handler serving the player store API
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:      a.Logger,
		AuthService: a.AuthService,
		Players:     a.Players,
		StorageName: a.StorageType,
	})
}

// Close releases storage connections
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// ClientConfig holds configuration for a player session against a remote store
type ClientConfig struct {
	// ServerURL is the store's base URL including the /api prefix
	ServerURL string
	PlayerID  model.PlayerID
	// CachePath is the SQLite snapshot file; empty keeps the cache in memory
	CachePath string
	Economy   *economy.Config
	Timeout   time.Duration
	Logger    *slog.Logger

	// Clock and Random default to the real ones
	Clock  clock.Clock
	Random random.Random
}

// Session is a wired player session
type Session struct {
	*reconcile.Coordinator
	Remote *remote.Client
	Cache  cache.Cache
}

// NewSession wires a coordinator to the remote store and the local cache.
// The session is not loaded yet.
func NewSession(cfg ClientConfig) (*Session, error) {
	if cfg.ServerURL == "" {
		return nil, errors.New("server URL is required")
	}
	if cfg.PlayerID == "" {
		return nil, errors.New("player id is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	econ := economy.Default()
	if cfg.Economy != nil {
		econ = *cfg.Economy
	}

	var c cache.Cache = memorycache.New(cfg.Clock)
	if cfg.CachePath != "" {
		sc, err := sqlitecache.Open(cfg.CachePath, cfg.Clock)
		if err != nil {
			return nil, err
		}
		c = sc
	}

	client := remote.NewClient(cfg.ServerURL, cfg.Timeout)
	coord := reconcile.NewCoordinator(cfg.PlayerID, reconcile.Deps{
		Remote: client,
		Cache:  c,
		Clock:  cfg.Clock,
		Random: cfg.Random,
		Logger: cfg.Logger,
	}, reconcile.Config{Economy: econ, PushTimeout: cfg.Timeout})

	return &Session{Coordinator: coord, Remote: client, Cache: c}, nil
}

// Close stops the push worker once queued pushes finish, then closes the cache
func (s *Session) Close() error {
	return errors.Join(s.Coordinator.Close(), s.Cache.Close())
}

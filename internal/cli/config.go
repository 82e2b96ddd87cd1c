package cli

import (
	"os"
	"path/filepath"
	"time"

	"github.com/mcoot/tapearn/internal/economy"
)

// Config holds CLI configuration
type Config struct {
	ServerURL   string
	PlayerID    string
	CachePath   string
	EconomyPath string
	Output      string
	Timeout     time.Duration
	Verbose     bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:   getEnvOrDefault("TAPEARN_SERVER", "http://localhost:8080/api"),
		PlayerID:    os.Getenv("TAPEARN_PLAYER"),
		CachePath:   getEnvOrDefault("TAPEARN_CACHE", defaultCachePath()),
		EconomyPath: os.Getenv("TAPEARN_ECONOMY"),
		Output:      "text",
		Timeout:     10 * time.Second,
		Verbose:     false,
	}
}

// Economy loads the economy file if one is configured, else the reference economy
func (c *Config) Economy() (economy.Config, error) {
	if c.EconomyPath == "" {
		return economy.Default(), nil
	}
	return economy.Load(c.EconomyPath)
}

// EnsureCacheDir creates the directory holding the cache file
func (c *Config) EnsureCacheDir() error {
	if c.CachePath == "" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(c.CachePath), 0700)
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tapearn/cache.db"
	}
	return filepath.Join(home, ".tapearn", "cache.db")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

package redis

import "time"

// Config holds Redis connection settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// KeyPrefix namespaces every key, so several stores can share one Redis
	KeyPrefix string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// DialTimeout bounds the startup ping
	DialTimeout time.Duration
	// OpTimeout bounds each command; zero leaves it to the caller's context
	OpTimeout time.Duration
}

// DefaultConfig returns the connection settings used by cmd/server
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		KeyPrefix:    defaultKeyPrefix,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		OpTimeout:    2 * time.Second,
	}
}

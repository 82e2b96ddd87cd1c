package auth

import (
	"crypto/sha256"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/tapearn/internal/dependencies/clock"
)

// Errors
var (
	ErrAdminDisabled   = errors.New("admin API is disabled")
	ErrInvalidAdminKey = errors.New("invalid admin key")
)

// Service verifies the admin key presented to the admin API against a
// bcrypt hash. Keys that verified recently are remembered so repeated admin
// calls skip the bcrypt comparison.
type Service struct {
	hash  []byte
	clock clock.Clock

	mu       sync.RWMutex
	verified map[[sha256.Size]byte]time.Time

	rememberFor time.Duration
}

// Config holds configuration for the auth service
type Config struct {
	// AdminKeyHash is a bcrypt hash; empty disables the admin API
	AdminKeyHash string
	RememberFor  time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		RememberFor: 5 * time.Minute,
	}
}

// New creates a new auth Service
func New(clock clock.Clock, cfg Config) *Service {
	if cfg.RememberFor == 0 {
		cfg.RememberFor = DefaultConfig().RememberFor
	}
	return &Service{
		hash:        []byte(cfg.AdminKeyHash),
		clock:       clock,
		verified:    make(map[[sha256.Size]byte]time.Time),
		rememberFor: cfg.RememberFor,
	}
}

// Enabled reports whether an admin key hash is configured
func (s *Service) Enabled() bool {
	return len(s.hash) > 0
}

// VerifyAdminKey checks key against the configured hash
func (s *Service) VerifyAdminKey(key string) error {
	if !s.Enabled() {
		return ErrAdminDisabled
	}
	if key == "" {
		return ErrInvalidAdminKey
	}

	digest := sha256.Sum256([]byte(key))
	now := s.clock.Now()

	s.mu.RLock()
	until, ok := s.verified[digest]
	s.mu.RUnlock()
	if ok && now.Before(until) {
		return nil
	}

	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(key)); err != nil {
		return ErrInvalidAdminKey
	}

	s.mu.Lock()
	s.verified[digest] = now.Add(s.rememberFor)
	s.mu.Unlock()
	return nil
}

// Forget drops every remembered key, forcing the next call to run bcrypt
func (s *Service) Forget() {
	s.mu.Lock()
	clear(s.verified)
	s.mu.Unlock()
}

// HashAdminKey returns a bcrypt hash suitable for ADMIN_KEY_HASH
func HashAdminKey(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidAdminKey
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

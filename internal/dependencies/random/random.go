package random

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
)

// Random is the draw source for the spin wheel
type Random interface {
	// Intn returns a uniformly distributed int in [0, n), or 0 when n <= 0
	Intn(n int) int
}

// Source draws from crypto/rand, so spin outcomes cannot be predicted from
// earlier ones
type Source struct{}

// New creates a crypto-backed Source
func New() *Source {
	return &Source{}
}

// Intn returns a uniform int in [0, n). If the system entropy source fails
// it falls back to the runtime's PRNG rather than biasing toward slot 0.
func (Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	result, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return mrand.IntN(n)
	}
	return int(result.Int64())
}

package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/tapearn/internal/dependencies/random"
)

// MockRandom returns queued draws in order and 0 once the queue is empty.
// A queued draw outside [0, n) panics, so a test that queues a slot the
// wheel does not have fails at the draw.
type MockRandom struct {
	mu     sync.Mutex
	draws  []int
	ranges []int
}

var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a MockRandom with an empty queue
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

func (r *MockRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ranges = append(r.ranges, n)
	if len(r.draws) == 0 {
		return 0
	}
	v := r.draws[0]
	r.draws = r.draws[1:]
	if v < 0 || v >= n {
		panic(fmt.Sprintf("mocks: queued draw %d outside [0, %d)", v, n))
	}
	return v
}

// QueueIntn appends draws to the queue
func (r *MockRandom) QueueIntn(values ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draws = append(r.draws, values...)
}

// Ranges returns the n of every Intn call so far
func (r *MockRandom) Ranges() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.ranges...)
}

// Pending reports how many queued draws are unused
func (r *MockRandom) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.draws)
}

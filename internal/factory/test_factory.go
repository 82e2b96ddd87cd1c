package factory

import (
	"net/http/httptest"
	"time"

	"github.com/mcoot/tapearn/internal/dependencies/mocks"
	"github.com/mcoot/tapearn/internal/economy"
	"github.com/mcoot/tapearn/internal/model"
	"github.com/mcoot/tapearn/internal/services/auth"
	"github.com/mcoot/tapearn/internal/storage/memory"
	"github.com/mcoot/tapearn/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App backed by memory storage with mocked clock and random
func NewTestApp(authCfg auth.Config) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(store, mockClock, mockRandom, economy.Default(), authCfg, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// Serve starts an httptest server for the app's router. The caller closes it.
func (t *TestApp) Serve() *httptest.Server {
	return httptest.NewServer(t.Router())
}

// NewSession opens an in-memory-cached session against a served app, sharing
// the app's mocked clock and random
func (t *TestApp) NewSession(server *httptest.Server, id model.PlayerID) (*Session, error) {
	return NewSession(ClientConfig{
		ServerURL: server.URL + "/api",
		PlayerID:  id,
		Economy:   &t.Economy,
		Timeout:   5 * time.Second,
		Logger:    t.Logger,
		Clock:     t.MockClock,
		Random:    t.MockRandom,
	})
}

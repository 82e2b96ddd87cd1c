package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/mcoot/tapearn/internal/factory"
	"github.com/mcoot/tapearn/internal/model"
	"github.com/mcoot/tapearn/internal/remote"
)

var errNoPlayer = errors.New("--player is required (env: TAPEARN_PLAYER)")

// storeClient talks to the player store directly, without a session
func storeClient() *remote.Client {
	return remote.NewClient(cfg.ServerURL, cfg.Timeout)
}

// openSession wires a session for the configured player without loading it
func openSession() (*factory.Session, error) {
	if cfg.PlayerID == "" {
		return nil, errNoPlayer
	}
	econ, err := cfg.Economy()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureCacheDir(); err != nil {
		return nil, err
	}
	return factory.NewSession(factory.ClientConfig{
		ServerURL: cfg.ServerURL,
		PlayerID:  model.PlayerID(cfg.PlayerID),
		CachePath: cfg.CachePath,
		Economy:   &econ,
		Timeout:   cfg.Timeout,
		Logger:    logger,
	})
}

// loadSession opens and loads a session, falling back to the cache when
// the store is unreachable
func loadSession(ctx context.Context) (*factory.Session, error) {
	sess, err := openSession()
	if err != nil {
		return nil, err
	}
	if err := sess.Load(ctx); err != nil {
		_ = sess.Close()
		return nil, err
	}
	return sess, nil
}

// runAction loads a session, performs one action, waits for its pushes and
// prints the resulting player state with the action's message
func runAction(cmd *cobra.Command, action func(ctx context.Context, sess *factory.Session) (string, error)) error {
	ctx := cmd.Context()
	sess, err := loadSession(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	msg, err := action(ctx, sess)
	if err != nil {
		return err
	}
	return printAction(cmd, sess, msg)
}

func printAction(cmd *cobra.Command, sess *factory.Session, msg string) error {
	ctx := cmd.Context()
	if err := sess.Flush(ctx); err != nil {
		return err
	}
	state, err := sess.State()
	if err != nil {
		return err
	}
	NewOutput(cfg.Output, cmd.OutOrStdout()).Print(ActionView{
		Message: msg,
		Player:  newPlayerView(state, sess.Synced()),
	})
	return nil
}

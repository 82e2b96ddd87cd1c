package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	logger *slog.Logger
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "tapearn",
		Short: "Play the tap-to-earn game from the terminal",
		Long: `tapearn runs one player session per invocation against the player store.

Every command loads the player's state (falling back to the local cache when
the store is unreachable), performs its action, and waits for the changes to
reach the store before exiting.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelError
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Player store URL including /api (env: TAPEARN_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&cfg.PlayerID, "player", "p", cfg.PlayerID, "Telegram id of the player (env: TAPEARN_PLAYER)")
	rootCmd.PersistentFlags().StringVar(&cfg.CachePath, "cache", cfg.CachePath, "Local snapshot cache file (env: TAPEARN_CACHE)")
	rootCmd.PersistentFlags().StringVar(&cfg.EconomyPath, "economy", cfg.EconomyPath, "Economy YAML file (env: TAPEARN_ECONOMY)")
	rootCmd.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Timeout for each request to the store")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newTapCmd())
	rootCmd.AddCommand(newSpinCmd())
	rootCmd.AddCommand(newBuyCmd())
	rootCmd.AddCommand(newPackageCmd())
	rootCmd.AddCommand(newBotCmd())
	rootCmd.AddCommand(newRefillCmd())
	rootCmd.AddCommand(newTaskCmd())
	rootCmd.AddCommand(newReferralCmd())
	rootCmd.AddCommand(newDailyCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newAdminCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

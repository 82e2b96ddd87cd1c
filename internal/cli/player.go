package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mcoot/tapearn/internal/api/request"
	"github.com/mcoot/tapearn/internal/factory"
	"github.com/mcoot/tapearn/internal/model"
	"github.com/mcoot/tapearn/internal/services/reconcile"
)

func newLoginCmd() *cobra.Command {
	var req request.LoginRequest

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Register with the store or sign back in",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := openSession()
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			isNew, err := sess.Login(ctx, req)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("Welcome back, %s!", cfg.PlayerID)
			if isNew {
				msg = fmt.Sprintf("Welcome, %s! Your account has been created.", cfg.PlayerID)
			}
			return printAction(cmd, sess, msg)
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "Username")
	cmd.Flags().StringVar(&req.FullName, "full-name", "", "Full name")
	cmd.Flags().StringVar(&req.Referrer, "referrer", "", "Id or username of the player who invited you")

	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show balance, stamina and what is left today",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			st, err := sess.Status()
			if err != nil {
				return err
			}
			view := StatusView{
				Player:    newPlayerView(st.State, st.Synced),
				Remaining: st.Remaining,
			}
			if st.NextRegenIn > 0 {
				view.NextRegenIn = st.NextRegenIn.Round(time.Second).String()
			}
			if st.DailyRewardIn > 0 {
				view.DailyRewardIn = model.FormatWait(st.DailyRewardIn)
			}
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(view)
			return nil
		},
	}
}

func newTapCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "tap",
		Short: "Tap for coins",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, func(ctx context.Context, sess *factory.Session) (string, error) {
				result, err := sess.TapN(ctx, count)
				if err != nil {
					return "", err
				}
				msg := fmt.Sprintf("Tapped %d times for %s coins", result.Taps, humanize.Comma(result.Earned))
				if result.Taps < count {
					msg += ", out of stamina"
				}
				return msg, nil
			})
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of taps")

	return cmd
}

func newSpinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "spin",
		Short: "Spin the reward wheel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, func(ctx context.Context, sess *factory.Session) (string, error) {
				result, err := sess.Spin(ctx)
				if err != nil {
					return "", err
				}
				entry := result.Outcome.Entry
				if entry.Amount == 0 {
					return fmt.Sprintf("The wheel landed on %s, no luck this time", entry.Label), nil
				}
				return fmt.Sprintf("The wheel landed on %s: you won %s coins", entry.Label, humanize.Comma(entry.Amount)), nil
			})
		},
	}
}

func newBuyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buy",
		Short: "Spend coins on upgrades",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "multiplier",
		Short: "Raise coins earned per tap by one",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, func(ctx context.Context, sess *factory.Session) (string, error) {
				s, err := sess.BuyMultiplier(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Multiplier is now x%d", s.Multiplier), nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "regen",
		Short: "Make stamina regenerate faster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, func(ctx context.Context, sess *factory.Session) (string, error) {
				s, err := sess.BuyRegenSpeed(ctx)
				if err != nil {
					return "", err
				}
				interval := time.Duration(s.StaminaRegenIntervalMs) * time.Millisecond
				return fmt.Sprintf("Stamina now regenerates every %s", interval), nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "tap-bot",
		Short: "Buy the tap bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, func(ctx context.Context, sess *factory.Session) (string, error) {
				if _, err := sess.BuyAutoTapper(ctx); err != nil {
					return "", err
				}
				return "Tap bot purchased, switch it on with 'tapearn bot toggle'", nil
			})
		},
	})

	return cmd
}

func newPackageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "package",
		Short: "Paid packages",
	}

	var tier string
	var amount int64
	var tx string

	buyCmd := &cobra.Command{
		Use:   "buy",
		Short: "Activate a paid package with a confirmed payment",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := model.ParsePackageTier(tier)
			if err != nil {
				return err
			}
			return runAction(cmd, func(ctx context.Context, sess *factory.Session) (string, error) {
				s, err := sess.ActivatePackage(ctx, reconcile.PaymentReceipt{Tier: t, AmountNano: amount, TxRef: tx})
				if err != nil {
					return "", err
				}
				msg := fmt.Sprintf("%s package activated", s.PackageTier)
				if s.PackageExpiresAt != nil {
					msg += " until " + s.PackageExpiresAt.Format(time.DateOnly)
				}
				return msg, nil
			})
		},
	}
	buyCmd.Flags().StringVar(&tier, "tier", "", "Package tier: bronze, silver, gold (required)")
	buyCmd.Flags().Int64Var(&amount, "amount", 0, "Amount paid in nano units (required)")
	buyCmd.Flags().StringVar(&tx, "tx", "", "Payment transaction reference (required)")
	_ = buyCmd.MarkFlagRequired("tier")
	_ = buyCmd.MarkFlagRequired("amount")
	_ = buyCmd.MarkFlagRequired("tx")

	cmd.AddCommand(buyCmd)
	return cmd
}

func newBotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Tap bot commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Switch the tap bot on or off",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, func(ctx context.Context, sess *factory.Session) (string, error) {
				s, err := sess.ToggleAutoTapper(ctx)
				if err != nil {
					return "", err
				}
				if s.AutoTapperActive {
					return "Tap bot switched on", nil
				}
				return "Tap bot switched off", nil
			})
		},
	})

	return cmd
}

func newRefillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refill",
		Short: "Refill stamina to the maximum",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, func(ctx context.Context, sess *factory.Session) (string, error) {
				if _, err := sess.RefillStamina(ctx); err != nil {
					return "", err
				}
				return "Stamina refilled", nil
			})
		},
	}
}

func newDailyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daily",
		Short: "Claim the daily reward",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, func(ctx context.Context, sess *factory.Session) (string, error) {
				before, err := sess.State()
				if err != nil {
					return "", err
				}
				after, err := sess.ClaimDailyReward(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Daily reward claimed: %s coins", humanize.Comma(after.Balance-before.Balance)), nil
			})
		},
	}
}

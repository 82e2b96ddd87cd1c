package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcoot/tapearn/internal/factory"
)

func newReferralCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "referral",
		Short: "Referral commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "claim REFERRER",
		Short: "Record the player who invited you, by id or username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			referrer := args[0]
			return runAction(cmd, func(ctx context.Context, sess *factory.Session) (string, error) {
				if _, err := sess.ClaimReferral(ctx, referrer); err != nil {
					return "", err
				}
				return fmt.Sprintf("Referred by %s", referrer), nil
			})
		},
	})

	return cmd
}

func newLeaderboardCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the players with the most referrals",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := storeClient().ReferralLeaderboard(cmd.Context(), limit)
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(Leaderboard(entries))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Number of entries (store default when 0)")

	return cmd
}

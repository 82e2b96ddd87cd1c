package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/tapearn/internal/services/auth"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin helpers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "hash-key KEY",
		Short: "Hash an admin key for the server's ADMIN_KEY_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashAdminKey(args[0])
			if err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(HashResult{Hash: hash})
			return nil
		},
	})

	return cmd
}

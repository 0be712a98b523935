package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Maintain token state",
}

var tokensPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete revocation entries whose tokens have expired",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		deps, err := newDependencies()
		if err != nil {
			return err
		}
		defer deps.close()

		purged, err := deps.accounts.PurgeRevokedTokens(context.Background())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "purged %d revoked token(s)\n", purged)
		return nil
	},
}

func init() {
	tokensCmd.AddCommand(tokensPurgeCmd)
	rootCmd.AddCommand(tokensCmd)
}

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/vibast-solutions/ms-go-accounts/app/service"

	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Administer existing accounts",
}

var accountActivateCmd = &cobra.Command{
	Use:   "activate <email>",
	Short: "Allow an account to log in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAccountActive(cmd, args[0], true)
	},
}

var accountDeactivateCmd = &cobra.Command{
	Use:   "deactivate <email>",
	Short: "Prevent an account from logging in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAccountActive(cmd, args[0], false)
	},
}

func init() {
	accountCmd.AddCommand(accountActivateCmd)
	accountCmd.AddCommand(accountDeactivateCmd)
	rootCmd.AddCommand(accountCmd)
}

func setAccountActive(cmd *cobra.Command, email string, active bool) error {
	deps, err := newDependencies()
	if err != nil {
		return err
	}
	defer deps.close()

	if err = deps.accounts.SetActive(context.Background(), email, active); err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			return fmt.Errorf("account %q not found", email)
		}
		return err
	}

	state := "deactivated"
	if active {
		state = "activated"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "account %s: %s\n", state, email)
	return nil
}

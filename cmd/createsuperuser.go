package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vibast-solutions/ms-go-accounts/app/service"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Terminal access is swapped out in tests.
var (
	isTerminal   = term.IsTerminal
	readPassword = term.ReadPassword
)

var (
	superuserEmail    string
	superuserName     string
	superuserPassword string
)

var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create an account with staff and superuser permissions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reader := bufio.NewReader(cmd.InOrStdin())
		out := cmd.OutOrStdout()

		email, err := promptValue(reader, out, "Email", superuserEmail)
		if err != nil {
			return err
		}
		name, err := promptValue(reader, out, "Name", superuserName)
		if err != nil {
			return err
		}
		password, err := promptSecret(reader, cmd.InOrStdin(), out, "Password", superuserPassword)
		if err != nil {
			return err
		}

		deps, err := newDependencies()
		if err != nil {
			return err
		}
		defer deps.close()

		account, err := deps.accounts.CreateSuperuser(context.Background(), email, name, password)
		if err != nil {
			if errors.Is(err, service.ErrAccountExists) {
				return fmt.Errorf("account %q already exists", email)
			}
			return err
		}

		fmt.Fprintf(out, "superuser created: %s (id %d)\n", account.Email, account.ID)
		return nil
	},
}

func init() {
	createSuperuserCmd.Flags().StringVar(&superuserEmail, "email", "", "superuser email")
	createSuperuserCmd.Flags().StringVar(&superuserName, "name", "", "superuser name")
	createSuperuserCmd.Flags().StringVar(&superuserPassword, "password", os.Getenv("SUPERUSER_PASSWORD"), "superuser password (defaults to SUPERUSER_PASSWORD)")
	rootCmd.AddCommand(createSuperuserCmd)
}

// promptValue returns preset when set, otherwise reads one line from reader.
func promptValue(reader *bufio.Reader, out io.Writer, label, preset string) (string, error) {
	if preset != "" {
		return preset, nil
	}

	fmt.Fprintf(out, "%s: ", label)
	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return input, nil
}

// promptSecret behaves like promptValue but disables echo when in is a terminal.
func promptSecret(reader *bufio.Reader, in io.Reader, out io.Writer, label, preset string) (string, error) {
	if preset != "" {
		return preset, nil
	}

	file, ok := in.(*os.File)
	if !ok || !isTerminal(int(file.Fd())) {
		return promptValue(reader, out, label, "")
	}

	fmt.Fprintf(out, "%s: ", label)
	secret, err := readPassword(int(file.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}

	value := strings.TrimSpace(string(secret))
	if value == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return value, nil
}

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/distcompute/dcctl/internal/dcctl"
)

func loginCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username-or-email>",
		Short: "Log in and keep the session for later commands",
		Long: `Log in with a username or email address.

The password is read from --password, or prompted for when the flag is not set.
The session is kept in the store selected by --tokenStore.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			return a.Login(cmd.Context(), args[0], password)
		},
	}
	cmd.Flags().String("password", "", "password; prompted for when empty")
	return cmd
}

func registerCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := cmd.Flags().GetString("email")
			if err != nil {
				return fmt.Errorf("error reading email: %s", err)
			}
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			return a.Register(cmd.Context(), args[0], email, password)
		},
	}
	cmd.Flags().String("email", "", "email address of the new account")
	cmd.Flags().String("password", "", "password of at least 6 characters; prompted for when empty")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored credential",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Logout(cmd.Context())
		},
	}
	return cmd
}

func whoamiCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Print the logged in user",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.WhoAmI(cmd.Context())
		},
	}
	return cmd
}

func refreshCmd(a *dcctl.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Check the stored session with the backend",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a.Params)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.Refresh(cmd.Context())
		},
	}
	return cmd
}

// readPassword returns the --password flag, prompting on the terminal when it is empty.
func readPassword(cmd *cobra.Command) (string, error) {
	password, err := cmd.Flags().GetString("password")
	if err != nil {
		return "", fmt.Errorf("error reading password: %s", err)
	}
	if password != "" {
		return password, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	defer fmt.Fprintln(cmd.ErrOrStderr())

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", errors.Wrap(err, "error reading password")
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Wrap(err, "error reading password")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

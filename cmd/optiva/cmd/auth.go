package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcleod/optiva/api"
	"github.com/jmcleod/optiva/token"
)

var (
	email     string
	password  string
	firstName string
	lastName  string
)

// readPassword falls back to one line of stdin when --password is unset.
func readPassword(cmd *cobra.Command) (string, error) {
	if password != "" {
		return password, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}

func printUser(cmd *cobra.Command, u *token.User) {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", u.Email, u.UserID)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s)\n", name, u.Email, u.UserID)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := readPassword(cmd)
		if err != nil {
			return err
		}
		m, done, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		u, err := m.Login(cmd.Context(), api.LoginRequest{Email: email, Password: pw})
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), "Signed in as ")
		printUser(cmd, u)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := readPassword(cmd)
		if err != nil {
			return err
		}
		m, done, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer done()

		u, err := m.Register(cmd.Context(), api.RegisterRequest{
			Email:     email,
			Password:  pw,
			FirstName: firstName,
			LastName:  lastName,
		})
		if err != nil {
			if apiErr, ok := errors.AsType[*api.Error](err); ok {
				for field, msg := range apiErr.FieldErrors {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", field, msg)
				}
			}
			return fmt.Errorf("registration failed: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), "Registered ")
		printUser(cmd, u)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out of this profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, done, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer done()
		if err := m.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var logoutAllCmd = &cobra.Command{
	Use:   "logout-all",
	Short: "Sign out every session of the current user",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, done, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer done()
		if err := m.LogoutAll(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out everywhere")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, done, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer done()
		u := m.User()
		if u == nil {
			return errors.New("not signed in")
		}
		printUser(cmd, u)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&email, "email", "e", "", "Account email")
		c.Flags().StringVar(&password, "password", "", "Account password (prompted on stdin when empty)")
		_ = c.MarkFlagRequired("email")
	}
	registerCmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	registerCmd.Flags().StringVar(&lastName, "last-name", "", "Last name")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, logoutAllCmd, whoamiCmd)
}

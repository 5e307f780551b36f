package cmd

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/habedi/eq/client"
	"github.com/habedi/eq/pkg/clierr"
	"github.com/habedi/eq/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// loginCmd signs in with a username and password and stores the token pair.
func loginCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the gym API",
		Long:  "Sign in with your username and password. The session is kept until you log out or it expires.",
		RunE: withSession(false, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			var err error

			if username == "" {
				cmd.Println("Please enter your username and password.")
				if username, err = promptForInput(cmd, reader, "Username: "); err != nil {
					return err
				}
			}
			password, err := promptForPassword(cmd, reader, "Password: ")
			if err != nil {
				return err
			}
			if err := validateCredentials(username, password); err != nil {
				return clierr.New(clierr.Validation, "Username and password cannot be empty.", err)
			}

			access, refresh, err := s.client.Login(ctx, username, password)
			if err != nil {
				var apiErr *client.APIError
				if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
					return clierr.New(clierr.Auth, "Invalid username or password.", err)
				}
				return s.fail("Login failed", err)
			}
			if err := s.store.SignIn(ctx, access, refresh); err != nil {
				log.Error().Err(err).Msg("Failed to store the session")
				return clierr.New(clierr.Internal, "Signed in, but the session could not be saved locally.", err)
			}

			cmd.Println("Login was successful.")
			return nil
		}),
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username to sign in with (prompted when omitted)")

	return cmd
}

// promptForInput prompts the user for a line of input and returns it trimmed.
func promptForInput(cmd *cobra.Command, reader *bufio.Reader, prompt string) (string, error) {
	cmd.Print(prompt)
	input, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", clierr.New(clierr.Validation, "Failed to read input.", err)
	}
	return strings.TrimSpace(input), nil
}

// promptForPassword reads a password without echo when stdin is a terminal.
func promptForPassword(cmd *cobra.Command, reader *bufio.Reader, prompt string) (string, error) {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return promptForInput(cmd, reader, prompt)
	}

	cmd.Print(prompt)
	password, err := term.ReadPassword(int(f.Fd()))
	cmd.Println()
	if err != nil {
		return "", clierr.New(clierr.Validation, "Failed to read password.", err)
	}
	return strings.TrimSpace(string(password)), nil
}

func validateCredentials(username, password string) error {
	return errors.Join(
		validation.ValidateNonEmptyString("username", username),
		validation.ValidateNonEmptyString("password", password),
	)
}

// logoutCmd ends the session on the server (best effort) and locally.
func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: withSession(false, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			if !s.store.IsAuthenticated() {
				cmd.Println("You are not logged in.")
				return nil
			}

			if err := s.client.Logout(ctx); err != nil {
				log.Warn().Err(err).Msg("Server logout failed; signing out locally")
				cmd.PrintErrln("Warning: could not reach the server to log out. The local session is removed anyway.")
			}
			if err := s.store.SignOut(ctx); err != nil {
				return clierr.New(clierr.Internal, "Signed out, but the stored tokens could not be removed.", err)
			}

			cmd.Println("Logged out.")
			return nil
		}),
	}
}

// statusCmd shows the local session state and, with --check, verifies it against the API.
func statusCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		RunE: withSession(false, func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			cmd.Println("API:", s.client.BaseURL())
			cmd.Println("Session:", s.store.Session().State())

			if !check || !s.store.IsAuthenticated() {
				return nil
			}
			profile, err := s.client.Profile(ctx)
			if err != nil {
				return s.fail("Failed to verify the session", err)
			}
			cmd.Printf("Signed in as: %s\n", profile.Username)
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&check, "check", "c", false, "Verify the session with the API (refreshes it if needed)")

	return cmd
}

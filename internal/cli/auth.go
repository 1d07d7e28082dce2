// Package cli auth commands: login, signup, logout, whoami.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newLoginCmd creates the 'login' command.
func newLoginCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to Drivelink",
		Long: `Sign in to the Drivelink server and persist the session.

Examples:
  # Prompt for email and password
  drivelink login

  # Pre-fill the email, prompt only for password
  drivelink login --email you@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			creds, err := promptCredentials(email)
			if err != nil {
				return err
			}

			result := a.session.Login(GetContext(), creds)
			if !result.Success {
				return fmt.Errorf("login failed: %s", result.Error)
			}

			user := a.session.User()
			fmt.Printf("Logged in as %s\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted if omitted)")
	return cmd
}

// newSignupCmd creates the 'signup' command.
func newSignupCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a Drivelink account",
		Long:  `Create an account on the Drivelink server and sign in immediately.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			creds, err := promptCredentials(email)
			if err != nil {
				return err
			}

			result := a.session.Signup(GetContext(), creds)
			if !result.Success {
				return fmt.Errorf("signup failed: %s", result.Error)
			}

			user := a.session.User()
			fmt.Printf("Account created, logged in as %s\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted if omitted)")
	return cmd
}

// newLogoutCmd creates the 'logout' command.
func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and discard the local session",
		Long: `Revoke the session on the server and clear local credentials.

The local session is cleared even when the server cannot be reached.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			a.session.Logout(GetContext())
			fmt.Println("Logged out")
			return nil
		},
	}
}

// newWhoamiCmd creates the 'whoami' command.
func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireAuth(); err != nil {
				return err
			}

			user := a.session.User()
			fmt.Printf("Email: %s\n", user.Email)
			if user.Name != "" {
				fmt.Printf("Name:  %s\n", user.Name)
			}
			fmt.Printf("ID:    %s\n", user.ID)
			return nil
		},
	}
}

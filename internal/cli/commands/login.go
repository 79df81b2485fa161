package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/biocom-dev/biocom/internal/cli/client"
	"github.com/biocom-dev/biocom/internal/cli/session"
)

// NewLoginCmd creates the login command
func NewLoginCmd(g *Globals) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a Biocom server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			// Flags win over BIOCOM_USERNAME / BIOCOM_PASSWORD
			if username == "" {
				username = app.Env.Credentials.Username
			}
			if password == "" {
				password = app.Env.Credentials.Password
			}

			if username == "" {
				if username, err = app.prompt.Input("Username", "", notBlank); err != nil {
					return fmt.Errorf("username is required (use --username flag or BIOCOM_USERNAME env var): %w", err)
				}
			}
			if password == "" {
				if password, err = app.prompt.Secret("Password"); err != nil {
					return fmt.Errorf("password is required (use --password flag or BIOCOM_PASSWORD env var): %w", err)
				}
			}

			return app.login(cmd.Context(), app.out, username, password)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (or set BIOCOM_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set BIOCOM_PASSWORD, will prompt if not provided)")

	return cmd
}

// NewRegisterCmd creates the register command
func NewRegisterCmd(g *Globals) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account on a Biocom server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			if username == "" || email == "" || password == "" {
				return app.registerView(cmd.Context(), app.out)
			}
			return app.register(cmd.Context(), app.out, username, email, password)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (will prompt if not provided)")

	return cmd
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session for the selected server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			if err := app.Client.Logout(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(app.out, "✓ Logged out of %s\n", app.Server.Alias)
			return nil
		},
	}
}

// whoami is the structured form of the whoami output
type whoami struct {
	Server    string    `json:"server" yaml:"server"`
	Username  string    `json:"username" yaml:"username"`
	UserID    string    `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero" yaml:"expires_at,omitempty"`
	Expired   bool      `json:"expired" yaml:"expired"`
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Long: `Show the stored session for the selected server.

The token is decoded locally and not verified; the server may still reject it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			current := app.Sessions.Snapshot()
			if !current.Authenticated() {
				return client.ErrUnauthenticated
			}

			info := whoami{Server: app.Server.URL, Username: current.Username}
			if claims, err := session.ParseClaims(current.AccessToken); err != nil {
				app.Logger.Debug().Err(err).Msg("Access token is not a JWT")
			} else {
				info.UserID = claims.UserIDString()
				info.ExpiresAt = claims.Expiry()
				info.Expired = !info.ExpiresAt.IsZero() && time.Now().After(info.ExpiresAt)
			}

			return app.print.print(info, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "Server:\t%s (%s)\n", app.Server.Alias, info.Server)
				fmt.Fprintf(w, "User:\t%s\n", info.Username)
				if info.UserID != "" {
					fmt.Fprintf(w, "User ID:\t%s\n", info.UserID)
				}
				if !info.ExpiresAt.IsZero() {
					state := "valid"
					if info.Expired {
						state = "expired"
					}
					fmt.Fprintf(w, "Expires:\t%s (%s)\n", info.ExpiresAt.Local().Format(time.RFC1123), state)
				}
			})
		},
	}
}

// NewRefreshCmd creates the refresh command
func NewRefreshCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			if err := app.Client.RefreshSession(cmd.Context()); err != nil {
				if errors.Is(err, client.ErrUnauthenticated) {
					return fmt.Errorf("no refresh token stored: %w", err)
				}
				return err
			}

			fmt.Fprintln(app.out, "✓ Session refreshed")
			return nil
		},
	}
}

// NewPasswordResetCmd creates the password-reset command group
func NewPasswordResetCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password-reset",
		Short: "Reset a forgotten password",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "request <email>",
		Short: "Send a password reset link to an email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			if err := app.Client.RequestPasswordReset(cmd.Context(), args[0]); err != nil {
				return err
			}

			fmt.Fprintf(app.out, "✓ If %s has an account, a reset link is on its way\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "confirm <uid> <token>",
		Short: "Set a new password using the uid and token from the reset link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd, g)
			if err != nil {
				return err
			}

			password, err := app.prompt.Secret("New password")
			if err != nil {
				return err
			}
			confirm, err := app.prompt.Secret("Confirm new password")
			if err != nil {
				return err
			}

			err = app.Client.ConfirmPasswordReset(cmd.Context(), client.PasswordResetConfirm{
				UID:           args[0],
				Token:         args[1],
				NewPassword:   password,
				ReNewPassword: confirm,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(app.out, "✓ Password updated. Run 'biocom login' to sign in")
			return nil
		},
	})

	return cmd
}

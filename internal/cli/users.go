package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/quiz-ledger/internal/api"
	"github.com/nhle/quiz-ledger/internal/ledger"
	"github.com/nhle/quiz-ledger/internal/model"
)

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		nu   ledger.NewUser
		role string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Add a user to the directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(env *Env) error {
				nu.Role = model.Role(role)
				u, err := env.Ledger.RegisterUser(cmd.Context(), nu)
				switch {
				case errors.Is(err, ledger.ErrInvalidUser):
					return WrapExitError(ExitCommandError, "invalid user", err)
				case err != nil:
					return WrapExitError(ExitFailure, "registering user", err)
				}

				return formatter(rootOpts, cmd).Success(u, func(w io.Writer) {
					fmt.Fprintf(w, "Registered %s <%s> as %s\n", u.Name, u.Email, u.Role)
				})
			})
		},
	}

	cmd.Flags().StringVar(&nu.Name, "name", "", "display name")
	cmd.Flags().StringVar(&nu.Email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", string(model.RoleStudent), "student or instructor")
	cmd.Flags().StringVar(&nu.Password, "password", "", "password (at least 6 characters)")

	return cmd
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	var email, password, role string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the user in the system keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(env *Env) error {
				u, err := env.Ledger.Authenticate(cmd.Context(), email, password, model.Role(role))
				if err != nil {
					return WrapExitError(ExitFailure, "signing in", err)
				}

				sess, err := env.Session()
				if err != nil {
					return err
				}
				if err := sess.SignIn(u); err != nil {
					return WrapExitError(ExitFailure, "storing session", err)
				}

				return formatter(rootOpts, cmd).Success(u, func(w io.Writer) {
					fmt.Fprintf(w, "Signed in as %s <%s>\n", u.Name, u.Email)
				})
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&role, "role", string(model.RoleStudent), "student or instructor")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(env *Env) error {
				sess, err := env.Session()
				if err != nil {
					return err
				}
				if err := sess.SignOut(); err != nil {
					return WrapExitError(ExitFailure, "signing out", err)
				}
				return formatter(rootOpts, cmd).Success(map[string]bool{"signedOut": true}, func(w io.Writer) {
					fmt.Fprintln(w, "Signed out")
				})
			})
		},
	}
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for the signed-in user, or for --user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(env *Env) error {
				u, err := resolveUser(env, rootOpts.User)
				if err != nil {
					return err
				}
				if ttl <= 0 {
					ttl = env.Config.Server.TokenTTL
				}

				token, err := api.GenerateToken(env.Config.Server.JWTSecret, u, ttl)
				if err != nil {
					return WrapExitError(ExitCommandError, "issuing token", err)
				}

				data := map[string]any{"token": token, "expiresIn": ttl.String()}
				return formatter(rootOpts, cmd).Success(data, func(w io.Writer) {
					fmt.Fprintln(w, token)
				})
			})
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to server.token_ttl)")

	return cmd
}

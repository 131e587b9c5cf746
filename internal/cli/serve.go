package cli

import (
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/quiz-ledger/internal/api"
	"github.com/nhle/quiz-ledger/internal/app"
)

// NewTUICommand creates the tui command.
func NewTUICommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(env *Env) error {
				sess, err := env.Session()
				if err != nil {
					return err
				}

				m := app.New(app.Deps{
					Ledger:   env.Ledger,
					Service:  env.Service,
					Session:  sess,
					Interval: env.Config.Poll.Interval,
					Logger:   env.Logger,
				})
				p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
				if _, err := p.Run(); err != nil {
					return WrapExitError(ExitFailure, "running terminal interface", err)
				}
				return nil
			})
		},
	}
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the notification API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(env *Env) error {
				cfg := env.Config.Server
				if addr != "" {
					cfg.Addr = addr
				}

				srv, err := api.NewServer(cfg, env.Ledger, env.Service, env.Logger)
				if err != nil {
					return WrapExitError(ExitCommandError, "configuring server", err)
				}

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				if err := srv.Run(ctx); err != nil {
					return WrapExitError(ExitFailure, "serving api", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")

	return cmd
}

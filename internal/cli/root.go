// Package cli is the quizledger command line.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/nhle/quiz-ledger/internal/model"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	User       string
	Format     string // "json" | "text"

	open func(path string) (*Env, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the quizledger CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(OpenEnv)
}

func newRootCommand(open func(path string) (*Env, error)) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "quizledger",
		Short: "Quiz activity ledger and student notifications",
		Long: `Record quiz submissions, release scores and follow what students see:
their notification feed, unread badge and results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", model.DefaultConfigPath(), "config file")
	cmd.PersistentFlags().StringVar(&opts.User, "user", "", "act for this student email instead of the signed-in user")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewTUICommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewNotificationsCommand(opts))
	cmd.AddCommand(NewUnreadCommand(opts))
	cmd.AddCommand(NewResultsCommand(opts))
	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewReleaseCommand(opts))
	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewDigestCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))

	return cmd
}

// withEnv opens the environment, runs fn and closes it. In JSON mode a
// failure is also written as an error envelope.
func withEnv(opts *RootOptions, cmd *cobra.Command, fn func(*Env) error) error {
	err := runEnv(opts, fn)
	if err != nil && opts.Format == "json" {
		_ = formatter(opts, cmd).Error(err)
	}
	return err
}

func runEnv(opts *RootOptions, fn func(*Env) error) error {
	env, err := opts.open(opts.ConfigPath)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(env)
}

func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nhle/quiz-ledger/internal/ledger"
	"github.com/nhle/quiz-ledger/internal/model"
)

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		sub    ledger.Submission
		reason string
	)

	cmd := &cobra.Command{
		Use:   "submit <quiz-title>",
		Short: "Record a quiz submission",
		Long: `Record a quiz submission for the signed-in student, or for --user.

An auto-submitted quiz carries --reason tab-switch or --reason time-limit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(env *Env) error {
				u, err := resolveUser(env, rootOpts.User)
				if err != nil {
					return err
				}

				sub.StudentEmail = u.Email
				sub.QuizTitle = args[0]
				sub.SubmitReason = model.SubmitReason(reason)
				if sub.SubmitReason != "" {
					sub.AutoSubmitted = true
				}

				rec, err := env.Ledger.Submit(cmd.Context(), sub)
				if errors.Is(err, ledger.ErrInvalidSubmission) {
					return WrapExitError(ExitCommandError, "invalid submission", err)
				}
				if err != nil {
					return WrapExitError(ExitFailure, "recording submission", err)
				}

				return formatter(rootOpts, cmd).Success(rec, func(w io.Writer) {
					fmt.Fprintf(w, "Submitted %s as %s\n", rec.QuizTitle, rec.ID)
				})
			})
		},
	}

	cmd.Flags().IntVar(&sub.TabSwitchViolations, "violations", 0, "tab switches recorded during the quiz")
	cmd.Flags().StringVar(&reason, "reason", "", "auto-submit reason (tab-switch|time-limit)")

	return cmd
}

// NewReleaseCommand creates the release command.
func NewReleaseCommand(rootOpts *RootOptions) *cobra.Command {
	var rel ledger.Release

	cmd := &cobra.Command{
		Use:   "release <record-id>",
		Short: "Release the score of a submission",
		Long: `Release the score of a submission to its student.

Records written without an id are addressed by their positional id
(notif_<n>) together with --student.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(env *Env) error {
				rel.ID = args[0]
				if rel.GradedBy == "" && rootOpts.User == "" {
					if sess, err := env.Session(); err == nil {
						if u, err := sess.Current(); err == nil && u.Role == model.RoleInstructor {
							rel.GradedBy = u.Email
						}
					}
				}

				err := env.Ledger.Release(cmd.Context(), rel)
				switch {
				case errors.Is(err, ledger.ErrInvalidScore):
					return WrapExitError(ExitCommandError, "invalid release", err)
				case err != nil:
					return WrapExitError(ExitFailure, "releasing score", err)
				}

				data := map[string]any{"id": rel.ID, "score": rel.Score, "total": rel.Total}
				return formatter(rootOpts, cmd).Success(data, func(w io.Writer) {
					fmt.Fprintf(w, "Released %s: %d/%d (%d%%)\n",
						rel.ID, rel.Score, rel.Total, model.Percentage(rel.Score, rel.Total))
				})
			})
		},
	}

	cmd.Flags().IntVar(&rel.Score, "score", 0, "points awarded")
	cmd.Flags().IntVar(&rel.Total, "total", 0, "points available")
	cmd.Flags().StringVar(&rel.GradedBy, "graded-by", "", "instructor email (defaults to the signed-in instructor)")
	cmd.Flags().StringVar(&rel.StudentEmail, "student", "", "student email, needed for positional ids")
	_ = cmd.MarkFlagRequired("score")
	_ = cmd.MarkFlagRequired("total")

	return cmd
}

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nhle/quiz-ledger/internal/results"
)

// NewResultsCommand creates the results command.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "results",
		Short: "Show the results of a student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(env *Env) error {
				u, err := resolveUser(env, rootOpts.User)
				if err != nil {
					return err
				}

				report := results.Build(env.Service.Records(cmd.Context(), u.Email))
				return formatter(rootOpts, cmd).Success(report, func(w io.Writer) {
					writeReport(w, u.Email, report)
				})
			})
		},
	}
}

func writeReport(w io.Writer, email string, report results.Report) {
	s := report.Summary
	fmt.Fprintf(w, "Results for %s\n", email)
	fmt.Fprintf(w, "%d quizzes, %d released, %d pending review\n", s.Total, s.Released, s.Pending)

	if len(report.Rows) == 0 {
		fmt.Fprintln(w, "\nNo quiz submissions yet.")
		return
	}
	for _, r := range report.Rows {
		fmt.Fprintf(w, "\n%s\n", r.QuizTitle)
		fmt.Fprintf(w, "  Status:     %s\n", r.Status)
		fmt.Fprintf(w, "  Score:      %s\n", r.Score)
		fmt.Fprintf(w, "  Violations: %s\n", r.ViolationText)
		fmt.Fprintf(w, "  Submitted:  %s\n", r.SubmittedAt)
		if r.Note != "" {
			fmt.Fprintf(w, "  Note:       %s\n", r.Note)
		}
		if r.PendingNote != "" {
			fmt.Fprintf(w, "  %s\n", r.PendingNote)
		}
	}
}

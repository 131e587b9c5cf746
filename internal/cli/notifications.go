package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/quiz-ledger/internal/digest"
	"github.com/nhle/quiz-ledger/internal/model"
	"github.com/nhle/quiz-ledger/internal/notify"
)

// notificationOutput is the JSON form of one feed entry.
type notificationOutput struct {
	model.Notification
	Unread bool `json:"unread"`
}

type feedOutput struct {
	Student       string               `json:"student"`
	Notifications []notificationOutput `json:"notifications"`
	Summary       model.Summary        `json:"summary"`
	Unread        int                  `json:"unread"`
}

func toFeedOutput(email string, feed notify.Feed) feedOutput {
	ns := make([]notificationOutput, 0, len(feed.Notifications))
	for _, n := range feed.Notifications {
		ns = append(ns, notificationOutput{Notification: n, Unread: feed.IsUnread(n)})
	}
	return feedOutput{Student: email, Notifications: ns, Summary: feed.Summary, Unread: feed.Unread}
}

// NewNotificationsCommand creates the notifications command.
func NewNotificationsCommand(rootOpts *RootOptions) *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List the notification feed of a student",
		Long: `List the notification feed of a student, newest first.

With --open the listing counts as a visit to the notifications page:
everything shown is marked read first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(env *Env) error {
				u, err := resolveUser(env, rootOpts.User)
				if err != nil {
					return err
				}

				ctx := cmd.Context()
				feed := env.Service.Notifications(ctx, u.Email)
				if open {
					if feed, err = env.Service.Open(ctx, u.Email); err != nil {
						return WrapExitError(ExitFailure, "opening notifications", err)
					}
				}

				return formatter(rootOpts, cmd).Success(toFeedOutput(u.Email, feed), func(w io.Writer) {
					writeFeed(w, u.Email, feed)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&open, "open", false, "mark everything read, as visiting the page does")

	return cmd
}

func writeFeed(w io.Writer, email string, feed notify.Feed) {
	s := feed.Summary
	fmt.Fprintf(w, "Notifications for %s\n", email)
	fmt.Fprintf(w, "%d total, %d released, %d pending review, %d unread\n",
		s.Total, s.Released, s.Pending, feed.Unread)

	if len(feed.Notifications) == 0 {
		fmt.Fprintln(w, "\nNo notifications yet.")
		return
	}
	for _, n := range feed.Notifications {
		marker := " "
		if feed.IsUnread(n) {
			marker = "*"
		}
		fmt.Fprintf(w, "\n%s %s (%s)\n  %s\n", marker, n.Title, n.RelativeTime, n.Message)
	}
}

// NewUnreadCommand creates the unread command.
func NewUnreadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unread",
		Short: "Print the unread badge count of a student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(env *Env) error {
				u, err := resolveUser(env, rootOpts.User)
				if err != nil {
					return err
				}

				count, err := env.Service.UnreadCount(cmd.Context(), u.Email)
				if err != nil {
					return WrapExitError(ExitFailure, "counting notifications", err)
				}

				data := map[string]any{"unread": count, "badge": notify.BadgeLabel(count)}
				return formatter(rootOpts, cmd).Success(data, func(w io.Writer) {
					fmt.Fprintln(w, count)
				})
			})
		},
	}
}

// NewDigestCommand creates the digest command.
func NewDigestCommand(rootOpts *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Write the notification feed of a student as an email message",
		Long: `Write the notification feed of a student as an RFC 5322 message.
Unread entries are marked [new]. Nothing is sent and nothing is marked read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(env *Env) error {
				u, err := resolveUser(env, rootOpts.User)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if out != "" {
					f, err := os.Create(out)
					if err != nil {
						return WrapExitError(ExitCommandError, "creating digest file", err)
					}
					defer f.Close()
					w = f
				}

				msg := digest.Message{
					From: env.Config.Digest.From,
					To:   u,
					Feed: env.Service.Notifications(cmd.Context(), u.Email),
					Date: env.Ledger.Now(),
				}
				if err := digest.Write(w, msg); err != nil {
					return WrapExitError(ExitFailure, "writing digest", err)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "write to this file instead of stdout")

	return cmd
}

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newInterviewsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "interviews",
		Short: "List your interviews",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			acc, err := a.login(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.logout(acc)

			interviews, err := a.client.UserInterviews(ctx, acc.creds, acc.user.UserID)
			if err != nil {
				return fmt.Errorf("list interviews: %w", err)
			}
			if len(interviews) == 0 {
				cmd.Println("No interviews yet. Upload a resume to generate one.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPOSITION\tTYPE\tLEVEL\tCREATED")
			for _, iv := range interviews {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					iv.InterviewID, iv.Position, iv.InterviewType, iv.DifficultyLevel, iv.CreatedAt)
			}
			return w.Flush()
		},
	}
}

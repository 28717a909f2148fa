package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mockprep/coach-gateway/internal/question"
)

func newFeedbackCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback INTERVIEW_ID",
		Short: "Show the feedback of an attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			attempt, _ := cmd.Flags().GetInt("attempt")

			acc, err := a.login(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.logout(acc)

			attempts, err := a.client.Feedback(ctx, acc.creds, args[0], acc.user.UserID)
			if err != nil {
				return fmt.Errorf("load feedback: %w", err)
			}
			if len(attempts) == 0 {
				cmd.Println("No feedback yet. Finish an attempt first.")
				return nil
			}

			selected := attempts[len(attempts)-1]
			if attempt > 0 {
				found := false
				for _, at := range attempts {
					if at.AttemptNumber == attempt {
						selected, found = at, true
						break
					}
				}
				if !found {
					return fmt.Errorf("attempt %d not found", attempt)
				}
			}

			cmd.Printf("Attempt %d of %d\n\n", selected.AttemptNumber, len(attempts))
			for _, q := range selected.QuestionsFeedback {
				cmd.Printf("%s: %s\n", question.Label(q.QuestionIndex), question.Format(q.QuestionText))
				cmd.Printf("  Your answer (%.0fs): %s\n", q.AnswerDurationSeconds, q.UserAnswerText)
				if len(q.Feedback) > 0 {
					cmd.Printf("  Feedback: %s\n", q.Feedback)
				}
				if q.SampleAnswer != "" {
					cmd.Printf("  Sample answer: %s\n", q.SampleAnswer)
				}
				cmd.Println("---")
			}
			return nil
		},
	}
	cmd.Flags().Int("attempt", 0, "Attempt number (default latest)")
	return cmd
}

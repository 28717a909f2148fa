package service

import (
	"context"
	"fmt"

	"github.com/mockprep/coach-gateway/internal/backend"
	"github.com/mockprep/coach-gateway/internal/model"
	"github.com/mockprep/coach-gateway/internal/question"
)

// FeedbackBackend reads answer reviews from the backend.
type FeedbackBackend interface {
	Feedback(ctx context.Context, creds backend.Credentials, interviewID, userID string) ([]model.AttemptFeedback, error)
}

// FeedbackService serves the per-attempt feedback report.
type FeedbackService struct {
	backend FeedbackBackend
}

func NewFeedbackService(b FeedbackBackend) *FeedbackService {
	return &FeedbackService{backend: b}
}

// Report returns every attempt's feedback with question text ready for display.
func (s *FeedbackService) Report(ctx context.Context, sess Session, interviewID string) (model.FeedbackReport, error) {
	attempts, err := s.backend.Feedback(ctx, sess.Credentials(), interviewID, sess.UserID)
	if err != nil {
		return model.FeedbackReport{}, notFound(err)
	}
	for i := range attempts {
		for j := range attempts[i].QuestionsFeedback {
			q := &attempts[i].QuestionsFeedback[j]
			q.QuestionText = question.Format(q.QuestionText)
		}
	}
	if attempts == nil {
		attempts = []model.AttemptFeedback{}
	}
	return model.FeedbackReport{InterviewID: interviewID, Attempts: attempts}, nil
}

// Attempt picks one attempt out of a report. Zero selects the latest.
func (s *FeedbackService) Attempt(report model.FeedbackReport, number int) (model.AttemptFeedback, error) {
	if len(report.Attempts) == 0 {
		return model.AttemptFeedback{}, fmt.Errorf("%w: no attempts", ErrNotFound)
	}
	if number == 0 {
		return report.Attempts[len(report.Attempts)-1], nil
	}
	for _, a := range report.Attempts {
		if a.AttemptNumber == number {
			return a, nil
		}
	}
	return model.AttemptFeedback{}, fmt.Errorf("%w: attempt %d", ErrNotFound, number)
}

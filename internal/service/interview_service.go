package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mockprep/coach-gateway/internal/backend"
	"github.com/mockprep/coach-gateway/internal/model"
	"github.com/mockprep/coach-gateway/internal/question"
)

// InterviewBackend is the interview part of the backend.
type InterviewBackend interface {
	UploadResume(ctx context.Context, creds backend.Credentials, userID string, req model.UploadResumeRequest, file backend.ResumeFile) (model.UploadResumeResult, error)
	UserInterviews(ctx context.Context, creds backend.Credentials, userID string) ([]model.Interview, error)
	InterviewDetails(ctx context.Context, creds backend.Credentials, interviewID string) (model.InterviewDetails, error)
	Questions(ctx context.Context, creds backend.Credentials, interviewID string) ([]string, error)
	StartSession(ctx context.Context, creds backend.Credentials, interviewID, userID string) (int, error)
}

// InterviewService lists, describes and creates interviews.
type InterviewService struct {
	backend        InterviewBackend
	maxUploadBytes int64
	log            zerolog.Logger
}

func NewInterviewService(b InterviewBackend, maxUploadBytes int64, log zerolog.Logger) *InterviewService {
	return &InterviewService{
		backend:        b,
		maxUploadBytes: maxUploadBytes,
		log:            log.With().Str("component", "interview_service").Logger(),
	}
}

// List returns the user's interviews, newest last as the backend stores them.
func (s *InterviewService) List(ctx context.Context, sess Session) ([]model.Interview, error) {
	interviews, err := s.backend.UserInterviews(ctx, sess.Credentials(), sess.UserID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return []model.Interview{}, nil
		}
		return nil, err
	}
	if interviews == nil {
		interviews = []model.Interview{}
	}
	return interviews, nil
}

func (s *InterviewService) Details(ctx context.Context, sess Session, interviewID string) (model.InterviewDetails, error) {
	details, err := s.backend.InterviewDetails(ctx, sess.Credentials(), interviewID)
	if err != nil {
		return model.InterviewDetails{}, notFound(err)
	}
	return details, nil
}

// Overview fetches the interview record and its questions concurrently and
// prepares the questions for display.
func (s *InterviewService) Overview(ctx context.Context, sess Session, interviewID string) (model.InterviewOverview, error) {
	var (
		details   model.InterviewDetails
		questions []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		details, err = s.backend.InterviewDetails(gctx, sess.Credentials(), interviewID)
		return err
	})
	g.Go(func() error {
		var err error
		questions, err = s.backend.Questions(gctx, sess.Credentials(), interviewID)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.InterviewOverview{}, notFound(err)
	}

	views := make([]model.QuestionView, len(questions))
	for i, q := range questions {
		views[i] = model.QuestionView{Index: i, Text: question.Format(q), HTML: question.HTML(q)}
	}
	return model.InterviewOverview{Interview: details, Questions: views}, nil
}

// Questions returns the interview's raw questions.
func (s *InterviewService) Questions(ctx context.Context, sess Session, interviewID string) ([]string, error) {
	qs, err := s.backend.Questions(ctx, sess.Credentials(), interviewID)
	if err != nil {
		return nil, notFound(err)
	}
	return qs, nil
}

// UploadResume validates the resume and asks the backend to generate an
// interview from it.
func (s *InterviewService) UploadResume(ctx context.Context, sess Session, req model.UploadResumeRequest, up ResumeUpload) (model.UploadResumeResult, error) {
	if err := validateResume(up, s.maxUploadBytes); err != nil {
		return model.UploadResumeResult{}, err
	}
	content := up.Content
	if s.maxUploadBytes > 0 {
		content = io.LimitReader(content, s.maxUploadBytes)
	}

	res, err := s.backend.UploadResume(ctx, sess.Credentials(), sess.UserID, req, backend.ResumeFile{
		Name:    up.Filename,
		Content: content,
	})
	if err != nil {
		return model.UploadResumeResult{}, fmt.Errorf("upload resume: %w", err)
	}

	s.log.Info().
		Str("user_id", sess.UserID).
		Str("interview_id", res.InterviewID).
		Int("questions", len(res.Questions)).
		Msg("Interview generated")
	return res, nil
}

// StartAttempt opens a new attempt on the interview and returns its number.
func (s *InterviewService) StartAttempt(ctx context.Context, sess Session, interviewID string) (model.Attempt, error) {
	n, err := s.backend.StartSession(ctx, sess.Credentials(), interviewID, sess.UserID)
	if err != nil {
		return model.Attempt{}, notFound(err)
	}
	s.log.Info().Str("interview_id", interviewID).Int("attempt", n).Msg("Attempt started")
	return model.Attempt{InterviewID: interviewID, AttemptNumber: n}, nil
}

// notFound maps the backend's 404 to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, backend.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

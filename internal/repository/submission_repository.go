package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mockprep/coach-gateway/internal/model"
)

// ErrNoAttempt is returned when the user has no journaled answers for an interview.
var ErrNoAttempt = errors.New("no journaled attempt")

// Pool is the subset of pgxpool.Pool the repositories use.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SubmissionRepository journals confirmed answer submissions.
type SubmissionRepository struct {
	pool Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Insert records a submission. A repeated submission of the same question in
// the same attempt is ignored. Reports whether a row was written.
func (r *SubmissionRepository) Insert(ctx context.Context, s *model.Submission) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO answer_submissions
		     (user_id, interview_id, attempt_number, question_index, answer_text,
		      transcription_text, duration_seconds, has_audio, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (user_id, interview_id, attempt_number, question_index) DO NOTHING`,
		s.UserID, s.InterviewID, s.AttemptNumber, s.QuestionIndex, s.AnswerText,
		s.TranscriptionText, s.DurationSeconds, s.HasAudio, s.SubmittedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert submission: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// LatestAttempt returns the highest attempt number journaled for the user and interview.
func (r *SubmissionRepository) LatestAttempt(ctx context.Context, userID, interviewID string) (int, error) {
	var attempt int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(attempt_number), 0)
		 FROM answer_submissions
		 WHERE user_id = $1 AND interview_id = $2`,
		userID, interviewID,
	).Scan(&attempt)
	if err != nil {
		return 0, fmt.Errorf("latest attempt: %w", err)
	}
	if attempt == 0 {
		return 0, ErrNoAttempt
	}
	return attempt, nil
}

// ListByAttempt returns the journaled answers of one attempt ordered by question.
func (r *SubmissionRepository) ListByAttempt(ctx context.Context, userID, interviewID string, attempt int) ([]model.Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, interview_id, attempt_number, question_index, answer_text,
		        transcription_text, duration_seconds, has_audio, submitted_at
		 FROM answer_submissions
		 WHERE user_id = $1 AND interview_id = $2 AND attempt_number = $3
		 ORDER BY question_index`,
		userID, interviewID, attempt,
	)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.UserID, &s.InterviewID, &s.AttemptNumber, &s.QuestionIndex,
			&s.AnswerText, &s.TranscriptionText, &s.DurationSeconds, &s.HasAudio, &s.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}

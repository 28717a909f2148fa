package model

import "time"

// Submission is a confirmed answer submission recorded in the local journal.
type Submission struct {
	ID                int64     `json:"id"`
	UserID            string    `json:"user_id"`
	InterviewID       string    `json:"interview_id"`
	AttemptNumber     int       `json:"attempt_number"`
	QuestionIndex     int       `json:"question_index"`
	AnswerText        string    `json:"answer_text"`
	TranscriptionText string    `json:"transcription_text,omitempty"`
	DurationSeconds   int       `json:"duration_seconds"`
	HasAudio          bool      `json:"has_audio"`
	SubmittedAt       time.Time `json:"submitted_at"`
}

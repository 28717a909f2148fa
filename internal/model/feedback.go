package model

import "encoding/json"

// QuestionFeedback is the backend's review of one submitted answer.
type QuestionFeedback struct {
	QuestionIndex         int             `json:"question_index"`
	QuestionText          string          `json:"question_text"`
	UserAnswerText        string          `json:"user_answer_text"`
	Timestamp             string          `json:"timestamp"`
	AnswerDurationSeconds float64         `json:"answer_duration_seconds"`
	OverallComments       json.RawMessage `json:"overall_comments,omitempty"`
	SampleAnswer          string          `json:"sample_answer"`
	Feedback              json.RawMessage `json:"feedback,omitempty"`
}

// AttemptFeedback groups the feedback of one attempt.
type AttemptFeedback struct {
	AttemptNumber     int                `json:"attempt_number"`
	QuestionsFeedback []QuestionFeedback `json:"questions_feedback"`
}

// FeedbackReport is the feedback page for one interview.
type FeedbackReport struct {
	InterviewID string            `json:"interview_id"`
	Attempts    []AttemptFeedback `json:"attempts"`
}

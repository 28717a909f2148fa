package model

// SelectQuestionRequest moves the flow to another question.
type SelectQuestionRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

// TypedAnswerRequest replaces the typed text of the active question.
type TypedAnswerRequest struct {
	Text string `json:"text" binding:"max=20000"`
}

// ResetAnswerRequest clears a question's answer. Without an index the active
// question is reset.
type ResetAnswerRequest struct {
	Index *int `json:"index" binding:"omitempty,min=0"`
}

// AttemptQuery selects an attempt; zero or absent means the latest one.
type AttemptQuery struct {
	Attempt int `form:"attempt" binding:"omitempty,min=1"`
}

// ConceptQuery filters the concept catalog.
type ConceptQuery struct {
	Q string `form:"q" binding:"max=100"`
}

// SubmissionHistory is one attempt's journaled submissions.
type SubmissionHistory struct {
	InterviewID   string       `json:"interview_id"`
	AttemptNumber int          `json:"attempt_number"`
	Submissions   []Submission `json:"submissions"`
}

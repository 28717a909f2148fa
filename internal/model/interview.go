package model

// InterviewType enumerates the kinds of mock interview the backend generates.
type InterviewType string

const (
	InterviewTypeTechnical  InterviewType = "technical"
	InterviewTypeBehavioral InterviewType = "behavioral"
)

// DifficultyLevel enumerates question difficulty.
type DifficultyLevel string

const (
	DifficultyBasic        DifficultyLevel = "basic"
	DifficultyIntermediate DifficultyLevel = "intermediate"
	DifficultyAdvanced     DifficultyLevel = "advanced"
)

// Interview is one row of the user's dashboard.
type Interview struct {
	InterviewID     string          `json:"interview_id"`
	Position        string          `json:"position"`
	InterviewType   InterviewType   `json:"interview_type"`
	DifficultyLevel DifficultyLevel `json:"difficulty_level"`
	CreatedAt       string          `json:"created_at"`
}

// InterviewDetails is the full interview record.
type InterviewDetails struct {
	InterviewID     string          `json:"interview_id"`
	UserID          string          `json:"user_id"`
	Position        string          `json:"position"`
	JobDescription  string          `json:"job_description"`
	InterviewType   InterviewType   `json:"interview_type"`
	DifficultyLevel DifficultyLevel `json:"difficulty_level"`
	Questions       []string        `json:"questions"`
	SampleAnswers   []string        `json:"sample_answers"`
	CreatedAt       string          `json:"created_at"`
}

// QuestionView is a question prepared for display.
type QuestionView struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	HTML  string `json:"html"`
}

// InterviewOverview is the interview session page: details plus display-ready questions.
type InterviewOverview struct {
	Interview InterviewDetails `json:"interview"`
	Questions []QuestionView   `json:"questions"`
}

// UploadResumeRequest carries the form fields sent alongside the resume file.
type UploadResumeRequest struct {
	Position        string          `form:"position" binding:"required,max=200"`
	JobDescription  string          `form:"job_description" binding:"required,max=10000"`
	InterviewType   InterviewType   `form:"interview_type" binding:"required,oneof=technical behavioral"`
	DifficultyLevel DifficultyLevel `form:"difficulty_level" binding:"required,oneof=basic intermediate advanced"`
}

// UploadResumeResult is the backend's answer to a resume upload.
type UploadResumeResult struct {
	Message       string   `json:"message"`
	InterviewID   string   `json:"interview_id"`
	Questions     []string `json:"questions"`
	SampleAnswers []string `json:"sample_answers"`
}

// Attempt identifies one pass through an interview's questions.
type Attempt struct {
	InterviewID   string `json:"interview_id"`
	AttemptNumber int    `json:"attempt_number"`
}

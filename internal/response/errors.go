package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrAccountExists      ErrCode = "ACCOUNT_EXISTS"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Answer flow ───────────────────────────────────────────────────
	ErrFlowNotStarted     ErrCode = "FLOW_NOT_STARTED"
	ErrNoQuestions        ErrCode = "NO_QUESTIONS"
	ErrQuestionLocked     ErrCode = "QUESTION_LOCKED"
	ErrQuestionUnanswered ErrCode = "QUESTION_UNANSWERED"
	ErrAlreadyAnswered    ErrCode = "QUESTION_ALREADY_ANSWERED"
	ErrRecordingActive    ErrCode = "RECORDING_ACTIVE"
	ErrNotRecording       ErrCode = "NOT_RECORDING"
	ErrMicrophoneDenied   ErrCode = "MICROPHONE_DENIED"
	ErrRecordingFailed    ErrCode = "RECORDING_FAILED"
	ErrNotLastQuestion    ErrCode = "NOT_LAST_QUESTION"
	ErrNoNextQuestion     ErrCode = "NO_NEXT_QUESTION"
	ErrQuestionOutOfRange ErrCode = "QUESTION_OUT_OF_RANGE"
	ErrSubmitInProgress   ErrCode = "SUBMIT_IN_PROGRESS"
	ErrSubmitFailed       ErrCode = "SUBMIT_FAILED"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Upstream ──────────────────────────────────────────────────────
	ErrBackendUnavailable ErrCode = "BACKEND_UNAVAILABLE"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Incorrect email or password."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrAccountExists:
		return "An account with this email or username already exists."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Answer flow ───────────────────────────────────────────────────
	case ErrFlowNotStarted:
		return "No interview attempt is in progress. Start the interview first."
	case ErrNoQuestions:
		return "This interview has no questions."
	case ErrQuestionLocked:
		return "This question has already been submitted and can no longer be changed."
	case ErrQuestionUnanswered:
		return "Please answer the question before continuing."
	case ErrAlreadyAnswered:
		return "This question already has an answer. Reset it to record again."
	case ErrRecordingActive:
		return "A recording is in progress. Stop it first."
	case ErrNotRecording:
		return "No recording is in progress."
	case ErrMicrophoneDenied:
		return "Microphone access was denied."
	case ErrRecordingFailed:
		return "The recording could not be kept. Please record again."
	case ErrNotLastQuestion:
		return "The interview can only be finished from the last question."
	case ErrNoNextQuestion:
		return "This is the last question. Finish the interview instead."
	case ErrQuestionOutOfRange:
		return "There is no question with that number."
	case ErrSubmitInProgress:
		return "This answer is already being submitted."
	case ErrSubmitFailed:
		return "Failed to submit the answer. Please try again."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "Unsupported file type."
	case ErrFileTooLarge:
		return "File size exceeds the limit."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Upstream ──────────────────────────────────────────────────────
	case ErrBackendUnavailable:
		return "The interview service is unavailable. Please try again."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}

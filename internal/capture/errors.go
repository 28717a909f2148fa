package capture

import (
	"errors"
	"fmt"
)

// Flow errors. Rejected operations leave the flow unchanged.
var (
	ErrNoQuestions      = errors.New("interview has no questions")
	ErrOutOfRange       = errors.New("question index out of range")
	ErrLocked           = errors.New("question is locked")
	ErrRecordingActive  = errors.New("a recording is active")
	ErrNotRecording     = errors.New("no recording is active")
	ErrAlreadyAnswered  = errors.New("question is already answered")
	ErrNotAnswered      = errors.New("question is not answered")
	ErrNoNextQuestion   = errors.New("already on the last question")
	ErrNotLastQuestion  = errors.New("finish is only allowed on the last question")
	ErrSubmitInProgress = errors.New("answer submission in progress")
	ErrPermissionDenied = errors.New("audio capture unavailable")
	ErrRecordingFailed  = errors.New("recording failed")
	ErrUnauthenticated  = errors.New("user is not authenticated")
	ErrClosed           = errors.New("flow is closed")
)

// SubmitError reports a submission the feedback service did not confirm.
// The question stays unlocked and the step can be retried.
type SubmitError struct {
	Index int
	Err   error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit answer %d: %v", e.Index, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

package capture

import (
	"context"
	"time"
)

// Capture is an acquired audio input. Release must always be called, and it
// also stops a capture that is still running.
type Capture interface {
	Start() error
	Stop() (Clip, error)
	Release() error
}

// Device hands out captures. Acquire fails when the microphone is not
// available to the user.
type Device interface {
	Acquire(ctx context.Context) (Capture, error)
}

// Transcriber turns a clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip Clip) (string, error)
}

// TranscriberFunc adapts a function to Transcriber.
type TranscriberFunc func(ctx context.Context, clip Clip) (string, error)

func (f TranscriberFunc) Transcribe(ctx context.Context, clip Clip) (string, error) {
	return f(ctx, clip)
}

// Submission is the package sent to the feedback service for one question.
type Submission struct {
	InterviewID     string
	AttemptNumber   int
	QuestionIndex   int
	AnswerText      string
	DurationSeconds int
	UserID          string
	// Audio is the WAV clip, nil when the answer was typed only.
	Audio []byte
	// Transcript is set only when the transcript is non-blank.
	Transcript string
}

// Submitter delivers a submission. A nil error means the backend accepted it.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, sub Submission) error

func (f SubmitterFunc) Submit(ctx context.Context, sub Submission) error {
	return f(ctx, sub)
}

// Session identifies the user on whose behalf answers are submitted.
type Session struct {
	UserID   string
	Username string
}

// SessionResolver returns the session the flow was opened with, failing once
// it is no longer valid.
type SessionResolver interface {
	Resolve(ctx context.Context) (Session, error)
}

// SessionFunc adapts a function to SessionResolver.
type SessionFunc func(ctx context.Context) (Session, error)

func (f SessionFunc) Resolve(ctx context.Context) (Session, error) {
	return f(ctx)
}

// Ticker delivers countdown ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	t *time.Ticker
}

func newRealTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockprep/coach-gateway/internal/audio"
	"github.com/mockprep/coach-gateway/internal/capture"
)

type recordedSubmissions struct {
	mu   sync.Mutex
	subs []capture.Submission
	err  error
}

func (r *recordedSubmissions) Submit(ctx context.Context, sub capture.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.subs = append(r.subs, sub)
	return nil
}

func (r *recordedSubmissions) all() []capture.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]capture.Submission(nil), r.subs...)
}

func writeWAV(t *testing.T, seconds int) string {
	t.Helper()
	const rate = 8000
	data, err := audio.EncodeWAV(make([]int, rate*seconds), rate)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "answer.wav")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func newTestSession(t *testing.T, input string, subs *recordedSubmissions, questions ...string) (*answerSession, *bytes.Buffer) {
	t.Helper()

	device := audio.NewFileDevice(1 << 20)
	events := make(chan capture.Event, 64)
	flow, err := capture.New(capture.Options{
		InterviewID:   "iv-1",
		AttemptNumber: 1,
		Questions:     questions,
		Device:        device,
		Transcriber: capture.TranscriberFunc(func(ctx context.Context, clip capture.Clip) (string, error) {
			return "spoken answer", nil
		}),
		Submitter: subs,
		Sessions: capture.SessionFunc(func(ctx context.Context) (capture.Session, error) {
			return capture.Session{UserID: "u1"}, nil
		}),
		OnEvent: forwardEvent(events),
	})
	require.NoError(t, err)
	t.Cleanup(flow.Close)

	out := &bytes.Buffer{}
	return &answerSession{
		flow:   flow,
		device: device,
		events: events,
		in:     bufio.NewScanner(strings.NewReader(input)),
		out:    out,
		log:    zerolog.Nop(),
		wait:   2 * time.Second,
	}, out
}

func TestAnswerSession_TypedThenRecorded(t *testing.T) {
	subs := &recordedSubmissions{}
	wav := writeWAV(t, 2)
	input := strings.Join([]string{
		"I build services in Go.",
		":next",
		":rec " + wav,
		":finish",
	}, "\n") + "\n"

	s, out := newTestSession(t, input, subs, "Q1: Tell me about yourself.", "Q2: Describe a **hard** bug.")
	require.NoError(t, s.run(context.Background()))

	got := subs.all()
	require.Len(t, got, 2)
	assert.Equal(t, "I build services in Go.", got[0].AnswerText)
	assert.Empty(t, got[0].Audio)
	assert.Equal(t, "spoken answer", got[1].AnswerText)
	assert.Equal(t, "spoken answer", got[1].Transcript)
	assert.Equal(t, 2, got[1].DurationSeconds)
	assert.NotEmpty(t, got[1].Audio)

	text := out.String()
	assert.Contains(t, text, "Q1 of 2: Tell me about yourself.")
	assert.Contains(t, text, "Q2 of 2: Describe a hard bug.")
	assert.Contains(t, text, "Transcript: spoken answer")
	assert.Contains(t, text, "Interview finished.")
}

func TestAnswerSession_Hints(t *testing.T) {
	subs := &recordedSubmissions{}
	input := strings.Join([]string{
		":next",
		":finish",
		":goto 7",
		":bogus",
		":quit",
	}, "\n") + "\n"

	s, out := newTestSession(t, input, subs, "Q1: One?", "Q2: Two?")
	require.NoError(t, s.run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "answer the question before moving on")
	assert.Contains(t, text, ":finish is only available on the last question")
	assert.Contains(t, text, "no such question")
	assert.Contains(t, text, "unknown command :bogus")
	assert.Contains(t, text, "Leaving with unsubmitted answers.")
	assert.Empty(t, subs.all())
}

func TestAnswerSession_SubmitFailureKeepsQuestion(t *testing.T) {
	subs := &recordedSubmissions{err: errors.New("feedback service down")}
	input := "My answer\n:next\n"

	s, out := newTestSession(t, input, subs, "Q1: One?", "Q2: Two?")
	require.NoError(t, s.run(context.Background()))

	assert.Contains(t, out.String(), "feedback service down")
	assert.Equal(t, 0, s.flow.Current())
	assert.False(t, s.flow.IsLocked(0))
}

func TestAnswerSession_RejectsInvalidRecording(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not.wav")
	require.NoError(t, os.WriteFile(path, []byte("not audio"), 0o600))

	s, out := newTestSession(t, ":rec "+path+"\n", &recordedSubmissions{}, "Q1: One?")
	require.NoError(t, s.run(context.Background()))

	assert.Contains(t, out.String(), "the file is not a PCM WAV recording")
	assert.False(t, s.flow.IsAnswered(0))
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mockprep/coach-gateway/internal/audio"
	"github.com/mockprep/coach-gateway/internal/backend"
	"github.com/mockprep/coach-gateway/internal/capture"
	"github.com/mockprep/coach-gateway/internal/question"
)

const answerHelp = `Type your answer and press enter. Commands:
  :rec FILE.wav   use a recorded clip as the answer (transcribed remotely)
  :reset          clear the current answer
  :next           submit and go to the next question
  :finish         submit the last answer and finish
  :goto N         jump to question N
  :show           show the current question again
  :quit           leave (unsubmitted answers are lost)`

// transcriptWait bounds how long :rec waits for the transcript.
const transcriptWait = 45 * time.Second

func newAnswerCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "answer INTERVIEW_ID",
		Short: "Start a new attempt and answer its questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			interviewID := args[0]

			acc, err := a.login(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.logout(acc)

			questions, err := a.client.Questions(ctx, acc.creds, interviewID)
			if err != nil {
				return fmt.Errorf("load questions: %w", err)
			}
			attempt, err := a.client.StartSession(ctx, acc.creds, interviewID, acc.user.UserID)
			if err != nil {
				return fmt.Errorf("start attempt: %w", err)
			}

			device := audio.NewFileDevice(int(a.cfg.MaxAudioBytes))
			events := make(chan capture.Event, 64)
			flow, err := capture.New(capture.Options{
				InterviewID:   interviewID,
				AttemptNumber: attempt,
				Questions:     questions,
				Device:        device,
				Transcriber: capture.TranscriberFunc(func(ctx context.Context, clip capture.Clip) (string, error) {
					return a.client.Transcribe(ctx, acc.creds, clip.Data)
				}),
				Submitter: capture.SubmitterFunc(func(ctx context.Context, sub capture.Submission) error {
					return a.client.AnalyzeFeedback(ctx, acc.creds, backend.AnalyzeRequest{
						InterviewID:     sub.InterviewID,
						QuestionIndex:   sub.QuestionIndex,
						AnswerText:      sub.AnswerText,
						UserID:          sub.UserID,
						DurationSeconds: sub.DurationSeconds,
						Audio:           sub.Audio,
						Transcript:      sub.Transcript,
					})
				}),
				Sessions: capture.SessionFunc(func(ctx context.Context) (capture.Session, error) {
					return capture.Session{UserID: acc.user.UserID, Username: acc.user.Username}, nil
				}),
				Ceiling:           a.cfg.RecordingCeiling,
				TranscribeTimeout: a.cfg.TranscribeTimeout,
				SubmitTimeout:     a.cfg.SubmitTimeout,
				OnEvent:           forwardEvent(events),
				Log:               a.log,
			})
			if err != nil {
				return err
			}
			defer flow.Close()

			cmd.Printf("Attempt %d started, %d questions.\n%s\n\n", attempt, len(questions), answerHelp)
			s := &answerSession{
				flow:   flow,
				device: device,
				events: events,
				in:     bufio.NewScanner(a.in),
				out:    cmd.OutOrStdout(),
				log:    a.log,
				wait:   transcriptWait,
			}
			return s.run(ctx)
		},
	}
}

// forwardEvent hands events to the terminal loop without ever blocking the flow.
func forwardEvent(ch chan<- capture.Event) func(capture.Event) {
	return func(e capture.Event) {
		select {
		case ch <- e:
		default:
		}
	}
}

// fileDevice is the part of audio.FileDevice the loop uses.
type fileDevice interface {
	Use(path string)
}

// answerSession is the line-oriented loop of the answer command.
type answerSession struct {
	flow   *capture.Flow
	device fileDevice
	events <-chan capture.Event
	in     *bufio.Scanner
	out    io.Writer
	log    zerolog.Logger
	wait   time.Duration
}

func (s *answerSession) run(ctx context.Context) error {
	s.show()
	for {
		fmt.Fprint(s.out, "> ")
		if !s.in.Scan() {
			if err := s.in.Err(); err != nil {
				return err
			}
			return s.leave()
		}
		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}

		done, err := s.handle(ctx, line)
		if err != nil {
			fmt.Fprintf(s.out, "! %s\n", describe(err))
		}
		if done {
			return nil
		}
	}
}

// handle runs one input line. It reports true when the loop should end.
func (s *answerSession) handle(ctx context.Context, line string) (bool, error) {
	if !strings.HasPrefix(line, ":") {
		if err := s.flow.UpdateTyped(line); err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, "Answer saved.")
		return false, nil
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch command {
	case ":rec":
		if arg == "" {
			return false, errors.New("usage: :rec FILE.wav")
		}
		return false, s.record(ctx, arg)
	case ":reset":
		if err := s.flow.ResetAnswer(s.flow.Current()); err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, "Answer cleared.")
	case ":next":
		if err := s.flow.Advance(ctx); err != nil {
			return false, err
		}
		s.show()
	case ":finish":
		if err := s.flow.Finish(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, "Interview finished. Run `coachctl feedback` to see the review.")
		return true, nil
	case ":goto":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return false, errors.New("usage: :goto N")
		}
		if err := s.flow.SelectQuestion(n - 1); err != nil {
			return false, err
		}
		s.show()
	case ":show":
		s.show()
	case ":quit":
		return true, s.leave()
	case ":help":
		fmt.Fprintln(s.out, answerHelp)
	default:
		return false, fmt.Errorf("unknown command %s (try :help)", command)
	}
	return false, nil
}

// record feeds a WAV file through the flow as a recording and waits for its
// transcript.
func (s *answerSession) record(ctx context.Context, path string) error {
	s.drainEvents()
	i := s.flow.Current()
	s.device.Use(path)
	if err := s.flow.StartRecording(ctx); err != nil {
		return err
	}
	if err := s.flow.StopRecording(); err != nil {
		return err
	}

	a, err := s.flow.Answer(i)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Recorded %ds, transcribing...\n", a.DurationSeconds())

	timeout := time.After(s.wait)
	for {
		select {
		case e := <-s.events:
			if e.Index != i {
				continue
			}
			switch e.Kind {
			case capture.EventTranscribed:
				fmt.Fprintf(s.out, "Transcript: %s\n", e.Text)
				return nil
			case capture.EventTranscriptionFailed:
				return fmt.Errorf("transcription failed: %w", e.Err)
			case capture.EventRecordingFailed:
				return fmt.Errorf("recording failed: %w", e.Err)
			}
		case <-timeout:
			return errors.New("no transcript yet; type the answer or try again")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// drainEvents drops events nobody waited for, so a transcript is never
// matched to an older recording.
func (s *answerSession) drainEvents() {
	for {
		select {
		case <-s.events:
		default:
			return
		}
	}
}

func (s *answerSession) show() {
	st := s.flow.State()
	q := st.Questions[st.Current]
	fmt.Fprintf(s.out, "\n%s of %d: %s\n", question.Label(st.Current), st.Total, q.Prompt)
	switch {
	case q.Locked:
		fmt.Fprintf(s.out, "  (submitted) %s\n", answerText(q))
	case q.Answered:
		fmt.Fprintf(s.out, "  Current answer: %s\n", answerText(q))
	}
}

func (s *answerSession) leave() error {
	if s.flow.HasUnsavedProgress() && !s.flow.Completed() {
		fmt.Fprintln(s.out, "Leaving with unsubmitted answers.")
	}
	return nil
}

func answerText(q capture.QuestionState) string {
	if strings.TrimSpace(q.Typed) != "" {
		return q.Typed
	}
	return q.Transcribed
}

// describe turns flow errors into terminal hints.
func describe(err error) string {
	switch {
	case errors.Is(err, capture.ErrNotAnswered):
		return "answer the question before moving on"
	case errors.Is(err, capture.ErrNoNextQuestion):
		return "this is the last question, use :finish"
	case errors.Is(err, capture.ErrNotLastQuestion):
		return ":finish is only available on the last question"
	case errors.Is(err, capture.ErrLocked):
		return "this answer was already submitted"
	case errors.Is(err, capture.ErrAlreadyAnswered):
		return "this question already has an answer, :reset it first"
	case errors.Is(err, capture.ErrOutOfRange):
		return "no such question"
	case errors.Is(err, audio.ErrInvalidWAV):
		return "the file is not a PCM WAV recording"
	}
	var submitErr *capture.SubmitError
	if errors.As(err, &submitErr) {
		if d := backend.Detail(err); d != "" {
			return "submission failed: " + d
		}
	}
	return err.Error()
}

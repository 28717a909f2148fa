// Package capture implements the answer capture flow of a mock interview:
// one question at a time the user types or records an answer, recordings are
// transcribed remotely, and each answer is submitted and locked when the user
// moves past it.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultCeiling           = 120 * time.Second
	DefaultTranscribeTimeout = 30 * time.Second
	DefaultSubmitTimeout     = 60 * time.Second
)

// Options configures a Flow. Questions, Device, Transcriber, Submitter and
// Sessions are required.
type Options struct {
	InterviewID   string
	AttemptNumber int
	Questions     []string

	Device      Device
	Transcriber Transcriber
	Submitter   Submitter
	Sessions    SessionResolver

	Ceiling           time.Duration
	TranscribeTimeout time.Duration
	SubmitTimeout     time.Duration

	// NewTicker builds the one second countdown ticker. Defaults to time.Ticker.
	NewTicker func(d time.Duration) Ticker
	// OnEvent is called outside the flow's lock after every state change.
	OnEvent func(Event)
	Log     zerolog.Logger
}

type recording struct {
	index   int
	capture Capture
	ticker  Ticker
	done    chan struct{}
}

type job struct {
	cancel context.CancelFunc
}

// outbound is an answer claimed for submission.
type outbound struct {
	index  int
	answer Answer
	ctx    context.Context
	cancel context.CancelFunc
}

// Flow is the answer capture state for one interview attempt. It is safe for
// concurrent use; the countdown and transcriptions run on their own goroutines.
type Flow struct {
	interviewID string
	attempt     int
	questions   []string

	device      Device
	transcriber Transcriber
	submitter   Submitter
	sessions    SessionResolver

	ceilingSeconds    int
	transcribeTimeout time.Duration
	submitTimeout     time.Duration
	newTicker         func(d time.Duration) Ticker
	onEvent           func(Event)
	log               zerolog.Logger

	mu        sync.Mutex
	slots     []*slot
	current   int
	remaining int
	rec       *recording
	jobs      map[int]*job
	submits   map[int]context.CancelFunc
	completed bool
	closed    bool
	pending   []Event

	life   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a flow positioned on the first question with every answer empty.
func New(opts Options) (*Flow, error) {
	if len(opts.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	if opts.Device == nil || opts.Transcriber == nil || opts.Submitter == nil || opts.Sessions == nil {
		return nil, errors.New("capture: device, transcriber, submitter and sessions are required")
	}

	ceiling := opts.Ceiling
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	if opts.TranscribeTimeout <= 0 {
		opts.TranscribeTimeout = DefaultTranscribeTimeout
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = DefaultSubmitTimeout
	}
	if opts.NewTicker == nil {
		opts.NewTicker = newRealTicker
	}
	if opts.OnEvent == nil {
		opts.OnEvent = func(Event) {}
	}

	questions := make([]string, len(opts.Questions))
	copy(questions, opts.Questions)

	slots := make([]*slot, len(questions))
	for i := range slots {
		slots[i] = newSlot(i)
	}

	life, cancel := context.WithCancel(context.Background())

	return &Flow{
		interviewID:       opts.InterviewID,
		attempt:           opts.AttemptNumber,
		questions:         questions,
		device:            opts.Device,
		transcriber:       opts.Transcriber,
		submitter:         opts.Submitter,
		sessions:          opts.Sessions,
		ceilingSeconds:    int(ceiling / time.Second),
		transcribeTimeout: opts.TranscribeTimeout,
		submitTimeout:     opts.SubmitTimeout,
		newTicker:         opts.NewTicker,
		onEvent:           opts.OnEvent,
		log: opts.Log.With().
			Str("interview_id", opts.InterviewID).
			Int("attempt", opts.AttemptNumber).
			Logger(),
		slots:     slots,
		remaining: int(ceiling / time.Second),
		jobs:      make(map[int]*job),
		submits:   make(map[int]context.CancelFunc),
		life:      life,
		cancel:    cancel,
	}, nil
}

// InterviewID returns the interview this flow answers.
func (f *Flow) InterviewID() string { return f.interviewID }

// AttemptNumber returns the backend attempt the answers belong to.
func (f *Flow) AttemptNumber() int { return f.attempt }

// Restore marks previously submitted answers as locked and moves to the first
// question still open. Only valid before any interaction.
func (f *Flow) Restore(locked map[int]Answer) error {
	f.mu.Lock()
	defer f.unlock()

	for i := range locked {
		if i < 0 || i >= len(f.slots) {
			return fmt.Errorf("%w: %d", ErrOutOfRange, i)
		}
	}
	for i, a := range locked {
		f.slots[i].restoreLocked(a)
	}

	f.current = len(f.slots) - 1
	for i, s := range f.slots {
		if !s.locked() {
			f.current = i
			break
		}
	}
	f.remaining = f.ceilingSeconds
	return nil
}

// SelectQuestion makes i the active question. A recording in progress is
// abandoned and the countdown display returns to the ceiling.
func (f *Flow) SelectQuestion(i int) error {
	f.mu.Lock()
	defer f.unlock()

	if f.closed {
		return ErrClosed
	}
	if i < 0 || i >= len(f.slots) {
		return fmt.Errorf("%w: %d", ErrOutOfRange, i)
	}
	if i == f.current {
		return nil
	}
	f.moveLocked(i)
	return nil
}

// UpdateTyped replaces the typed text of the active question.
func (f *Flow) UpdateTyped(text string) error {
	f.mu.Lock()
	defer f.unlock()

	if f.closed {
		return ErrClosed
	}
	if f.rec != nil {
		return ErrRecordingActive
	}
	i := f.current
	if err := f.slots[i].mutate(func(a *Answer) { a.Typed = text }); err != nil {
		return err
	}
	f.emit(Event{Kind: EventAnswerUpdated, Index: i})
	return nil
}

// StartRecording acquires the capture device and starts recording an answer
// for the active question. It is rejected while another recording runs and
// when the question is already answered or locked.
func (f *Flow) StartRecording(ctx context.Context) error {
	f.mu.Lock()
	defer f.unlock()

	if f.closed {
		return ErrClosed
	}
	if f.rec != nil {
		return ErrRecordingActive
	}
	i := f.current
	s := f.slots[i]
	if err := s.writable(); err != nil {
		return err
	}
	if s.answer.IsAnswered() {
		return ErrAlreadyAnswered
	}

	c, err := f.device.Acquire(ctx)
	if err != nil {
		return deviceError(err)
	}
	if err := c.Start(); err != nil {
		f.release(c)
		return deviceError(err)
	}
	if err := s.startRecording(); err != nil {
		f.release(c)
		return err
	}

	// A new take replaces the previous clip, so its transcript is moot.
	f.cancelJobLocked(i)

	rec := &recording{
		index:   i,
		capture: c,
		ticker:  f.newTicker(time.Second),
		done:    make(chan struct{}),
	}
	f.rec = rec
	f.remaining = f.ceilingSeconds

	f.wg.Add(1)
	go f.runCountdown(rec)

	f.log.Debug().Int("question", i).Msg("Recording started")
	f.emit(Event{Kind: EventRecordingStarted, Index: i, Remaining: f.remaining})
	return nil
}

// StopRecording ends the active recording, keeps the clip and sends it for
// transcription.
func (f *Flow) StopRecording() error {
	f.mu.Lock()
	defer f.unlock()

	if f.rec == nil {
		return ErrNotRecording
	}
	return f.finishRecordingLocked(false)
}

// Tick advances the countdown by one second. The flow's ticker calls it once
// per second while recording; reaching zero stops the recording exactly as
// StopRecording would.
func (f *Flow) Tick() error {
	f.mu.Lock()
	defer f.unlock()

	if f.rec == nil {
		return ErrNotRecording
	}
	f.tickLocked()
	return nil
}

// ResetAnswer clears the typed text, transcript and audio of question i and
// restores the countdown. Rejected while recording or once i is locked.
func (f *Flow) ResetAnswer(i int) error {
	f.mu.Lock()
	defer f.unlock()

	if f.closed {
		return ErrClosed
	}
	if i < 0 || i >= len(f.slots) {
		return fmt.Errorf("%w: %d", ErrOutOfRange, i)
	}
	if f.rec != nil {
		return ErrRecordingActive
	}
	if err := f.slots[i].mutate(func(a *Answer) { *a = Answer{} }); err != nil {
		return err
	}
	f.cancelJobLocked(i)
	if i == f.current {
		f.remaining = f.ceilingSeconds
	}
	f.emit(Event{Kind: EventAnswerReset, Index: i, Remaining: f.ceilingSeconds})
	return nil
}

// Advance submits and locks the active question unless it is already locked,
// then moves to the next one. A failed submission leaves the question
// unlocked and the flow where it was.
func (f *Flow) Advance(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.unlock()
		return ErrClosed
	}
	i := f.current
	if i >= len(f.slots)-1 {
		f.unlock()
		return ErrNoNextQuestion
	}
	if f.slots[i].locked() {
		f.moveLocked(i + 1)
		f.unlock()
		return nil
	}
	out, err := f.claimLocked(ctx, i)
	f.unlock()
	if err != nil {
		return err
	}

	if err := f.deliver(out); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.unlock()
	if f.current == i && !f.closed {
		f.moveLocked(i + 1)
	}
	return nil
}

// Finish submits the last question if needed and marks the flow completed.
// Calling it again after success does not resubmit.
func (f *Flow) Finish(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.unlock()
		return ErrClosed
	}
	i := f.current
	if i != len(f.slots)-1 {
		f.unlock()
		return ErrNotLastQuestion
	}
	if f.slots[i].locked() {
		f.completeLocked()
		f.unlock()
		return nil
	}
	out, err := f.claimLocked(ctx, i)
	f.unlock()
	if err != nil {
		return err
	}

	if err := f.deliver(out); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.unlock()
	f.completeLocked()
	return nil
}

// AbandonRecording drops the recording in progress, if there is one, and
// releases the capture device. It reports whether a recording was dropped.
func (f *Flow) AbandonRecording() bool {
	f.mu.Lock()
	defer f.unlock()

	if f.rec == nil {
		return false
	}
	f.abandonLocked()
	f.remaining = f.ceilingSeconds
	return true
}

// Close abandons any recording and cancels transcriptions and submissions
// still in flight. Close is idempotent.
func (f *Flow) Close() {
	f.mu.Lock()
	if f.closed {
		f.unlock()
		return
	}
	f.closed = true
	if f.rec != nil {
		f.abandonLocked()
	}
	for i := range f.jobs {
		f.cancelJobLocked(i)
	}
	for _, cancel := range f.submits {
		cancel()
	}
	f.cancel()
	f.unlock()

	f.wg.Wait()
}

// ────────────────────────────────────────────────────────────────────────────
// Submission
// ────────────────────────────────────────────────────────────────────────────

// claimLocked marks the unlocked question i as out for submission and copies
// its answer. The caller holds f.mu from reading f.current until here.
func (f *Flow) claimLocked(ctx context.Context, i int) (*outbound, error) {
	s := f.slots[i]
	if f.rec != nil {
		return nil, ErrRecordingActive
	}
	if s.pending {
		return nil, ErrSubmitInProgress
	}
	if !s.answer.IsAnswered() {
		return nil, ErrNotAnswered
	}

	ctx, cancel := context.WithTimeout(ctx, f.submitTimeout)
	s.pending = true
	f.submits[i] = cancel
	f.emit(Event{Kind: EventSubmitting, Index: i})
	return &outbound{index: i, answer: s.view(), ctx: ctx, cancel: cancel}, nil
}

// deliver submits a claimed answer and locks the question once the backend
// confirms it.
func (f *Flow) deliver(out *outbound) error {
	i := out.index
	err := f.submit(out.ctx, i, out.answer)
	out.cancel()

	f.mu.Lock()
	defer f.unlock()
	s := f.slots[i]
	delete(f.submits, i)
	s.pending = false

	if err != nil {
		f.log.Warn().Err(err).Int("question", i).Msg("Answer submission failed")
		f.emit(Event{Kind: EventSubmitFailed, Index: i, Err: err})
		text, ok, perr := s.unpark()
		switch {
		case perr != nil:
			f.log.Debug().Err(perr).Int("question", i).Msg("Transcript discarded")
		case ok:
			f.emit(Event{Kind: EventTranscribed, Index: i, Text: text})
		}
		return err
	}

	if err := s.lock(); err != nil {
		return err
	}
	// A transcript arriving after the lock could no longer be applied.
	f.cancelJobLocked(i)

	f.log.Info().Int("question", i).Msg("Answer submitted")
	f.emit(Event{Kind: EventLocked, Index: i})
	return nil
}

func (f *Flow) submit(ctx context.Context, i int, a Answer) error {
	session, err := f.sessions.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if session.UserID == "" {
		return ErrUnauthenticated
	}

	sub := Submission{
		InterviewID:     f.interviewID,
		AttemptNumber:   f.attempt,
		QuestionIndex:   i,
		AnswerText:      a.FinalAnswer(),
		DurationSeconds: a.DurationSeconds(),
		UserID:          session.UserID,
	}
	if a.Audio != nil {
		sub.Audio = a.Audio.Data
	}
	if strings.TrimSpace(a.Transcribed) != "" {
		sub.Transcript = a.Transcribed
	}

	if err := f.submitter.Submit(ctx, sub); err != nil {
		return &SubmitError{Index: i, Err: err}
	}
	return nil
}

func (f *Flow) completeLocked() {
	if f.completed {
		return
	}
	f.completed = true
	f.log.Info().Msg("Interview attempt completed")
	f.emit(Event{Kind: EventCompleted, Index: f.current})
}

// ────────────────────────────────────────────────────────────────────────────
// Recording internals (f.mu held)
// ────────────────────────────────────────────────────────────────────────────

func (f *Flow) runCountdown(rec *recording) {
	defer f.wg.Done()
	for {
		select {
		case <-rec.done:
			return
		case <-rec.ticker.C():
			f.mu.Lock()
			if f.rec == rec {
				f.tickLocked()
			}
			f.unlock()
		}
	}
}

func (f *Flow) tickLocked() {
	f.remaining--
	if f.remaining < 0 {
		f.remaining = 0
	}
	f.emit(Event{Kind: EventTick, Index: f.rec.index, Remaining: f.remaining})
	if f.remaining == 0 {
		_ = f.finishRecordingLocked(true)
	}
}

func (f *Flow) finishRecordingLocked(auto bool) error {
	rec := f.detachLocked()
	s := f.slots[rec.index]

	clip, err := rec.capture.Stop()
	f.release(rec.capture)
	if err != nil {
		_ = s.abandonRecording()
		f.log.Warn().Err(err).Int("question", rec.index).Msg("Recording failed")
		f.emit(Event{Kind: EventRecordingFailed, Index: rec.index, Err: err})
		return stopError(err)
	}

	if err := s.stopRecording(clip); err != nil {
		return err
	}
	f.emit(Event{Kind: EventRecordingStopped, Index: rec.index, Remaining: f.remaining, Auto: auto})
	f.transcribeLocked(rec.index, clip)
	return nil
}

// abandonLocked stops the active recording without keeping the clip.
func (f *Flow) abandonLocked() {
	rec := f.detachLocked()
	f.release(rec.capture)
	_ = f.slots[rec.index].abandonRecording()
	f.emit(Event{Kind: EventRecordingAbandoned, Index: rec.index})
}

func (f *Flow) detachLocked() *recording {
	rec := f.rec
	f.rec = nil
	rec.ticker.Stop()
	close(rec.done)
	return rec
}

func (f *Flow) release(c Capture) {
	if err := c.Release(); err != nil {
		f.log.Warn().Err(err).Msg("Release capture device")
	}
}

func (f *Flow) moveLocked(i int) {
	if f.rec != nil {
		f.abandonLocked()
	}
	f.current = i
	f.remaining = f.ceilingSeconds
	f.emit(Event{Kind: EventQuestionChanged, Index: i, Remaining: f.remaining})
}

// ────────────────────────────────────────────────────────────────────────────
// Transcription
// ────────────────────────────────────────────────────────────────────────────

func (f *Flow) transcribeLocked(i int, clip Clip) {
	f.cancelJobLocked(i)

	ctx, cancel := context.WithTimeout(f.life, f.transcribeTimeout)
	j := &job{cancel: cancel}
	f.jobs[i] = j
	f.emit(Event{Kind: EventTranscribing, Index: i})

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer cancel()

		text, err := f.transcriber.Transcribe(ctx, clip)

		f.mu.Lock()
		defer f.unlock()

		if f.jobs[i] != j {
			return
		}
		delete(f.jobs, i)

		if err != nil {
			f.log.Warn().Err(err).Int("question", i).Msg("Transcription failed")
			f.emit(Event{Kind: EventTranscriptionFailed, Index: i, Err: err})
			return
		}

		s := f.slots[i]
		if s.pending {
			s.parked = &text
			f.log.Debug().Int("question", i).Msg("Transcript held until the submission settles")
			return
		}
		if err := s.mutate(func(a *Answer) { a.merge(text) }); err != nil {
			f.log.Debug().Err(err).Int("question", i).Msg("Transcript discarded")
			return
		}
		f.emit(Event{Kind: EventTranscribed, Index: i, Text: text})
	}()
}

func (f *Flow) cancelJobLocked(i int) {
	if j, ok := f.jobs[i]; ok {
		j.cancel()
		delete(f.jobs, i)
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Event delivery
// ────────────────────────────────────────────────────────────────────────────

func (f *Flow) emit(e Event) {
	f.pending = append(f.pending, e)
}

// unlock releases f.mu and then delivers the events queued while it was held.
func (f *Flow) unlock() {
	events := f.pending
	f.pending = nil
	f.mu.Unlock()
	for _, e := range events {
		f.onEvent(e)
	}
}

func deviceError(err error) error {
	if errors.Is(err, ErrPermissionDenied) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
}

// stopError reports a take that could not be kept. A microphone that went
// away is still a permission failure.
func stopError(err error) error {
	if errors.Is(err, ErrPermissionDenied) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRecordingFailed, err)
}

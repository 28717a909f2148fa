package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ─── Device ─────────────────────────────────────────────────────────

type fakeDevice struct {
	mu         sync.Mutex
	acquireErr error
	stopErr    error
	clip       Clip
	acquired   int
	released   int
}

func (d *fakeDevice) Acquire(ctx context.Context) (Capture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.acquireErr != nil {
		return nil, d.acquireErr
	}
	d.acquired++
	return &fakeCapture{dev: d}, nil
}

func (d *fakeDevice) counts() (acquired, released int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acquired, d.released
}

type fakeCapture struct {
	dev      *fakeDevice
	released bool
}

func (c *fakeCapture) Start() error { return nil }

func (c *fakeCapture) Stop() (Clip, error) {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	if c.dev.stopErr != nil {
		return Clip{}, c.dev.stopErr
	}
	return c.dev.clip, nil
}

func (c *fakeCapture) Release() error {
	c.dev.mu.Lock()
	defer c.dev.mu.Unlock()
	if c.released {
		return errors.New("released twice")
	}
	c.released = true
	c.dev.released++
	return nil
}

// ─── Ticker ─────────────────────────────────────────────────────────

// fakeTicker never fires; tests drive the countdown through Flow.Tick.
type fakeTicker struct {
	mu      sync.Mutex
	c       chan time.Time
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type tickerFactory struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (f *tickerFactory) New(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{c: make(chan time.Time)}
	f.tickers = append(f.tickers, t)
	return t
}

func (f *tickerFactory) last() *fakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickers[len(f.tickers)-1]
}

// ─── Transcriber ────────────────────────────────────────────────────

type fakeTranscriber struct {
	mu    sync.Mutex
	text  string
	err   error
	gate  chan struct{}
	calls int
}

func (t *fakeTranscriber) Transcribe(ctx context.Context, clip Clip) (string, error) {
	t.mu.Lock()
	t.calls++
	gate, text, err := t.gate, t.text, t.err
	t.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return text, err
}

// ─── Submitter ──────────────────────────────────────────────────────

type fakeSubmitter struct {
	mu       sync.Mutex
	subs     []Submission
	err      error
	received chan struct{}
	release  chan struct{}
}

func (s *fakeSubmitter) Submit(ctx context.Context, sub Submission) error {
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	err, received, release := s.err, s.received, s.release
	s.mu.Unlock()

	if received != nil {
		received <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (s *fakeSubmitter) submissions() []Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Submission, len(s.subs))
	copy(out, s.subs)
	return out
}

func (s *fakeSubmitter) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// ─── Events ─────────────────────────────────────────────────────────

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) find(kind EventKind) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.Kind == kind {
			return e, true
		}
	}
	return Event{}, false
}

func (l *eventLog) count(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// ─── Harness ────────────────────────────────────────────────────────

type harness struct {
	flow        *Flow
	device      *fakeDevice
	tickers     *tickerFactory
	transcriber *fakeTranscriber
	submitter   *fakeSubmitter
	events      *eventLog
	sessionErr  error
}

func newHarness(t *testing.T, questions ...string) *harness {
	t.Helper()

	h := &harness{
		device:      &fakeDevice{clip: Clip{Data: []byte("RIFF"), Duration: 3600 * time.Millisecond}},
		tickers:     &tickerFactory{},
		transcriber: &fakeTranscriber{text: "spoken answer"},
		submitter:   &fakeSubmitter{},
		events:      &eventLog{},
	}

	flow, err := New(Options{
		InterviewID:   "interview-1",
		AttemptNumber: 2,
		Questions:     questions,
		Device:        h.device,
		Transcriber:   h.transcriber,
		Submitter:     h.submitter,
		Sessions: SessionFunc(func(ctx context.Context) (Session, error) {
			if h.sessionErr != nil {
				return Session{}, h.sessionErr
			}
			return Session{UserID: "user-42"}, nil
		}),
		NewTicker: h.tickers.New,
		OnEvent:   h.events.add,
	})
	require.NoError(t, err)
	t.Cleanup(flow.Close)

	h.flow = flow
	return h
}

// record starts and stops a recording on the active question and waits for
// its transcription.
func (h *harness) record(t *testing.T) {
	t.Helper()
	require.NoError(t, h.flow.StartRecording(context.Background()))
	require.NoError(t, h.flow.StopRecording())
	h.flow.wg.Wait()
}

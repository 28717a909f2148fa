package service

import (
	"context"
	"encoding/binary"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockprep/coach-gateway/internal/capture"
	"github.com/mockprep/coach-gateway/internal/model"
)

type flowFixture struct {
	svc       *FlowService
	backend   *fakeBackend
	sessions  *memSessions
	snapshots *memSnapshots
	journal   *memJournal
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()
	f := &flowFixture{
		backend: &fakeBackend{
			questions:  []string{"Q1: Tell me about yourself.", "Q2: Why Go?", "Q3: Any questions?"},
			transcript: "I like channels",
		},
		sessions:  newMemSessions(),
		snapshots: newMemSnapshots(),
		journal:   &memJournal{},
	}
	require.NoError(t, f.sessions.Save(context.Background(), testSession, time.Hour))
	f.svc = NewFlowService(testConfig(), f.backend, f.sessions, f.snapshots, f.journal, f.journal, zerolog.Nop())
	t.Cleanup(f.svc.CloseAll)
	return f
}

func waitFor(t *testing.T, events <-chan capture.Event, kind capture.EventKind) capture.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e, ok := <-events:
			require.True(t, ok, "event stream closed before %s", kind)
			if e.Kind == kind {
				return e
			}
		case <-timeout:
			t.Fatalf("no %s event", kind)
		}
	}
}

func TestFlowService_StartAndSubmit(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()

	live, err := f.svc.Start(ctx, testSession, "iv-1")
	require.NoError(t, err)
	assert.Equal(t, 1, live.AttemptNumber())
	assert.Equal(t, 0, live.Current())

	require.NoError(t, live.UpdateTyped("I build services in Go."))
	require.NoError(t, live.Advance(ctx))

	reqs := f.backend.analyzedRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "iv-1", reqs[0].InterviewID)
	assert.Equal(t, 0, reqs[0].QuestionIndex)
	assert.Equal(t, "u1", reqs[0].UserID)
	assert.Equal(t, "I build services in Go.", reqs[0].AnswerText)
	assert.Equal(t, []string{"authToken=abc"}, f.backend.analyzeCk)

	entries := f.journal.entries()
	require.Len(t, entries, 1)
	assert.Equal(t, model.Submission{
		UserID: "u1", InterviewID: "iv-1", AttemptNumber: 1, QuestionIndex: 0,
		AnswerText: "I build services in Go.", SubmittedAt: entries[0].SubmittedAt,
	}, entries[0])

	snap, ok := f.snapshots.get("u1", "iv-1")
	require.True(t, ok)
	assert.Equal(t, 1, snap.AttemptNumber)
	assert.Len(t, snap.Questions, 3)
	assert.Equal(t, "I build services in Go.", snap.Locked[0].Typed)
}

func TestFlowService_StartWithoutQuestions(t *testing.T) {
	f := newFlowFixture(t)
	f.backend.questions = nil

	_, err := f.svc.Start(context.Background(), testSession, "iv-1")
	assert.ErrorIs(t, err, ErrNoQuestions)
	assert.Zero(t, f.backend.attempt)
}

func TestFlowService_StartReplacesExistingFlow(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()

	first, err := f.svc.Start(ctx, testSession, "iv-1")
	require.NoError(t, err)
	second, err := f.svc.Start(ctx, testSession, "iv-1")
	require.NoError(t, err)

	assert.Equal(t, 2, second.AttemptNumber())
	assert.ErrorIs(t, first.UpdateTyped("late"), capture.ErrClosed)

	got, err := f.svc.Get("u1", "iv-1")
	require.NoError(t, err)
	assert.Same(t, second, got)
}

func TestFlowService_RecordingThroughStream(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()

	live, err := f.svc.Start(ctx, testSession, "iv-1")
	require.NoError(t, err)
	events, unsubscribe := live.Subscribe()
	defer unsubscribe()

	assert.ErrorIs(t, live.StartRecording(ctx), capture.ErrPermissionDenied)

	live.Device.Attach()
	require.NoError(t, live.StartRecording(ctx))
	frame := make([]byte, 2*16000)
	for i := 0; i < 16000; i++ {
		binary.LittleEndian.PutUint16(frame[2*i:], uint16(i%100))
	}
	require.NoError(t, live.Device.Write(frame))
	require.NoError(t, live.StopRecording())

	transcribed := waitFor(t, events, capture.EventTranscribed)
	assert.Equal(t, "I like channels", transcribed.Text)

	a, err := live.Answer(0)
	require.NoError(t, err)
	assert.Equal(t, "I like channels", a.Typed)
	assert.Equal(t, 1, a.DurationSeconds())

	require.NoError(t, live.Advance(ctx))
	reqs := f.backend.analyzedRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, 1, reqs[0].DurationSeconds)
	assert.Equal(t, "I like channels", reqs[0].Transcript)
	assert.NotEmpty(t, reqs[0].Audio)

	assert.True(t, f.journal.entries()[0].HasAudio)
}

func TestFlowService_SubmitRequiresLiveSession(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()

	live, err := f.svc.Start(ctx, testSession, "iv-1")
	require.NoError(t, err)
	require.NoError(t, live.UpdateTyped("answer"))

	require.NoError(t, f.sessions.Delete(ctx, testSession.TokenID))
	err = live.Advance(ctx)
	assert.ErrorIs(t, err, capture.ErrUnauthenticated)
	assert.Empty(t, f.backend.analyzedRequests())
	assert.False(t, live.IsLocked(0))
}

func TestFlowService_ResumeFromSnapshot(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()

	live, err := f.svc.Start(ctx, testSession, "iv-1")
	require.NoError(t, err)
	require.NoError(t, live.UpdateTyped("first"))
	require.NoError(t, live.Advance(ctx))
	require.NoError(t, f.svc.Close("u1", "iv-1"))

	_, err = f.svc.Get("u1", "iv-1")
	assert.ErrorIs(t, err, ErrFlowNotStarted)

	resumed, err := f.svc.Resume(ctx, testSession, "iv-1")
	require.NoError(t, err)
	assert.NotSame(t, live, resumed)
	assert.Equal(t, 1, resumed.AttemptNumber())
	assert.Equal(t, 1, resumed.Current())
	assert.True(t, resumed.IsLocked(0))
	assert.ErrorIs(t, resumed.ResetAnswer(0), capture.ErrLocked)

	again, err := f.svc.Resume(ctx, testSession, "iv-1")
	require.NoError(t, err)
	assert.Same(t, resumed, again)
}

func TestFlowService_ResumeFromJournal(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	for i, text := range []string{"one", "two"} {
		require.NoError(t, f.journal.Enqueue(ctx, model.Submission{
			UserID: "u1", InterviewID: "iv-1", AttemptNumber: 4, QuestionIndex: i, AnswerText: text,
		}))
	}

	live, err := f.svc.Resume(ctx, testSession, "iv-1")
	require.NoError(t, err)
	assert.Equal(t, 4, live.AttemptNumber())
	assert.Equal(t, 2, live.Current())
	assert.False(t, live.Completed())

	a, err := live.Answer(1)
	require.NoError(t, err)
	assert.Equal(t, "two", a.Typed)
}

func TestFlowService_ResumeCompletedAttempt(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, f.journal.Enqueue(ctx, model.Submission{
			UserID: "u1", InterviewID: "iv-1", AttemptNumber: 1, QuestionIndex: i, AnswerText: "done",
		}))
	}

	live, err := f.svc.Resume(ctx, testSession, "iv-1")
	require.NoError(t, err)
	assert.True(t, live.Completed())
	assert.Empty(t, f.backend.analyzedRequests())
}

func TestFlowService_ResumeWithoutHistory(t *testing.T) {
	f := newFlowFixture(t)

	_, err := f.svc.Resume(context.Background(), testSession, "iv-1")
	assert.ErrorIs(t, err, ErrFlowNotStarted)
}

func TestFlowService_CloseEndsSubscriptions(t *testing.T) {
	f := newFlowFixture(t)
	live, err := f.svc.Start(context.Background(), testSession, "iv-1")
	require.NoError(t, err)
	events, unsubscribe := live.Subscribe()
	defer unsubscribe()

	require.NoError(t, f.svc.Close("u1", "iv-1"))

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
	assert.ErrorIs(t, f.svc.Close("u1", "iv-1"), ErrFlowNotStarted)
}

func TestFlowService_Submissions(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()

	attempt, subs, err := f.svc.Submissions(ctx, testSession, "iv-1", 0)
	require.NoError(t, err)
	assert.Zero(t, attempt)
	assert.Empty(t, subs)

	for _, n := range []int{1, 2} {
		require.NoError(t, f.journal.Enqueue(ctx, model.Submission{
			UserID: testSession.UserID, InterviewID: "iv-1", AttemptNumber: n, QuestionIndex: 0, AnswerText: "a",
		}))
	}

	attempt, subs, err = f.svc.Submissions(ctx, testSession, "iv-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, attempt)
	require.Len(t, subs, 1)
	assert.Equal(t, 2, subs[0].AttemptNumber)

	attempt, subs, err = f.svc.Submissions(ctx, testSession, "iv-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, attempt)
	require.Len(t, subs, 1)
}

func TestFlowService_DetachStreamDropsRecording(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()

	live, err := f.svc.Start(ctx, testSession, "iv-1")
	require.NoError(t, err)
	live.Device.Attach()
	require.NoError(t, live.StartRecording(ctx))
	require.NoError(t, live.Device.Write(make([]byte, 320)))

	live.DetachStream()

	assert.False(t, live.Recording())
	assert.False(t, live.Device.Attached())
	assert.ErrorIs(t, live.StartRecording(ctx), capture.ErrPermissionDenied)
	require.NoError(t, live.UpdateTyped("typed after the tab closed"))
	require.NoError(t, live.Advance(ctx))
	assert.Empty(t, f.backend.analyzedRequests()[0].Audio)
}

func TestFlowService_EvictIdle(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	idle, err := f.svc.Start(ctx, testSession, "iv-1")
	require.NoError(t, err)
	require.NoError(t, idle.UpdateTyped("first"))
	require.NoError(t, idle.Advance(ctx))

	streaming, err := f.svc.Start(ctx, testSession, "iv-2")
	require.NoError(t, err)
	streaming.Device.Attach()

	now = now.Add(30 * time.Minute)
	assert.Zero(t, f.svc.EvictIdle(ctx))
	assert.Equal(t, 2, f.svc.Count())

	now = now.Add(time.Hour)
	assert.Equal(t, 1, f.svc.EvictIdle(ctx))
	assert.Equal(t, 1, f.svc.Count())

	_, err = f.svc.Get("u1", "iv-1")
	assert.ErrorIs(t, err, ErrFlowNotStarted)
	assert.ErrorIs(t, idle.UpdateTyped("late"), capture.ErrClosed)
	got, err := f.svc.Get("u1", "iv-2")
	require.NoError(t, err)
	assert.Same(t, streaming, got)

	resumed, err := f.svc.Resume(ctx, testSession, "iv-1")
	require.NoError(t, err)
	assert.True(t, resumed.IsLocked(0))
	assert.Equal(t, 1, resumed.Current())
}

func TestFlowService_EvictIdle_ResumeKeepsFlowAlive(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	live, err := f.svc.Start(ctx, testSession, "iv-1")
	require.NoError(t, err)

	now = now.Add(50 * time.Minute)
	_, err = f.svc.Resume(ctx, testSession, "iv-1")
	require.NoError(t, err)

	now = now.Add(50 * time.Minute)
	assert.Zero(t, f.svc.EvictIdle(ctx))
	require.NoError(t, live.UpdateTyped("still here"))
}

func TestFlowService_ResumeDropsUnusableSnapshot(t *testing.T) {
	f := newFlowFixture(t)
	ctx := context.Background()
	require.NoError(t, f.journal.Enqueue(ctx, model.Submission{
		UserID: "u1", InterviewID: "iv-1", AttemptNumber: 2, QuestionIndex: 0, AnswerText: "kept",
	}))
	require.NoError(t, f.snapshots.SaveSnapshot(ctx, "u1", FlowSnapshot{InterviewID: "iv-1", AttemptNumber: 9}, time.Hour))
	f.snapshots.loadErr = fmt.Errorf("%w: unexpected end of JSON input", ErrSnapshotInvalid)

	live, err := f.svc.Resume(ctx, testSession, "iv-1")
	require.NoError(t, err)
	assert.Equal(t, 2, live.AttemptNumber())
	assert.True(t, live.IsLocked(0))

	_, ok := f.snapshots.get("u1", "iv-1")
	assert.False(t, ok)
}

package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockprep/coach-gateway/internal/model"
)

type memQueue struct {
	mu    sync.Mutex
	items []string
}

func (q *memQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		if item, err := q.TryPop(ctx); err == nil {
			return item, nil
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return "", ErrQueueEmpty
		}
		time.Sleep(time.Millisecond)
	}
}

func (q *memQueue) TryPop(ctx context.Context) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", ErrQueueEmpty
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, nil
}

func (q *memQueue) Push(ctx context.Context, item string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	return nil
}

func (q *memQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

type memStore struct {
	mu       sync.Mutex
	rows     map[[2]int]model.Submission
	failures int
}

func (s *memStore) Insert(ctx context.Context, sub *model.Submission) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return false, errors.New("database unavailable")
	}
	if s.rows == nil {
		s.rows = make(map[[2]int]model.Submission)
	}
	key := [2]int{sub.AttemptNumber, sub.QuestionIndex}
	if _, ok := s.rows[key]; ok {
		return false, nil
	}
	s.rows[key] = *sub
	return true, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func newTestWorker(q Queue, s SubmissionStore) *JournalWorker {
	w := NewJournalWorker(q, s, zerolog.Nop())
	w.popTimeout = 5 * time.Millisecond
	w.retryDelay = time.Millisecond
	return w
}

func submission(index int) model.Submission {
	return model.Submission{
		UserID: "u1", InterviewID: "iv-1", AttemptNumber: 1, QuestionIndex: index,
		AnswerText: "answer", SubmittedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestJournalWorker_PersistsQueuedSubmissions(t *testing.T) {
	q, store := &memQueue{}, &memStore{}
	w := newTestWorker(q, store)
	ctx := context.Background()

	require.NoError(t, w.Enqueue(ctx, submission(0)))
	require.NoError(t, w.Enqueue(ctx, submission(1)))
	require.NoError(t, w.Enqueue(ctx, submission(1)))

	for i := 0; i < 3; i++ {
		w.processNext(ctx)
	}

	assert.Equal(t, 2, store.count())
	assert.Zero(t, q.len())
}

func TestJournalWorker_RequeuesOnFailure(t *testing.T) {
	q, store := &memQueue{}, &memStore{failures: 1}
	w := newTestWorker(q, store)
	ctx := context.Background()

	require.NoError(t, w.Enqueue(ctx, submission(0)))

	w.processNext(ctx)
	assert.Zero(t, store.count())
	assert.Equal(t, 1, q.len())

	w.processNext(ctx)
	assert.Equal(t, 1, store.count())
	assert.Zero(t, q.len())
}

func TestJournalWorker_SkipsMalformedItems(t *testing.T) {
	q, store := &memQueue{}, &memStore{}
	w := newTestWorker(q, store)

	require.NoError(t, q.Push(context.Background(), "{not json"))
	w.processNext(context.Background())

	assert.Zero(t, store.count())
	assert.Zero(t, q.len())
}

func TestJournalWorker_DrainsOnShutdown(t *testing.T) {
	q, store := &memQueue{}, &memStore{}
	w := newTestWorker(q, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Enqueue(context.Background(), submission(i)))
	}

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 3, store.count())
	assert.Zero(t, q.len())
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mockprep/coach-gateway/internal/model"
)

// SubmissionStore persists journaled submissions.
type SubmissionStore interface {
	Insert(ctx context.Context, s *model.Submission) (bool, error)
}

// JournalWorker consumes persist_submissions_queue and records each confirmed
// answer submission in PostgreSQL.
type JournalWorker struct {
	queue Queue
	store SubmissionStore
	log   zerolog.Logger

	popTimeout time.Duration
	retryDelay time.Duration
}

// NewJournalWorker creates a new JournalWorker.
func NewJournalWorker(queue Queue, store SubmissionStore, log zerolog.Logger) *JournalWorker {
	return &JournalWorker{
		queue:      queue,
		store:      store,
		log:        log.With().Str("component", "journal_worker").Logger(),
		popTimeout: time.Second,
		retryDelay: 5 * time.Second,
	}
}

// Enqueue schedules a submission for persistence.
func (w *JournalWorker) Enqueue(ctx context.Context, sub model.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	if err := w.queue.Push(ctx, string(data)); err != nil {
		return fmt.Errorf("enqueue submission: %w", err)
	}
	return nil
}

// Start begins the worker loop. Call in a goroutine.
func (w *JournalWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *JournalWorker) processNext(ctx context.Context) {
	item, err := w.queue.Pop(ctx, w.popTimeout)
	if err != nil {
		if !errors.Is(err, ErrQueueEmpty) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Pop error")
		}
		return
	}

	sub, err := decodeSubmission(item)
	if err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persist(ctx, sub); err != nil {
		w.log.Error().Err(err).
			Str("user_id", sub.UserID).
			Str("interview_id", sub.InterviewID).
			Int("question", sub.QuestionIndex).
			Dur("retry_in", w.retryDelay).
			Msg("Persist error, retrying")
		// Push back to queue for retry.
		if err := w.queue.Push(context.Background(), item); err != nil {
			w.log.Error().Err(err).Msg("Requeue failed, submission dropped from journal")
		}
		select {
		case <-ctx.Done():
		case <-time.After(w.retryDelay):
		}
	}
}

func (w *JournalWorker) persist(ctx context.Context, sub *model.Submission) error {
	written, err := w.store.Insert(ctx, sub)
	if err != nil {
		return err
	}
	if !written {
		w.log.Debug().
			Str("interview_id", sub.InterviewID).
			Int("question", sub.QuestionIndex).
			Msg("Submission already journaled")
	}
	return nil
}

// drain processes all remaining items in the queue before shutdown.
func (w *JournalWorker) drain(ctx context.Context) {
	drained := 0
	for {
		item, err := w.queue.TryPop(ctx)
		if err != nil {
			break
		}

		sub, err := decodeSubmission(item)
		if err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persist(ctx, sub); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			_ = w.queue.Push(ctx, item)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}

func decodeSubmission(item string) (*model.Submission, error) {
	var sub model.Submission
	if err := json.Unmarshal([]byte(item), &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

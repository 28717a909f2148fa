package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mockprep/coach-gateway/internal/audio"
	"github.com/mockprep/coach-gateway/internal/backend"
	"github.com/mockprep/coach-gateway/internal/capture"
	"github.com/mockprep/coach-gateway/internal/config"
	"github.com/mockprep/coach-gateway/internal/model"
	"github.com/mockprep/coach-gateway/internal/repository"
)

// FlowBackend is the part of the backend an answer flow talks to.
type FlowBackend interface {
	Questions(ctx context.Context, creds backend.Credentials, interviewID string) ([]string, error)
	StartSession(ctx context.Context, creds backend.Credentials, interviewID, userID string) (int, error)
	Transcribe(ctx context.Context, creds backend.Credentials, wav []byte) (string, error)
	AnalyzeFeedback(ctx context.Context, creds backend.Credentials, req backend.AnalyzeRequest) error
}

// SessionSource resolves a gateway token ID to its session.
type SessionSource interface {
	Session(ctx context.Context, tokenID string) (Session, error)
}

// Journal receives every submission the backend confirmed.
type Journal interface {
	Enqueue(ctx context.Context, sub model.Submission) error
}

// JournalReader reads journaled submissions back.
type JournalReader interface {
	LatestAttempt(ctx context.Context, userID, interviewID string) (int, error)
	ListByAttempt(ctx context.Context, userID, interviewID string, attempt int) ([]model.Submission, error)
}

// LiveFlow is an answer flow held by the gateway for one user and interview,
// with the microphone stream feeding it.
type LiveFlow struct {
	*capture.Flow
	UserID string
	Device *audio.StreamDevice

	hub *eventHub

	mu         sync.Mutex
	tokenID    string
	lastActive time.Time
}

// Subscribe returns a channel of the flow's events and a function that ends
// the subscription.
func (l *LiveFlow) Subscribe() (<-chan capture.Event, func()) {
	return l.hub.subscribe()
}

func (l *LiveFlow) token() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokenID
}

func (l *LiveFlow) setToken(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokenID = id
}

func (l *LiveFlow) touch(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastActive = now
}

func (l *LiveFlow) idleSince() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastActive
}

// DetachStream marks the microphone stream as gone and drops a recording it
// was feeding, so the question is editable again.
func (l *LiveFlow) DetachStream() {
	l.Device.Detach()
	l.Flow.AbandonRecording()
}

func (l *LiveFlow) close() {
	l.Device.Detach()
	l.Flow.Close()
	l.hub.close()
}

// FlowService owns the live answer flows. A flow is started against a new
// backend attempt and can be resumed from its Redis snapshot, or from the
// submission journal once the snapshot has expired.
type FlowService struct {
	cfg       *config.Config
	backend   FlowBackend
	sessions  SessionSource
	snapshots SnapshotStore
	journal   Journal
	history   JournalReader
	log       zerolog.Logger
	now       func() time.Time

	mu    sync.Mutex
	flows map[string]*LiveFlow
}

const reapInterval = time.Minute

// NewFlowService creates a new FlowService.
func NewFlowService(
	cfg *config.Config,
	b FlowBackend,
	sessions SessionSource,
	snapshots SnapshotStore,
	journal Journal,
	history JournalReader,
	log zerolog.Logger,
) *FlowService {
	return &FlowService{
		cfg:       cfg,
		backend:   b,
		sessions:  sessions,
		snapshots: snapshots,
		journal:   journal,
		history:   history,
		log:       log.With().Str("component", "flow_service").Logger(),
		now:       time.Now,
		flows:     make(map[string]*LiveFlow),
	}
}

func flowKey(userID, interviewID string) string {
	return userID + "/" + interviewID
}

// Start opens a new attempt on the backend and replaces any flow the user
// already had on the interview.
func (s *FlowService) Start(ctx context.Context, sess Session, interviewID string) (*LiveFlow, error) {
	creds := sess.Credentials()

	questions, err := s.backend.Questions(ctx, creds, interviewID)
	if err != nil {
		return nil, notFound(err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	attempt, err := s.backend.StartSession(ctx, creds, interviewID, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("start attempt: %w", err)
	}

	live, err := s.build(sess, interviewID, attempt, questions)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	prev := s.flows[flowKey(sess.UserID, interviewID)]
	s.flows[flowKey(sess.UserID, interviewID)] = live
	s.mu.Unlock()
	if prev != nil {
		prev.close()
	}

	s.saveSnapshot(ctx, live)
	s.log.Info().
		Str("user_id", sess.UserID).
		Str("interview_id", interviewID).
		Int("attempt", attempt).
		Int("questions", len(questions)).
		Msg("Answer flow started")
	return live, nil
}

// Resume returns the user's flow on the interview, rebuilding it from the
// snapshot or the journal when it is no longer in memory. It fails with
// ErrFlowNotStarted when there is nothing to resume.
func (s *FlowService) Resume(ctx context.Context, sess Session, interviewID string) (*LiveFlow, error) {
	if live, err := s.Get(sess.UserID, interviewID); err == nil {
		live.setToken(sess.TokenID)
		live.touch(s.now())
		return live, nil
	}

	live, err := s.restore(ctx, sess, interviewID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	key := flowKey(sess.UserID, interviewID)
	if existing, ok := s.flows[key]; ok {
		s.mu.Unlock()
		live.close()
		existing.setToken(sess.TokenID)
		existing.touch(s.now())
		return existing, nil
	}
	s.flows[key] = live
	s.mu.Unlock()

	s.log.Info().
		Str("user_id", sess.UserID).
		Str("interview_id", interviewID).
		Int("attempt", live.AttemptNumber()).
		Msg("Answer flow resumed")
	return live, nil
}

// Get returns a flow held in memory.
func (s *FlowService) Get(userID, interviewID string) (*LiveFlow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	live, ok := s.flows[flowKey(userID, interviewID)]
	if !ok {
		return nil, ErrFlowNotStarted
	}
	return live, nil
}

// Close releases a flow. Its snapshot stays so it can be resumed.
func (s *FlowService) Close(userID, interviewID string) error {
	s.mu.Lock()
	key := flowKey(userID, interviewID)
	live, ok := s.flows[key]
	delete(s.flows, key)
	s.mu.Unlock()
	if !ok {
		return ErrFlowNotStarted
	}
	live.close()
	return nil
}

// EvictIdle closes the flows nobody has used for longer than the flow TTL and
// returns how many it closed. Flows with an open microphone stream stay. An
// evicted flow can be resumed from its snapshot.
func (s *FlowService) EvictIdle(ctx context.Context) int {
	cutoff := s.now().Add(-s.cfg.FlowTTL)

	s.mu.Lock()
	var idle []*LiveFlow
	for key, live := range s.flows {
		if live.Device.Attached() || live.idleSince().After(cutoff) {
			continue
		}
		idle = append(idle, live)
		delete(s.flows, key)
	}
	s.mu.Unlock()

	for _, live := range idle {
		s.saveSnapshot(ctx, live)
		live.close()
		s.log.Info().
			Str("user_id", live.UserID).
			Str("interview_id", live.InterviewID()).
			Int("attempt", live.AttemptNumber()).
			Msg("Idle answer flow evicted")
	}
	return len(idle)
}

// StartReaper evicts idle flows once a minute until ctx is done. Call in a
// goroutine.
func (s *FlowService) StartReaper(ctx context.Context) {
	s.log.Info().Dur("ttl", s.cfg.FlowTTL).Msg("Flow reaper started")
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Flow reaper stopped")
			return
		case <-ticker.C:
			s.EvictIdle(ctx)
		}
	}
}

// Count returns the number of flows held in memory.
func (s *FlowService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flows)
}

// CloseAll releases every flow. Called on shutdown.
func (s *FlowService) CloseAll() {
	s.mu.Lock()
	flows := s.flows
	s.flows = make(map[string]*LiveFlow)
	s.mu.Unlock()

	for _, live := range flows {
		live.close()
	}
	if len(flows) > 0 {
		s.log.Info().Int("count", len(flows)).Msg("Closed answer flows")
	}
}

// Submissions returns the journaled submissions of one attempt. Attempt 0
// selects the latest one.
func (s *FlowService) Submissions(ctx context.Context, sess Session, interviewID string, attempt int) (int, []model.Submission, error) {
	if s.history == nil {
		return 0, nil, ErrFlowNotStarted
	}
	if attempt <= 0 {
		latest, err := s.history.LatestAttempt(ctx, sess.UserID, interviewID)
		if err != nil {
			if errors.Is(err, repository.ErrNoAttempt) {
				return 0, []model.Submission{}, nil
			}
			return 0, nil, err
		}
		attempt = latest
	}
	subs, err := s.history.ListByAttempt(ctx, sess.UserID, interviewID, attempt)
	if err != nil {
		return 0, nil, err
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	return attempt, subs, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Internals
// ────────────────────────────────────────────────────────────────────────────

func (s *FlowService) restore(ctx context.Context, sess Session, interviewID string) (*LiveFlow, error) {
	snap, err := s.snapshots.LoadSnapshot(ctx, sess.UserID, interviewID)
	if errors.Is(err, ErrSnapshotInvalid) {
		s.log.Warn().Err(err).Str("interview_id", interviewID).Msg("Dropping unusable flow snapshot")
		if derr := s.snapshots.DeleteSnapshot(ctx, sess.UserID, interviewID); derr != nil {
			s.log.Warn().Err(derr).Str("interview_id", interviewID).Msg("Delete flow snapshot")
		}
		err = ErrFlowNotStarted
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrFlowNotStarted):
		snap, err = s.snapshotFromJournal(ctx, sess, interviewID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	live, err := s.build(sess, interviewID, snap.AttemptNumber, snap.Questions)
	if err != nil {
		return nil, err
	}

	locked := make(map[int]capture.Answer, len(snap.Locked))
	for i, a := range snap.Locked {
		if i < 0 || i >= len(snap.Questions) {
			continue
		}
		answer := capture.Answer{Typed: a.Typed, Transcribed: a.Transcribed}
		if a.HasAudio {
			answer.Audio = &capture.Clip{Duration: time.Duration(a.DurationSeconds) * time.Second}
		}
		locked[i] = answer
	}
	if err := live.Restore(locked); err != nil {
		live.close()
		return nil, err
	}
	if snap.Completed {
		// Every answer is locked, so this only marks the flow completed.
		if err := live.Finish(ctx); err != nil {
			s.log.Warn().Err(err).Str("interview_id", interviewID).Msg("Restore completed flow")
		}
	}
	return live, nil
}

func (s *FlowService) snapshotFromJournal(ctx context.Context, sess Session, interviewID string) (FlowSnapshot, error) {
	if s.history == nil {
		return FlowSnapshot{}, ErrFlowNotStarted
	}
	attempt, err := s.history.LatestAttempt(ctx, sess.UserID, interviewID)
	if err != nil {
		if errors.Is(err, repository.ErrNoAttempt) {
			return FlowSnapshot{}, ErrFlowNotStarted
		}
		return FlowSnapshot{}, err
	}
	subs, err := s.history.ListByAttempt(ctx, sess.UserID, interviewID, attempt)
	if err != nil {
		return FlowSnapshot{}, err
	}
	questions, err := s.backend.Questions(ctx, sess.Credentials(), interviewID)
	if err != nil {
		return FlowSnapshot{}, notFound(err)
	}
	if len(questions) == 0 {
		return FlowSnapshot{}, ErrNoQuestions
	}

	snap := FlowSnapshot{
		InterviewID:   interviewID,
		AttemptNumber: attempt,
		Questions:     questions,
		Locked:        make(map[int]SnapshotAnswer, len(subs)),
	}
	for _, sub := range subs {
		snap.Locked[sub.QuestionIndex] = SnapshotAnswer{
			Typed:           sub.AnswerText,
			Transcribed:     sub.TranscriptionText,
			HasAudio:        sub.HasAudio,
			DurationSeconds: sub.DurationSeconds,
		}
	}
	snap.Completed = len(snap.Locked) == len(questions)
	return snap, nil
}

func (s *FlowService) build(sess Session, interviewID string, attempt int, questions []string) (*LiveFlow, error) {
	live := &LiveFlow{
		UserID:     sess.UserID,
		Device:     audio.NewStreamDevice(s.cfg.AudioSampleRate, int(s.cfg.MaxAudioBytes)),
		hub:        newEventHub(s.log),
		tokenID:    sess.TokenID,
		lastActive: s.now(),
	}

	flow, err := capture.New(capture.Options{
		InterviewID:   interviewID,
		AttemptNumber: attempt,
		Questions:     questions,
		Device:        live.Device,
		Transcriber: capture.TranscriberFunc(func(ctx context.Context, clip capture.Clip) (string, error) {
			sess, err := s.session(ctx, live)
			if err != nil {
				return "", err
			}
			return s.backend.Transcribe(ctx, sess.Credentials(), clip.Data)
		}),
		Submitter: capture.SubmitterFunc(func(ctx context.Context, sub capture.Submission) error {
			return s.submit(ctx, live, sub)
		}),
		Sessions: capture.SessionFunc(func(ctx context.Context) (capture.Session, error) {
			sess, err := s.session(ctx, live)
			if err != nil {
				return capture.Session{}, err
			}
			return capture.Session{UserID: sess.UserID, Username: sess.Username}, nil
		}),
		Ceiling:           s.cfg.RecordingCeiling,
		TranscribeTimeout: s.cfg.TranscribeTimeout,
		SubmitTimeout:     s.cfg.SubmitTimeout,
		OnEvent:           func(e capture.Event) { s.onEvent(live, e) },
		Log:               s.log,
	})
	if err != nil {
		if errors.Is(err, capture.ErrNoQuestions) {
			return nil, ErrNoQuestions
		}
		return nil, err
	}
	live.Flow = flow
	return live, nil
}

// session resolves the flow's current token and checks it still belongs to
// the flow's user.
func (s *FlowService) session(ctx context.Context, live *LiveFlow) (Session, error) {
	sess, err := s.sessions.Session(ctx, live.token())
	if err != nil {
		return Session{}, err
	}
	if sess.UserID != live.UserID {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *FlowService) submit(ctx context.Context, live *LiveFlow, sub capture.Submission) error {
	sess, err := s.session(ctx, live)
	if err != nil {
		return fmt.Errorf("%w: %w", capture.ErrUnauthenticated, err)
	}

	err = s.backend.AnalyzeFeedback(ctx, sess.Credentials(), backend.AnalyzeRequest{
		InterviewID:     sub.InterviewID,
		QuestionIndex:   sub.QuestionIndex,
		AnswerText:      sub.AnswerText,
		UserID:          sub.UserID,
		DurationSeconds: sub.DurationSeconds,
		Audio:           sub.Audio,
		Transcript:      sub.Transcript,
	})
	if err != nil {
		if errors.Is(err, backend.ErrUnauthenticated) {
			return fmt.Errorf("%w: %w", capture.ErrUnauthenticated, err)
		}
		return err
	}

	if s.journal != nil {
		entry := model.Submission{
			UserID:            sub.UserID,
			InterviewID:       sub.InterviewID,
			AttemptNumber:     sub.AttemptNumber,
			QuestionIndex:     sub.QuestionIndex,
			AnswerText:        sub.AnswerText,
			TranscriptionText: sub.Transcript,
			DurationSeconds:   sub.DurationSeconds,
			HasAudio:          len(sub.Audio) > 0,
			SubmittedAt:       time.Now().UTC(),
		}
		if err := s.journal.Enqueue(ctx, entry); err != nil {
			s.log.Warn().Err(err).
				Str("interview_id", sub.InterviewID).
				Int("question", sub.QuestionIndex).
				Msg("Journal enqueue failed")
		}
	}
	return nil
}

func (s *FlowService) onEvent(live *LiveFlow, e capture.Event) {
	live.touch(s.now())
	live.hub.publish(e)
	switch e.Kind {
	case capture.EventLocked, capture.EventCompleted:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.saveSnapshot(ctx, live)
	}
}

func (s *FlowService) saveSnapshot(ctx context.Context, live *LiveFlow) {
	state := live.State()
	snap := FlowSnapshot{
		InterviewID:   live.InterviewID(),
		AttemptNumber: live.AttemptNumber(),
		Questions:     live.Questions(),
		Locked:        make(map[int]SnapshotAnswer),
		Completed:     state.Completed,
		SavedAt:       time.Now().UTC(),
	}
	for i, a := range live.Locked() {
		snap.Locked[i] = SnapshotAnswer{
			Typed:           a.Typed,
			Transcribed:     a.Transcribed,
			HasAudio:        a.Audio != nil,
			DurationSeconds: a.DurationSeconds(),
		}
	}
	if err := s.snapshots.SaveSnapshot(ctx, live.UserID, snap, s.cfg.FlowTTL); err != nil {
		s.log.Warn().Err(err).Str("interview_id", snap.InterviewID).Msg("Save flow snapshot")
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Event fan-out
// ────────────────────────────────────────────────────────────────────────────

const subscriberBuffer = 64

type eventHub struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan capture.Event
	closed bool
	log    zerolog.Logger
}

func newEventHub(log zerolog.Logger) *eventHub {
	return &eventHub{subs: make(map[int]chan capture.Event), log: log}
}

func (h *eventHub) subscribe() (<-chan capture.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan capture.Event, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

// publish never blocks; a subscriber that falls behind loses events.
func (h *eventHub) publish(e capture.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.log.Warn().Str("event", string(e.Kind)).Msg("Subscriber lagging, event dropped")
		}
	}
}

func (h *eventHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

package service

import (
	"context"
	"sync"
	"time"

	"github.com/mockprep/coach-gateway/internal/backend"
	"github.com/mockprep/coach-gateway/internal/config"
	"github.com/mockprep/coach-gateway/internal/model"
	"github.com/mockprep/coach-gateway/internal/repository"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:         "test-secret",
		JWTExpiry:         time.Hour,
		MaxUploadBytes:    1 << 20,
		MaxAudioBytes:     1 << 20,
		RecordingCeiling:  120 * time.Second,
		AudioSampleRate:   16000,
		TranscribeTimeout: time.Second,
		SubmitTimeout:     time.Second,
		FlowTTL:           time.Hour,
	}
}

// ─── Backend ────────────────────────────────────────────────────────

type fakeBackend struct {
	mu sync.Mutex

	loginCreds backend.Credentials
	loginErr   error
	user       model.User
	meErr      error
	loggedOut  []backend.Credentials

	interviews    []model.Interview
	interviewsErr error
	details       model.InterviewDetails
	questions     []string
	questionsErr  error
	uploaded      []backend.ResumeFile
	uploadResult  model.UploadResumeResult

	attempt    int
	transcript string
	analyzed   []backend.AnalyzeRequest
	analyzeErr error
	analyzeCk  []string

	feedback    []model.AttemptFeedback
	feedbackErr error
}

func (b *fakeBackend) Signup(ctx context.Context, req model.SignupRequest) error { return nil }

func (b *fakeBackend) Login(ctx context.Context, email, password string) (backend.Credentials, error) {
	return b.loginCreds, b.loginErr
}

func (b *fakeBackend) Logout(ctx context.Context, creds backend.Credentials) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loggedOut = append(b.loggedOut, creds)
	return nil
}

func (b *fakeBackend) Me(ctx context.Context, creds backend.Credentials) (model.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.user, b.meErr
}

func (b *fakeBackend) ForgotPassword(ctx context.Context, req model.ForgotPasswordRequest) error {
	return nil
}

func (b *fakeBackend) UploadResume(ctx context.Context, creds backend.Credentials, userID string, req model.UploadResumeRequest, file backend.ResumeFile) (model.UploadResumeResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploaded = append(b.uploaded, file)
	return b.uploadResult, nil
}

func (b *fakeBackend) UserInterviews(ctx context.Context, creds backend.Credentials, userID string) ([]model.Interview, error) {
	return b.interviews, b.interviewsErr
}

func (b *fakeBackend) InterviewDetails(ctx context.Context, creds backend.Credentials, interviewID string) (model.InterviewDetails, error) {
	return b.details, nil
}

func (b *fakeBackend) Questions(ctx context.Context, creds backend.Credentials, interviewID string) ([]string, error) {
	return b.questions, b.questionsErr
}

func (b *fakeBackend) StartSession(ctx context.Context, creds backend.Credentials, interviewID, userID string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempt++
	return b.attempt, nil
}

func (b *fakeBackend) Transcribe(ctx context.Context, creds backend.Credentials, wav []byte) (string, error) {
	return b.transcript, nil
}

func (b *fakeBackend) AnalyzeFeedback(ctx context.Context, creds backend.Credentials, req backend.AnalyzeRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.analyzeErr != nil {
		return b.analyzeErr
	}
	b.analyzed = append(b.analyzed, req)
	b.analyzeCk = append(b.analyzeCk, creds.Cookie)
	return nil
}

func (b *fakeBackend) Feedback(ctx context.Context, creds backend.Credentials, interviewID, userID string) ([]model.AttemptFeedback, error) {
	return b.feedback, b.feedbackErr
}

func (b *fakeBackend) analyzedRequests() []backend.AnalyzeRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backend.AnalyzeRequest(nil), b.analyzed...)
}

// ─── Stores ─────────────────────────────────────────────────────────

type memSessions struct {
	mu   sync.Mutex
	data map[string]Session
}

func newMemSessions() *memSessions {
	return &memSessions{data: make(map[string]Session)}
}

func (m *memSessions) Save(ctx context.Context, s Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.TokenID] = s
	return nil
}

func (m *memSessions) Load(ctx context.Context, tokenID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[tokenID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *memSessions) Delete(ctx context.Context, tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, tokenID)
	return nil
}

// Session makes memSessions usable as the flow's SessionSource.
func (m *memSessions) Session(ctx context.Context, tokenID string) (Session, error) {
	return m.Load(ctx, tokenID)
}

type memSnapshots struct {
	mu      sync.Mutex
	snaps   map[string]FlowSnapshot
	loadErr error
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{snaps: make(map[string]FlowSnapshot)}
}

func (m *memSnapshots) SaveSnapshot(ctx context.Context, userID string, snap FlowSnapshot, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[flowKey(userID, snap.InterviewID)] = snap
	return nil
}

func (m *memSnapshots) LoadSnapshot(ctx context.Context, userID, interviewID string) (FlowSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return FlowSnapshot{}, m.loadErr
	}
	snap, ok := m.snaps[flowKey(userID, interviewID)]
	if !ok {
		return FlowSnapshot{}, ErrFlowNotStarted
	}
	return snap, nil
}

func (m *memSnapshots) DeleteSnapshot(ctx context.Context, userID, interviewID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, flowKey(userID, interviewID))
	m.loadErr = nil
	return nil
}

func (m *memSnapshots) get(userID, interviewID string) (FlowSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[flowKey(userID, interviewID)]
	return snap, ok
}

type memJournal struct {
	mu   sync.Mutex
	subs []model.Submission
}

func (j *memJournal) Enqueue(ctx context.Context, sub model.Submission) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.subs = append(j.subs, sub)
	return nil
}

func (j *memJournal) LatestAttempt(ctx context.Context, userID, interviewID string) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	latest := 0
	for _, s := range j.subs {
		if s.UserID == userID && s.InterviewID == interviewID && s.AttemptNumber > latest {
			latest = s.AttemptNumber
		}
	}
	if latest == 0 {
		return 0, repository.ErrNoAttempt
	}
	return latest, nil
}

func (j *memJournal) ListByAttempt(ctx context.Context, userID, interviewID string, attempt int) ([]model.Submission, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []model.Submission
	for _, s := range j.subs {
		if s.UserID == userID && s.InterviewID == interviewID && s.AttemptNumber == attempt {
			out = append(out, s)
		}
	}
	return out, nil
}

func (j *memJournal) entries() []model.Submission {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]model.Submission(nil), j.subs...)
}

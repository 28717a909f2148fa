// Package backend is the client for the interview backend: accounts, resume
// driven interview generation, transcription and answer feedback.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mockprep/coach-gateway/internal/model"
)

// maxErrorBody bounds how much of a failed response is read for its detail.
const maxErrorBody = 64 << 10

// Credentials is the backend session of one user: the Cookie header value the
// backend set at login.
type Credentials struct {
	Cookie string
}

// Client talks to the backend over its REST API. Requests without a context
// deadline get the client's default timeout.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	log     zerolog.Logger
}

func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{},
		log:     log.With().Str("component", "backend").Logger(),
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Auth
// ────────────────────────────────────────────────────────────────────────────

func (c *Client) Signup(ctx context.Context, req model.SignupRequest) error {
	return c.postJSON(ctx, Credentials{}, "/auth/signup", req, nil)
}

// Login exchanges email and password for the backend's session cookie. The
// backend answers bad credentials with 200 and an "error" field.
func (c *Client) Login(ctx context.Context, email, password string) (Credentials, error) {
	body, err := json.Marshal(model.LoginRequest{Email: email, Password: password})
	if err != nil {
		return Credentials{}, err
	}
	var out struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	resp, err := c.do(ctx, Credentials{}, http.MethodPost, "/auth/login", bytes.NewReader(body), "application/json", &out)
	if err != nil {
		return Credentials{}, err
	}
	if out.Error != "" {
		return Credentials{}, ErrInvalidCredentials
	}

	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return Credentials{}, ErrInvalidCredentials
	}
	parts := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		if ck.Value == "" || ck.MaxAge < 0 {
			continue
		}
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	if len(parts) == 0 {
		return Credentials{}, ErrInvalidCredentials
	}
	return Credentials{Cookie: strings.Join(parts, "; ")}, nil
}

func (c *Client) Logout(ctx context.Context, creds Credentials) error {
	return c.postJSON(ctx, creds, "/auth/logout", struct{}{}, nil)
}

// Me returns the user the credentials belong to.
func (c *Client) Me(ctx context.Context, creds Credentials) (model.User, error) {
	if creds.Cookie == "" {
		return model.User{}, ErrUnauthenticated
	}
	var user model.User
	if err := c.get(ctx, creds, "/auth/me", nil, &user); err != nil {
		return model.User{}, err
	}
	if user.UserID == "" {
		return model.User{}, ErrUnauthenticated
	}
	return user, nil
}

func (c *Client) ForgotPassword(ctx context.Context, req model.ForgotPasswordRequest) error {
	return c.postJSON(ctx, Credentials{}, "/auth/forgot-password", req, nil)
}

// ────────────────────────────────────────────────────────────────────────────
// Interviews
// ────────────────────────────────────────────────────────────────────────────

// ResumeFile is the uploaded resume.
type ResumeFile struct {
	Name    string
	Content io.Reader
}

func (c *Client) UploadResume(ctx context.Context, creds Credentials, userID string, req model.UploadResumeRequest, file ResumeFile) (model.UploadResumeResult, error) {
	form := newMultipart()
	form.field("user_id", userID)
	form.field("position", req.Position)
	form.field("job_description", req.JobDescription)
	form.field("interview_type", string(req.InterviewType))
	form.field("difficulty_level", string(req.DifficultyLevel))
	form.file("file", file.Name, file.Content)

	var out model.UploadResumeResult
	if err := c.postMultipart(ctx, creds, "/interview/upload_resume", form, &out); err != nil {
		return model.UploadResumeResult{}, err
	}
	return out, nil
}

// UserInterviews lists the user's interviews. The backend answers 404 when
// there are none.
func (c *Client) UserInterviews(ctx context.Context, creds Credentials, userID string) ([]model.Interview, error) {
	var out struct {
		Interviews []model.Interview `json:"interviews"`
	}
	if err := c.get(ctx, creds, "/interview/user_interviews", url.Values{"user_id": {userID}}, &out); err != nil {
		return nil, err
	}
	return out.Interviews, nil
}

func (c *Client) InterviewDetails(ctx context.Context, creds Credentials, interviewID string) (model.InterviewDetails, error) {
	var out model.InterviewDetails
	if err := c.get(ctx, creds, "/interview/get_interview_details/"+url.PathEscape(interviewID), nil, &out); err != nil {
		return model.InterviewDetails{}, err
	}
	return out, nil
}

// Questions returns the interview's questions in order.
func (c *Client) Questions(ctx context.Context, creds Credentials, interviewID string) ([]string, error) {
	var out struct {
		Questions []string `json:"questions"`
	}
	if err := c.get(ctx, creds, "/interview/get_questions/"+url.PathEscape(interviewID), nil, &out); err != nil {
		return nil, err
	}
	return out.Questions, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Attempts, transcription and feedback
// ────────────────────────────────────────────────────────────────────────────

// StartSession opens a new attempt and returns its number.
func (c *Client) StartSession(ctx context.Context, creds Credentials, interviewID, userID string) (int, error) {
	form := url.Values{"interview_id": {interviewID}, "user_id": {userID}}
	var out struct {
		Message       string `json:"message"`
		AttemptNumber int    `json:"attempt_number"`
	}
	_, err := c.do(ctx, creds, http.MethodPost, "/feedback/start_interview_session/",
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", &out)
	if err != nil {
		return 0, err
	}
	return out.AttemptNumber, nil
}

// Transcribe sends a WAV clip for speech to text.
func (c *Client) Transcribe(ctx context.Context, creds Credentials, wav []byte) (string, error) {
	form := newMultipart()
	form.file("audio", "answer.wav", bytes.NewReader(wav))

	var out struct {
		TranscribedText string `json:"transcribed_text"`
	}
	if err := c.postMultipart(ctx, creds, "/audio/process_audio/", form, &out); err != nil {
		return "", err
	}
	return out.TranscribedText, nil
}

// AnalyzeRequest is one answer sent for review.
type AnalyzeRequest struct {
	InterviewID     string
	QuestionIndex   int
	AnswerText      string
	UserID          string
	DurationSeconds int
	// Audio is attached when non-empty.
	Audio []byte
	// Transcript is sent only when non-empty.
	Transcript string
}

func (c *Client) AnalyzeFeedback(ctx context.Context, creds Credentials, req AnalyzeRequest) error {
	form := newMultipart()
	form.field("interview_id", req.InterviewID)
	form.field("question_index", strconv.Itoa(req.QuestionIndex))
	form.field("answer_text", req.AnswerText)
	form.field("user_id", req.UserID)
	form.field("duration", strconv.Itoa(req.DurationSeconds))
	if len(req.Audio) > 0 {
		form.file("audio", fmt.Sprintf("answer%d.wav", req.QuestionIndex), bytes.NewReader(req.Audio))
	}
	if req.Transcript != "" {
		form.field("transcription_text", req.Transcript)
	}
	return c.postMultipart(ctx, creds, "/feedback/analyze-feedback/", form, nil)
}

// Feedback returns every attempt's feedback for the interview.
func (c *Client) Feedback(ctx context.Context, creds Credentials, interviewID, userID string) ([]model.AttemptFeedback, error) {
	var out struct {
		Feedback []model.AttemptFeedback `json:"feedback"`
	}
	if err := c.get(ctx, creds, "/feedback/feedback/"+url.PathEscape(interviewID), url.Values{"user_id": {userID}}, &out); err != nil {
		return nil, err
	}
	return out.Feedback, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Transport
// ────────────────────────────────────────────────────────────────────────────

func (c *Client) get(ctx context.Context, creds Credentials, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	_, err := c.do(ctx, creds, http.MethodGet, path, nil, "", out)
	return err
}

func (c *Client) postJSON(ctx context.Context, creds Credentials, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, creds, http.MethodPost, path, bytes.NewReader(body), "application/json", out)
	return err
}

func (c *Client) postMultipart(ctx context.Context, creds Credentials, path string, form *multipartBody, out any) error {
	body, contentType, err := form.close()
	if err != nil {
		return err
	}
	_, err = c.do(ctx, creds, http.MethodPost, path, body, contentType, out)
	return err
}

func (c *Client) do(ctx context.Context, creds Credentials, method, path string, body io.Reader, contentType string, out any) (*http.Response, error) {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if creds.Cookie != "" {
		req.Header.Set("Cookie", creds.Cookie)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Backend request")

	if resp.StatusCode >= 300 {
		return resp, statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return resp, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := parseDetail(body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthenticated, detail)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, detail)
	default:
		return &APIError{Status: resp.StatusCode, Detail: detail}
	}
}

// multipartBody builds a multipart form in memory. The first error sticks.
type multipartBody struct {
	buf bytes.Buffer
	w   *multipart.Writer
	err error
}

func newMultipart() *multipartBody {
	m := &multipartBody{}
	m.w = multipart.NewWriter(&m.buf)
	return m
}

func (m *multipartBody) field(name, value string) {
	if m.err != nil {
		return
	}
	m.err = m.w.WriteField(name, value)
}

func (m *multipartBody) file(field, filename string, r io.Reader) {
	if m.err != nil {
		return
	}
	part, err := m.w.CreateFormFile(field, filename)
	if err != nil {
		m.err = err
		return
	}
	_, m.err = io.Copy(part, r)
}

func (m *multipartBody) close() (io.Reader, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	if err := m.w.Close(); err != nil {
		return nil, "", err
	}
	return &m.buf, m.w.FormDataContentType(), nil
}

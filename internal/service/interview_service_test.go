package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockprep/coach-gateway/internal/backend"
	"github.com/mockprep/coach-gateway/internal/model"
)

var testSession = Session{TokenID: "tok-1", UserID: "u1", Username: "ada", Cookie: "authToken=abc"}

func TestInterviewService_ListTreatsNotFoundAsEmpty(t *testing.T) {
	b := &fakeBackend{interviewsErr: fmt.Errorf("%w: No interviews found for this user", backend.ErrNotFound)}
	svc := NewInterviewService(b, 1<<20, zerolog.Nop())

	got, err := svc.List(context.Background(), testSession)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestInterviewService_Overview(t *testing.T) {
	b := &fakeBackend{
		details:   model.InterviewDetails{InterviewID: "iv-1", Position: "Backend Engineer"},
		questions: []string{"Q1: Explain **goroutines**.", "Q2: Why Go?"},
	}
	svc := NewInterviewService(b, 1<<20, zerolog.Nop())

	ov, err := svc.Overview(context.Background(), testSession, "iv-1")
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", ov.Interview.Position)
	require.Len(t, ov.Questions, 2)
	assert.Equal(t, "Explain goroutines.", ov.Questions[0].Text)
	assert.Contains(t, ov.Questions[0].HTML, "<strong>goroutines</strong>")
	assert.Equal(t, 1, ov.Questions[1].Index)
}

func TestInterviewService_OverviewNotFound(t *testing.T) {
	b := &fakeBackend{questionsErr: fmt.Errorf("%w: Interview or questions not found", backend.ErrNotFound)}
	svc := NewInterviewService(b, 1<<20, zerolog.Nop())

	_, err := svc.Overview(context.Background(), testSession, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInterviewService_UploadResume(t *testing.T) {
	req := model.UploadResumeRequest{
		Position: "Backend Engineer", JobDescription: "Go services",
		InterviewType: model.InterviewTypeTechnical, DifficultyLevel: model.DifficultyBasic,
	}

	tests := []struct {
		name    string
		upload  ResumeUpload
		wantErr error
	}{
		{name: "pdf", upload: ResumeUpload{Filename: "cv.pdf", Size: 10}},
		{name: "docx upper case", upload: ResumeUpload{Filename: "CV.DOCX", Size: 10}},
		{name: "text file", upload: ResumeUpload{Filename: "cv.txt", Size: 10}, wantErr: ErrUnsupportedFileType},
		{name: "no extension", upload: ResumeUpload{Filename: "resume", Size: 10}, wantErr: ErrUnsupportedFileType},
		{name: "too large", upload: ResumeUpload{Filename: "cv.pdf", Size: 2 << 20}, wantErr: ErrFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{uploadResult: model.UploadResumeResult{InterviewID: "iv-9"}}
			svc := NewInterviewService(b, 1<<20, zerolog.Nop())
			tt.upload.Content = strings.NewReader("resume bytes")

			res, err := svc.UploadResume(context.Background(), testSession, req, tt.upload)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, b.uploaded)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "iv-9", res.InterviewID)
			require.Len(t, b.uploaded, 1)
			assert.Equal(t, tt.upload.Filename, b.uploaded[0].Name)
		})
	}
}

func TestInterviewService_StartAttempt(t *testing.T) {
	b := &fakeBackend{}
	svc := NewInterviewService(b, 1024, zerolog.Nop())

	first, err := svc.StartAttempt(context.Background(), testSession, "iv-1")
	require.NoError(t, err)
	second, err := svc.StartAttempt(context.Background(), testSession, "iv-1")
	require.NoError(t, err)

	assert.Equal(t, model.Attempt{InterviewID: "iv-1", AttemptNumber: 1}, first)
	assert.Equal(t, 2, second.AttemptNumber)
}

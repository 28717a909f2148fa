package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mockprep/coach-gateway/internal/backend"
	"github.com/mockprep/coach-gateway/internal/capture"
	"github.com/mockprep/coach-gateway/internal/response"
	"github.com/mockprep/coach-gateway/internal/service"
)

// apiError is a failure resolved to its HTTP status and error code. Message
// is the backend's own text when it sent one.
type apiError struct {
	status  int
	code    response.ErrCode
	message string
}

var flowErrors = []struct {
	err    error
	status int
	code   response.ErrCode
}{
	{capture.ErrNoQuestions, http.StatusUnprocessableEntity, response.ErrNoQuestions},
	{capture.ErrOutOfRange, http.StatusBadRequest, response.ErrQuestionOutOfRange},
	{capture.ErrLocked, http.StatusConflict, response.ErrQuestionLocked},
	{capture.ErrRecordingActive, http.StatusConflict, response.ErrRecordingActive},
	{capture.ErrNotRecording, http.StatusConflict, response.ErrNotRecording},
	{capture.ErrAlreadyAnswered, http.StatusConflict, response.ErrAlreadyAnswered},
	{capture.ErrNotAnswered, http.StatusConflict, response.ErrQuestionUnanswered},
	{capture.ErrNoNextQuestion, http.StatusConflict, response.ErrNoNextQuestion},
	{capture.ErrNotLastQuestion, http.StatusConflict, response.ErrNotLastQuestion},
	{capture.ErrSubmitInProgress, http.StatusConflict, response.ErrSubmitInProgress},
	{capture.ErrPermissionDenied, http.StatusConflict, response.ErrMicrophoneDenied},
	{capture.ErrRecordingFailed, http.StatusUnprocessableEntity, response.ErrRecordingFailed},
	{capture.ErrClosed, http.StatusNotFound, response.ErrFlowNotStarted},
}

// classify maps service, flow and backend errors to a response.
func classify(err error) apiError {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, backend.ErrInvalidCredentials):
		return apiError{status: http.StatusUnauthorized, code: response.ErrInvalidCredentials}
	case errors.Is(err, capture.ErrUnauthenticated),
		errors.Is(err, backend.ErrUnauthenticated),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSessionExpired):
		return apiError{status: http.StatusUnauthorized, code: response.ErrSessionInvalidated}
	case errors.Is(err, service.ErrFlowNotStarted):
		return apiError{status: http.StatusNotFound, code: response.ErrFlowNotStarted}
	case errors.Is(err, service.ErrNoQuestions):
		return apiError{status: http.StatusUnprocessableEntity, code: response.ErrNoQuestions}
	case errors.Is(err, service.ErrNotFound), errors.Is(err, backend.ErrNotFound):
		return apiError{status: http.StatusNotFound, code: response.ErrNotFound}
	case errors.Is(err, service.ErrUnsupportedFileType):
		return apiError{status: http.StatusBadRequest, code: response.ErrUnsupportedFile}
	case errors.Is(err, service.ErrFileTooLarge):
		return apiError{status: http.StatusRequestEntityTooLarge, code: response.ErrFileTooLarge}
	}

	for _, fe := range flowErrors {
		if errors.Is(err, fe.err) {
			return apiError{status: fe.status, code: fe.code}
		}
	}

	var submitErr *capture.SubmitError
	if errors.As(err, &submitErr) {
		return apiError{status: http.StatusBadGateway, code: response.ErrSubmitFailed, message: backend.Detail(err)}
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return apiError{status: apiErr.Status, code: response.ErrInvalidPayload, message: apiErr.Detail}
	}
	if errors.Is(err, backend.ErrUnavailable) || apiErr != nil {
		return apiError{status: http.StatusBadGateway, code: response.ErrBackendUnavailable}
	}
	return apiError{status: http.StatusInternalServerError, code: response.ErrInternal}
}

// fail writes err as an error response.
func fail(c *gin.Context, err error) {
	e := classify(err)
	if e.status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.FailWithMessage(c, e.status, e.code, e.message)
}

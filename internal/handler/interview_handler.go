package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mockprep/coach-gateway/internal/middleware"
	"github.com/mockprep/coach-gateway/internal/model"
	"github.com/mockprep/coach-gateway/internal/response"
	"github.com/mockprep/coach-gateway/internal/service"
	"github.com/mockprep/coach-gateway/internal/validator"
)

// InterviewHandler handles the interview list, detail and history endpoints.
type InterviewHandler struct {
	interviewService *service.InterviewService
	flowService      *service.FlowService
}

// NewInterviewHandler creates a new InterviewHandler.
func NewInterviewHandler(interviewService *service.InterviewService, flowService *service.FlowService) *InterviewHandler {
	return &InterviewHandler{interviewService: interviewService, flowService: flowService}
}

// ListInterviews godoc
// GET /api/v1/interviews
// Lists the user's interviews. A user without interviews gets an empty list.
func (h *InterviewHandler) ListInterviews(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	interviews, err := h.interviewService.List(c.Request.Context(), sess)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"interviews": interviews})
}

// GetInterview godoc
// GET /api/v1/interviews/:id
// Returns the interview with its questions rendered for display.
func (h *InterviewHandler) GetInterview(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	overview, err := h.interviewService.Overview(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, overview)
}

// StartAttempt godoc
// POST /api/v1/interviews/:id/attempts
// Opens a new attempt without starting an answer flow.
func (h *InterviewHandler) StartAttempt(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attempt, err := h.interviewService.StartAttempt(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, attempt)
}

// ListSubmissions godoc
// GET /api/v1/interviews/:id/submissions?attempt=N
// Returns the answers journaled for one attempt, the latest by default.
func (h *InterviewHandler) ListSubmissions(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var q model.AttemptQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	interviewID := c.Param("id")
	attempt, subs, err := h.flowService.Submissions(c.Request.Context(), sess, interviewID, q.Attempt)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, model.SubmissionHistory{
		InterviewID:   interviewID,
		AttemptNumber: attempt,
		Submissions:   subs,
	})
}

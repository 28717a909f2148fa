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

// FeedbackHandler serves the per-attempt answer reviews.
type FeedbackHandler struct {
	feedbackService *service.FeedbackService
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(feedbackService *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService}
}

// GetFeedback godoc
// GET /api/v1/interviews/:id/feedback?attempt=N
// Returns every attempt's feedback and the selected attempt, the latest by
// default. An interview without attempts yields an empty report.
func (h *FeedbackHandler) GetFeedback(c *gin.Context) {
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

	report, err := h.feedbackService.Report(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	attempts := make([]int, len(report.Attempts))
	for i, a := range report.Attempts {
		attempts[i] = a.AttemptNumber
	}

	var selected *model.AttemptFeedback
	if len(report.Attempts) > 0 {
		a, err := h.feedbackService.Attempt(report, q.Attempt)
		if err != nil {
			fail(c, err)
			return
		}
		selected = &a
	}

	response.Success(c, http.StatusOK, gin.H{
		"interview_id": report.InterviewID,
		"attempts":     attempts,
		"selected":     selected,
	})
}

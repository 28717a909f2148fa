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

// FlowHandler drives an answer flow over REST. Recording needs the
// microphone stream and is only available on the WebSocket.
type FlowHandler struct {
	authService *service.AuthService
	flowService *service.FlowService
}

// NewFlowHandler creates a new FlowHandler.
func NewFlowHandler(authService *service.AuthService, flowService *service.FlowService) *FlowHandler {
	return &FlowHandler{authService: authService, flowService: flowService}
}

// StartFlow godoc
// POST /api/v1/interviews/:id/flow
// Opens a new attempt and starts answering from the first question.
func (h *FlowHandler) StartFlow(c *gin.Context) {
	sess, ok := h.refreshedSession(c)
	if !ok {
		return
	}

	live, err := h.flowService.Start(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"flow": live.State()})
}

// GetFlow godoc
// GET /api/v1/interviews/:id/flow
// Returns the current flow, resuming it when the gateway no longer holds it.
func (h *FlowHandler) GetFlow(c *gin.Context) {
	sess, ok := h.refreshedSession(c)
	if !ok {
		return
	}

	live, err := h.flowService.Resume(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"flow": live.State()})
}

// SelectQuestion godoc
// PUT /api/v1/interviews/:id/flow/current
func (h *FlowHandler) SelectQuestion(c *gin.Context) {
	var req model.SelectQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.apply(c, func(live *service.LiveFlow) error {
		return live.SelectQuestion(*req.Index)
	})
}

// UpdateAnswer godoc
// PUT /api/v1/interviews/:id/flow/answer
// Replaces the typed text of the active question.
func (h *FlowHandler) UpdateAnswer(c *gin.Context) {
	var req model.TypedAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.apply(c, func(live *service.LiveFlow) error {
		return live.UpdateTyped(req.Text)
	})
}

// ResetAnswer godoc
// POST /api/v1/interviews/:id/flow/reset
func (h *FlowHandler) ResetAnswer(c *gin.Context) {
	var req model.ResetAnswerRequest
	if c.Request.ContentLength > 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}
	h.apply(c, func(live *service.LiveFlow) error {
		i := live.Current()
		if req.Index != nil {
			i = *req.Index
		}
		return live.ResetAnswer(i)
	})
}

// Advance godoc
// POST /api/v1/interviews/:id/flow/advance
// Submits the active answer and moves to the next question.
func (h *FlowHandler) Advance(c *gin.Context) {
	h.apply(c, func(live *service.LiveFlow) error {
		return live.Advance(c.Request.Context())
	})
}

// Finish godoc
// POST /api/v1/interviews/:id/flow/finish
// Submits the last answer and completes the attempt.
func (h *FlowHandler) Finish(c *gin.Context) {
	h.apply(c, func(live *service.LiveFlow) error {
		return live.Finish(c.Request.Context())
	})
}

// CloseFlow godoc
// DELETE /api/v1/interviews/:id/flow
// Releases the flow. Locked answers stay resumable.
func (h *FlowHandler) CloseFlow(c *gin.Context) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.flowService.Close(sess.UserID, c.Param("id")); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// apply resolves the user's flow, runs op on it and returns the new state.
func (h *FlowHandler) apply(c *gin.Context, op func(live *service.LiveFlow) error) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	live, err := h.flowService.Resume(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	if err := op(live); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"flow": live.State()})
}

// refreshedSession re-reads the user from the backend when a flow is opened,
// so a backend session that has ended is caught before any answer is taken.
func (h *FlowHandler) refreshedSession(c *gin.Context) (service.Session, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return service.Session{}, false
	}
	sess, err := h.authService.Refresh(c.Request.Context(), claims.ID)
	if err != nil {
		fail(c, err)
		return service.Session{}, false
	}
	return sess, true
}

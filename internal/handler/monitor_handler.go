package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mockprep/coach-gateway/internal/middleware"
	"github.com/mockprep/coach-gateway/internal/response"
	ws "github.com/mockprep/coach-gateway/internal/websocket"
)

const keepAliveInterval = 30 * time.Second

// StreamEvents godoc
// GET /api/v1/interviews/:id/flow/events
// Server-sent events for clients driving the flow over REST: the current
// state first, then every flow event until the flow closes or the client
// leaves.
func (h *FlowHandler) StreamEvents(c *gin.Context) {
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

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	events, unsubscribe := live.Subscribe()
	defer unsubscribe()

	c.SSEvent(string(ws.EventState), ws.StateResponse{Event: ws.EventState, State: live.State()})
	c.Writer.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-reqCtx.Done():
			return
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"type": "ping"})
			c.Writer.Flush()
		case e, ok := <-events:
			if !ok {
				c.SSEvent("closed", gin.H{"reason": "flow closed"})
				c.Writer.Flush()
				return
			}
			c.SSEvent(string(ws.EventFlow), ws.NewFlowEvent(e))
			c.Writer.Flush()
		}
	}
}

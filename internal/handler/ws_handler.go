package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mockprep/coach-gateway/internal/audio"
	"github.com/mockprep/coach-gateway/internal/capture"
	"github.com/mockprep/coach-gateway/internal/middleware"
	"github.com/mockprep/coach-gateway/internal/response"
	"github.com/mockprep/coach-gateway/internal/service"
	ws "github.com/mockprep/coach-gateway/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams an answer flow over a WebSocket: JSON actions and
// microphone PCM in, flow events and state out.
type WSHandler struct {
	flowService *service.FlowService
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(flowService *service.FlowService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		flowService: flowService,
		log:         log.With().Str("component", "ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// FlowStream godoc
// WS /ws/v1/interviews/:id/flow
// The connection grants the microphone while it is open: binary frames are
// little-endian PCM16 mono fed to the active recording.
func (h *WSHandler) FlowStream(c *gin.Context) {
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

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", sess.UserID).
		Str("interview_id", live.InterviewID()).
		Int("attempt", live.AttemptNumber()).
		Logger()
	wsLog.Info().Msg("Flow stream connected")

	live.Device.Attach()
	defer live.DetachStream()

	events, unsubscribe := live.Subscribe()
	defer unsubscribe()

	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.forwardEvents(ctx, conn, live, events)
	}()

	_ = conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: live.State()})

	s := &streamSession{conn: conn, live: live, log: wsLog, ctx: ctx, wg: &wg}
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch mt {
		case websocket.BinaryMessage:
			s.audio(data)
		case websocket.TextMessage:
			s.action(data)
		}
	}
}

// forwardEvents mirrors flow events to the client until the flow is closed
// or the connection ends. A closed flow ends the connection.
func (h *WSHandler) forwardEvents(ctx context.Context, conn *ws.Conn, live *service.LiveFlow, events <-chan capture.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				conn.CloseNormal("flow closed")
				return
			}
			if err := conn.WriteTyped(ws.NewFlowEvent(e)); err != nil {
				return
			}
			if e.Kind != capture.EventTick {
				_ = conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: live.State()})
			}
		}
	}
}

// streamSession handles the frames of one connection.
type streamSession struct {
	conn *ws.Conn
	live *service.LiveFlow
	log  zerolog.Logger
	ctx  context.Context
	wg   *sync.WaitGroup
}

func (s *streamSession) audio(frame []byte) {
	if err := s.live.Device.Write(frame); err != nil {
		if errors.Is(err, audio.ErrAudioTooLarge) {
			_ = s.conn.WriteError(ws.ActionStart, string(response.ErrFileTooLarge), "Recording exceeds the size limit.")
			return
		}
		s.log.Warn().Err(err).Msg("Audio frame rejected")
	}
}

func (s *streamSession) action(data []byte) {
	var req ws.Request
	if err := json.Unmarshal(data, &req); err != nil {
		_ = s.conn.WriteError("", string(response.ErrInvalidPayload), response.GetMessage(response.ErrInvalidPayload))
		return
	}

	switch req.Action {
	case ws.ActionPing:
		_ = s.conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
	case ws.ActionState:
		s.reply(req.Action, nil)
	case ws.ActionSelect:
		if req.Index == nil {
			s.invalid(req.Action)
			return
		}
		s.reply(req.Action, s.live.SelectQuestion(*req.Index))
	case ws.ActionType:
		s.reply(req.Action, s.live.UpdateTyped(req.Text))
	case ws.ActionStart:
		s.reply(req.Action, s.live.StartRecording(s.ctx))
	case ws.ActionStop:
		s.reply(req.Action, s.live.StopRecording())
	case ws.ActionReset:
		i := s.live.Current()
		if req.Index != nil {
			i = *req.Index
		}
		s.reply(req.Action, s.live.ResetAnswer(i))
	case ws.ActionAdvance, ws.ActionFinish:
		// Submission runs off the read loop; the flow rejects a second one.
		s.wg.Add(1)
		go func(action ws.Action) {
			defer s.wg.Done()
			var err error
			if action == ws.ActionAdvance {
				err = s.live.Advance(s.ctx)
			} else {
				err = s.live.Finish(s.ctx)
			}
			s.reply(action, err)
		}(req.Action)
	default:
		s.log.Warn().Str("action", string(req.Action)).Msg("Unknown action")
		_ = s.conn.WriteError(req.Action, string(response.ErrInvalidPayload), "unknown action: "+string(req.Action))
	}
}

// reply sends the state after an accepted action or the error of a rejected one.
func (s *streamSession) reply(action ws.Action, err error) {
	if err != nil {
		e := classify(err)
		msg := e.message
		if msg == "" {
			msg = response.GetMessage(e.code)
		}
		_ = s.conn.WriteError(action, string(e.code), msg)
		return
	}
	_ = s.conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: s.live.State()})
}

func (s *streamSession) invalid(action ws.Action) {
	_ = s.conn.WriteError(action, string(response.ErrValidation), response.GetMessage(response.ErrValidation))
}

package websocket

import "github.com/mockprep/coach-gateway/internal/capture"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect  Action = "select"
	ActionType    Action = "type"
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionReset   Action = "reset"
	ActionAdvance Action = "advance"
	ActionFinish  Action = "finish"
	ActionState   Action = "state"
	ActionPing    Action = "ping"
)

// Request is a JSON text frame sent by the client. Index is used by select
// and reset, Text by type. Binary frames carry microphone PCM instead.
type Request struct {
	Action Action `json:"action"`
	Index  *int   `json:"index,omitempty"`
	Text   string `json:"text,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError Event = "error"
	EventState Event = "state"
	EventFlow  Event = "flow"
	EventPong  Event = "pong"
)

// ErrorResponse reports a rejected action. Code matches the REST error codes.
type ErrorResponse struct {
	Event   Event  `json:"event"`
	Action  Action `json:"action,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StateResponse carries the full flow state, sent on connect and after
// every accepted action.
type StateResponse struct {
	Event Event         `json:"event"`
	State capture.State `json:"state"`
}

// FlowEvent mirrors one capture.Event.
type FlowEvent struct {
	Event     Event             `json:"event"`
	Kind      capture.EventKind `json:"kind"`
	Index     int               `json:"index"`
	Remaining int               `json:"remaining_seconds,omitempty"`
	Auto      bool              `json:"auto,omitempty"`
	Text      string            `json:"text,omitempty"`
	Error     string            `json:"error,omitempty"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

// NewFlowEvent converts a flow event for the wire.
func NewFlowEvent(e capture.Event) FlowEvent {
	out := FlowEvent{
		Event:     EventFlow,
		Kind:      e.Kind,
		Index:     e.Index,
		Remaining: e.Remaining,
		Auto:      e.Auto,
		Text:      e.Text,
	}
	if e.Err != nil {
		out.Error = e.Err.Error()
	}
	return out
}

package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// Conn serialises writes to a gorilla connection, which allows only one
// concurrent writer.
type Conn struct {
	*websocket.Conn
	mu sync.Mutex
}

func NewConn(c *websocket.Conn) *Conn {
	return &Conn{Conn: c}
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func (c *Conn) WriteTyped(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func (c *Conn) WriteError(action Action, code, message string) error {
	return c.WriteTyped(ErrorResponse{
		Event:   EventError,
		Action:  action,
		Code:    code,
		Message: message,
	})
}

// ReadMessage reads the next frame with a read deadline.
func (c *Conn) ReadMessage() (int, []byte, error) {
	c.SetReadDeadline(time.Now().Add(readWait))
	return c.Conn.ReadMessage()
}

// CloseNormal sends a normal close frame with reason and closes the connection.
func (c *Conn) CloseNormal(reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = c.Close()
}

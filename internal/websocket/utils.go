package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// Deadlines for learner streams. Reads wait long enough to cover idle
// lessons; writes fail fast so a stuck client does not pin the forwarder.
const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// WriteTyped sends one typed payload. Callers serialize access to conn.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// ErrorMessage shapes an error payload for the stream.
func ErrorMessage(msg string) ErrorResponse {
	return ErrorResponse{Event: EventError, Error: msg}
}

// ReadJSON decodes the next message, bounding the wait.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(readWait))
	return conn.ReadJSON(v)
}

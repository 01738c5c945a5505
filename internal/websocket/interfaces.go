package websocket

import "time"

// Connection is the subset of *websocket.Conn the client pumps use. Tests
// substitute a MockConnection; production code wraps the gorilla connection
// with NewConnectionWrapper.
type Connection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error

	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)

	RemoteAddr() string
}

package shared

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketConnAdapter 实现了 net.Conn 接口，让 WebSocket 连接走与 TCP 相同的 echo 路径。
// Binary messages are concatenated into one byte stream; message boundaries
// are not visible to the reader.
type WebSocketConnAdapter struct {
	*websocket.Conn
	readBuffer *ThreadSafeBuffer
	writeMu    sync.Mutex
	closeOnce  sync.Once
}

// NewWebSocketConnAdapter wraps an established WebSocket connection.
func NewWebSocketConnAdapter(ws *websocket.Conn) net.Conn {
	return &WebSocketConnAdapter{
		Conn:       ws,
		readBuffer: NewThreadSafeBuffer(),
	}
}

// Read returns buffered bytes first, then blocks for the next message. A
// normal close frame from the peer is reported as io.EOF.
func (wsc *WebSocketConnAdapter) Read(b []byte) (int, error) {
	for wsc.readBuffer.Len() == 0 {
		msgType, msg, err := wsc.Conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			}
			return 0, err
		}
		if msgType != websocket.BinaryMessage {
			return 0, fmt.Errorf("received non-binary message")
		}
		if _, err := wsc.readBuffer.Write(msg); err != nil {
			return 0, err
		}
	}
	return wsc.readBuffer.Read(b)
}

// Write sends b as a single binary message.
func (wsc *WebSocketConnAdapter) Write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()
	if err := wsc.Conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// CloseWrite sends a normal close frame; the peer sees io.EOF on its next read
// while this side can keep reading until the peer answers the close.
func (wsc *WebSocketConnAdapter) CloseWrite() error {
	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	err := wsc.Conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func (wsc *WebSocketConnAdapter) Close() error {
	var err error
	wsc.closeOnce.Do(func() { err = wsc.Conn.Close() })
	return err
}
func (wsc *WebSocketConnAdapter) LocalAddr() net.Addr  { return wsc.Conn.LocalAddr() }
func (wsc *WebSocketConnAdapter) RemoteAddr() net.Addr { return wsc.Conn.RemoteAddr() }
func (wsc *WebSocketConnAdapter) SetDeadline(t time.Time) error {
	_ = wsc.Conn.SetReadDeadline(t)
	return wsc.Conn.SetWriteDeadline(t)
}
func (wsc *WebSocketConnAdapter) SetReadDeadline(t time.Time) error {
	return wsc.Conn.SetReadDeadline(t)
}
func (wsc *WebSocketConnAdapter) SetWriteDeadline(t time.Time) error {
	return wsc.Conn.SetWriteDeadline(t)
}

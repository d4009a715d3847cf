package echo

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"

	"echo_nexus/internal/shared"
)

// DialWS 建立一个 WebSocket 连接，并把它包装成 net.Conn。
func DialWS(ctx context.Context, urlStr string, timeout time.Duration) (net.Conn, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
	}

	wsConn, _, err := dialer.DialContext(ctx, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return shared.NewWebSocketConnAdapter(wsConn), nil
}

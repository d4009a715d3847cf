package echo

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"echo_nexus/internal/shared/logger"
	"echo_nexus/internal/shared/types"
)

// Client is one connection to an echo server. Payloads are opaque bytes and
// the stream carries no framing, so a Receive may return part of one Send or
// the tail of several.
type Client struct {
	conn      net.Conn
	addr      string
	closeOnce sync.Once
	closeErr  error
	log       zerolog.Logger
}

// Dial connects to the server described by cfg over TCP or, when
// cfg.Transport is "ws", over a WebSocket. Failures are *ConnectionError.
func Dial(ctx context.Context, cfg types.ClientConf) (*Client, error) {
	if cfg.Transport == "ws" {
		addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.WSPort))
		conn, err := DialWS(ctx, "ws://"+addr+cfg.WSPath, cfg.DialTimeout())
		if err != nil {
			return nil, &ConnectionError{Addr: addr, Err: err}
		}
		return NewClient(conn), nil
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer := net.Dialer{Timeout: cfg.DialTimeout()}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}
	return NewClient(conn), nil
}

// NewClient wraps an already established connection.
func NewClient(conn net.Conn) *Client {
	addr := conn.RemoteAddr().String()
	c := &Client{
		conn: conn,
		addr: addr,
		log:  logger.WithComponent("echo-client").With().Str("remote_addr", addr).Logger(),
	}
	c.log.Debug().Msg("Connected")
	return c
}

// Send writes all of payload, looping over short writes.
func (c *Client) Send(payload []byte) error {
	if err := writeFull(c.conn, payload); err != nil {
		return &IOError{Op: "write", Err: err}
	}
	c.log.Debug().Int("bytes", len(payload)).Msg("Sent payload")
	return nil
}

// Receive performs one read of at most maxBytes. It returns an empty, non-nil
// slice and a nil error when the server has closed the connection.
func (c *Client) Receive(maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		return []byte{}, nil
	}
	buf := make([]byte, maxBytes)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			return buf[:n], nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return []byte{}, nil
			}
			return nil, &IOError{Op: "read", Err: err}
		}
	}
}

// ReceiveFull reads in chunks of at most chunkSize until n bytes have
// arrived or the server closes the connection, whichever comes first.
func (c *Client) ReceiveFull(n, chunkSize int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		want := min(chunkSize, n-len(out))
		chunk, err := c.Receive(want)
		if err != nil {
			return out, err
		}
		if len(chunk) == 0 {
			break
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// CloseWrite signals end of input to the server while keeping the read side
// open, so that pending echoes can still be received.
func (c *Client) CloseWrite() error {
	if cw, ok := c.conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return nil
}

// Close releases the connection. Calls after the first return the first
// call's result.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
		c.log.Debug().Msg("Connection closed")
	})
	return c.closeErr
}

// RemoteAddr is the server address this client is connected to.
func (c *Client) RemoteAddr() string {
	return c.addr
}

// Exchange performs one round trip: connect, send payload, half-close, read
// back len(payload) bytes and close.
func Exchange(ctx context.Context, cfg types.ClientConf, payload []byte) ([]byte, error) {
	c, err := Dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	}
	if err := c.Send(payload); err != nil {
		return nil, err
	}
	if err := c.CloseWrite(); err != nil {
		return nil, &IOError{Op: "write", Err: err}
	}
	chunkSize := cfg.ReadChunkSize
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	return c.ReceiveFull(len(payload), chunkSize)
}

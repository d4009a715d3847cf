package echo

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echo_nexus/internal/shared/types"
)

// shortWriteConn accepts at most limit bytes per Write call.
type shortWriteConn struct {
	net.Conn
	limit   int
	written []byte
	calls   int
}

func (c *shortWriteConn) Write(b []byte) (int, error) {
	c.calls++
	n := min(len(b), c.limit)
	c.written = append(c.written, b[:n]...)
	return n, nil
}

func TestDial_RefusedIsConnectionError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	_, err = Dial(context.Background(), types.ClientConf{
		Host:           "127.0.0.1",
		Port:           port,
		DialTimeoutSec: 1,
		Transport:      "tcp",
	})
	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr), "expected *ConnectionError, got %v", err)
	assert.Equal(t, net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), connErr.Addr)
}

func TestClient_SendLoopsOverShortWrites(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	conn := &shortWriteConn{Conn: local, limit: 3}
	c := NewClient(conn)
	defer c.Close()

	require.NoError(t, c.Send([]byte("Hello, World!")))
	assert.Equal(t, "Hello, World!", string(conn.written))
	assert.Equal(t, 5, conn.calls)
}

func TestClient_SendWithoutProgressIsIOError(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	c := NewClient(&shortWriteConn{Conn: local, limit: 0})
	defer c.Close()

	err := c.Send([]byte("x"))
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "write", ioErr.Op)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestClient_ReceiveIsBounded(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	c := NewClient(local)
	defer c.Close()

	go func() {
		remote.Write([]byte("0123456789"))
	}()

	got, err := c.Receive(4)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123"), got)

	rest, err := c.ReceiveFull(6, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("456789"), rest)
}

func TestClient_ReceiveOnPeerCloseIsEmpty(t *testing.T) {
	local, remote := net.Pipe()
	c := NewClient(local)
	defer c.Close()
	require.NoError(t, remote.Close())

	got, err := c.Receive(1024)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestClient_ReceiveFullStopsAtPeerClose(t *testing.T) {
	local, remote := net.Pipe()
	c := NewClient(local)
	defer c.Close()

	go func() {
		remote.Write([]byte("abc"))
		remote.Close()
	}()

	got, err := c.ReceiveFull(10, 1024)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestClient_ReceiveAfterCloseIsIOError(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	c := NewClient(local)
	require.NoError(t, c.Close())

	_, err := c.Receive(8)
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "read", ioErr.Op)
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	c := NewClient(local)

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

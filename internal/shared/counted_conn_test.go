package shared

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echo_nexus/internal/shared/types"
)

func TestCountedConn(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	var counters types.Counters
	conn := NewCountedConn(local, &counters)

	go func() {
		remote.Write([]byte("hello"))
		io.Copy(io.Discard, remote)
	}()

	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = conn.Write([]byte("hello, again"))
	require.NoError(t, err)

	stats := counters.Snapshot()
	assert.Equal(t, uint64(5), stats.Downlink)
	assert.Equal(t, uint64(12), stats.Uplink)

	// net.Pipe has no half-close, so CloseWrite falls back to Close.
	require.NoError(t, conn.CloseWrite())
	_, err = conn.Write([]byte("x"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

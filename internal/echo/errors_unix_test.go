//go:build unix

package echo

import (
	"context"
	"errors"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"echo_nexus/internal/shared/types"
)

func TestClassifyListenErr_PermissionIsAlsoBindError(t *testing.T) {
	err := classifyListenErr("127.0.0.1:80", os.NewSyscallError("bind", unix.EACCES))

	var permErr *PermissionError
	require.True(t, errors.As(err, &permErr), "expected *PermissionError, got %T", err)
	assert.Equal(t, "127.0.0.1:80", permErr.Addr)

	var bindErr *BindError
	require.True(t, errors.As(err, &bindErr), "PermissionError should match *BindError")
	assert.Equal(t, "127.0.0.1:80", bindErr.Addr)
	assert.False(t, bindErr.InUse)

	assert.ErrorIs(t, err, unix.EACCES)
}

func TestClassifyListenErr_AddrInUse(t *testing.T) {
	err := classifyListenErr("127.0.0.1:9", os.NewSyscallError("bind", unix.EADDRINUSE))

	var bindErr *BindError
	require.True(t, errors.As(err, &bindErr))
	assert.True(t, bindErr.InUse)

	var permErr *PermissionError
	assert.False(t, errors.As(err, &permErr))
}

func TestIsTransientAcceptErr(t *testing.T) {
	acceptErr := func(errno error) error {
		return &net.OpError{Op: "accept", Net: "tcp", Err: os.NewSyscallError("accept", errno)}
	}

	for _, errno := range []error{unix.EMFILE, unix.ENFILE, unix.ECONNABORTED} {
		assert.True(t, isTransientAcceptErr(acceptErr(errno)), "%v should be retried", errno)
	}
	assert.True(t, isTransientAcceptErr(&net.OpError{Op: "accept", Err: os.ErrDeadlineExceeded}))

	assert.False(t, isTransientAcceptErr(acceptErr(unix.EBADF)))
	assert.False(t, isTransientAcceptErr(acceptErr(unix.EINVAL)))
}

// scriptedListener returns its errs in order, then hands out conns, then
// blocks until closed.
type scriptedListener struct {
	errs  []error
	conns []net.Conn

	mu        sync.Mutex
	closed    chan struct{}
	closeOnce sync.Once
}

func newScriptedListener(errs []error, conns ...net.Conn) *scriptedListener {
	return &scriptedListener{errs: errs, conns: conns, closed: make(chan struct{})}
}

func (l *scriptedListener) Accept() (net.Conn, error) {
	l.mu.Lock()
	if len(l.errs) > 0 {
		err := l.errs[0]
		l.errs = l.errs[1:]
		l.mu.Unlock()
		return nil, err
	}
	if len(l.conns) > 0 {
		conn := l.conns[0]
		l.conns = l.conns[1:]
		l.mu.Unlock()
		return conn, nil
	}
	l.mu.Unlock()
	<-l.closed
	return nil, net.ErrClosed
}

func (l *scriptedListener) Close() error {
	l.closeOnce.Do(func() { close(l.closed) })
	return nil
}

func (l *scriptedListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 7}
}

func TestServer_ServeReturnsPermanentAcceptError(t *testing.T) {
	fatal := &net.OpError{Op: "accept", Net: "tcp", Err: os.NewSyscallError("accept", unix.EBADF)}
	srv := NewServer(testServerConf())
	srv.listener = newScriptedListener([]error{fatal})

	served := make(chan error, 1)
	go func() { served <- srv.Serve(context.Background()) }()

	select {
	case err := <-served:
		assert.ErrorIs(t, err, unix.EBADF)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve kept retrying a permanent accept error")
	}
	assert.Equal(t, types.StateStopped, srv.State())
}

func TestServer_ServeRetriesDescriptorExhaustion(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	exhausted := &net.OpError{Op: "accept", Net: "tcp", Err: os.NewSyscallError("accept", unix.EMFILE)}

	srv := NewServer(testServerConf())
	srv.listener = newScriptedListener([]error{exhausted, exhausted}, local)

	served := make(chan error, 1)
	go func() { served <- srv.Serve(context.Background()) }()

	_, err := remote.Write([]byte("hi"))
	require.NoError(t, err)
	buf := make([]byte, 2)
	require.NoError(t, remote.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := remote.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(buf[:n]))

	require.NoError(t, remote.Close())
	require.NoError(t, srv.Close())
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}

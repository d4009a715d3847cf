package echo

import (
	"errors"
	"fmt"
)

// ErrNotListening is returned by Serve when Start has not bound a listener.
var ErrNotListening = errors.New("echo server is not listening")

// BindError reports a listener that could not be created: the address is
// invalid, unresolvable or already in use.
type BindError struct {
	Addr  string
	InUse bool
	Err   error
}

func (e *BindError) Error() string {
	if e.InUse {
		return fmt.Sprintf("bind %s: address already in use: %v", e.Addr, e.Err)
	}
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// PermissionError reports a bind refused for lack of privilege, typically a
// port below 1024. It is a BindError too: errors.As finds a *BindError in
// its chain.
type PermissionError struct {
	Addr string
	Err  error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("bind %s: permission denied: %v", e.Addr, e.Err)
}

func (e *PermissionError) Unwrap() error {
	return &BindError{Addr: e.Addr, Err: e.Err}
}

// ConnectionError reports a client that could not reach the server.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IOError is a read or write failure on an established connection.
type IOError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// classifyListenErr turns a raw listen failure into a BindError or
// PermissionError.
func classifyListenErr(addr string, err error) error {
	if isPermissionErr(err) {
		return &PermissionError{Addr: addr, Err: err}
	}
	return &BindError{Addr: addr, InUse: isAddrInUseErr(err), Err: err}
}

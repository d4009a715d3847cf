//go:build unix

package echo

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isAddrInUseErr(err error) bool {
	return errors.Is(err, unix.EADDRINUSE)
}

func isPermissionErr(err error) bool {
	return errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM)
}

// isTransientAcceptErr reports accept failures that clear up on their own:
// descriptor or buffer exhaustion and peers that vanished before accept.
func isTransientAcceptErr(err error) bool {
	if isTimeout(err) {
		return true
	}
	return errorsIsAny(err, unix.EMFILE, unix.ENFILE, unix.ENOBUFS, unix.ENOMEM, unix.ECONNABORTED, unix.EINTR)
}

func errorsIsAny(err error, errnos ...unix.Errno) bool {
	for _, errno := range errnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

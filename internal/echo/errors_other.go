//go:build !unix

package echo

import (
	"errors"
	"os"
	"strings"
)

func isAddrInUseErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "address already in use")
}

func isPermissionErr(err error) bool {
	return errors.Is(err, os.ErrPermission)
}

func isTransientAcceptErr(err error) bool {
	return isTimeout(err)
}

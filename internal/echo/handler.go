package echo

import (
	"errors"
	"io"
	"net"
	"time"
)

// echoLoop reads up to len(buf) bytes at a time and writes each chunk back
// before reading again. It returns the number of bytes echoed and nil once
// the peer closes its side (a zero-length read). Any other read or write
// failure is returned as *IOError. A positive idle arms a read deadline
// before every read.
func echoLoop(conn net.Conn, buf []byte, idle time.Duration) (int64, error) {
	var total int64
	for {
		if idle > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(idle)); err != nil {
				return total, &IOError{Op: "read", Err: err}
			}
		}
		n, err := conn.Read(buf)
		if n > 0 {
			if werr := writeFull(conn, buf[:n]); werr != nil {
				return total, &IOError{Op: "write", Err: werr}
			}
			total += int64(n)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, nil
			}
			return total, &IOError{Op: "read", Err: err}
		}
	}
}

// writeFull keeps calling w.Write until all of b is written or an error
// occurs. A Write that makes no progress without an error is reported as
// io.ErrShortWrite.
func writeFull(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}

// isTimeout reports a deadline expiry somewhere in err's chain.
func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

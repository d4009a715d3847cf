// FILE: internal/shared/counted_conn.go
package shared

import (
	"net"

	"echo_nexus/internal/shared/types"
)

// CountedConn 是一个 net.Conn 的包装器，把读写字节数原子地累加到共享计数器上。
type CountedConn struct {
	net.Conn
	counters *types.Counters
}

// NewCountedConn 创建一个新的 CountedConn 实例。
func NewCountedConn(conn net.Conn, counters *types.Counters) *CountedConn {
	return &CountedConn{
		Conn:     conn,
		counters: counters,
	}
}

// Read 从底层连接读取数据，并增加下行流量计数。
func (c *CountedConn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	if n > 0 {
		c.counters.Downlink.Add(uint64(n))
	}
	return n, err
}

// Write 将数据写入底层连接，并增加上行流量计数。
func (c *CountedConn) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)
	if n > 0 {
		c.counters.Uplink.Add(uint64(n))
	}
	return n, err
}

// CloseWrite half-closes the underlying connection when it supports it.
func (c *CountedConn) CloseWrite() error {
	if cw, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return c.Conn.Close()
}

package echo

import (
	"net"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// listenTCP creates a listening socket with an explicit accept backlog.
// net.Listen always uses the kernel's somaxconn, so the socket is built by
// hand and handed to the runtime poller through net.FileListener.
//
// A wildcard host ("", 0.0.0.0, ::) listens dual-stack on [::] like
// net.Listen does, falling back to IPv4 when the host has no IPv6.
func listenTCP(host string, port, backlog int) (net.Listener, error) {
	addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}

	if addr.IP == nil || addr.IP.IsUnspecified() {
		ln, err := listenSockaddr(unix.AF_INET6, &unix.SockaddrInet6{Port: addr.Port}, backlog)
		if err == nil {
			return ln, nil
		}
		if !isNoIPv6Err(err) {
			return nil, err
		}
		return listenSockaddr(unix.AF_INET, &unix.SockaddrInet4{Port: addr.Port}, backlog)
	}

	family, sockaddr, err := tcpSockaddr(addr)
	if err != nil {
		return nil, err
	}
	return listenSockaddr(family, sockaddr, backlog)
}

func listenSockaddr(family int, sockaddr unix.Sockaddr, backlog int) (net.Listener, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	// fd is duplicated by FileListener; this copy is always closed.
	f := os.NewFile(uintptr(fd), "echo-listener")
	defer f.Close()

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return nil, os.NewSyscallError("setsockopt", err)
	}
	if family == unix.AF_INET6 {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0); err != nil {
			return nil, os.NewSyscallError("setsockopt", err)
		}
	}
	if err := unix.Bind(fd, sockaddr); err != nil {
		return nil, os.NewSyscallError("bind", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return nil, os.NewSyscallError("listen", err)
	}
	return net.FileListener(f)
}

// tcpSockaddr converts a concrete (non-wildcard) address. IPv6 zones may be
// interface names or numeric indexes.
func tcpSockaddr(addr *net.TCPAddr) (int, unix.Sockaddr, error) {
	if ip4 := addr.IP.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return unix.AF_INET, sa, nil
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	if addr.Zone != "" {
		zoneID, err := zoneIndex(addr.Zone)
		if err != nil {
			return 0, nil, err
		}
		sa.ZoneId = zoneID
	}
	return unix.AF_INET6, sa, nil
}

func zoneIndex(zone string) (uint32, error) {
	if ifi, err := net.InterfaceByName(zone); err == nil {
		return uint32(ifi.Index), nil
	}
	n, err := strconv.ParseUint(zone, 10, 32)
	if err != nil {
		return 0, &net.AddrError{Err: "unknown IPv6 zone", Addr: zone}
	}
	return uint32(n), nil
}

// isNoIPv6Err reports a kernel without IPv6 support (or with it disabled).
func isNoIPv6Err(err error) bool {
	return errorsIsAny(err, unix.EAFNOSUPPORT, unix.EPROTONOSUPPORT, unix.EADDRNOTAVAIL)
}

package server

import (
	"context"
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// listenBacklog is the fixed backlog spec.md §4.2/§6 names for both
// listening sockets: "listen(sd, 250)".
const listenBacklog = 250

// bindReuse builds a TCP listener with SO_REUSEPORT set and a backlog
// of exactly listenBacklog, the same two properties the C original's
// bind() establishes (spec.md §4.2). net.ListenConfig.Control cannot
// do this: Listen always issues its own listen() call after Control
// returns, using a backlog derived from net.core.somaxconn, which
// overrides anything set inside Control. So this goes around
// net.ListenConfig entirely — raw socket/bind/listen, then hand the fd
// to net.FileListener so the rest of the server sees an ordinary
// net.Listener.
func bindReuse(ctx context.Context, network, addr string) (net.Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr(network, addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}

	domain := unix.AF_INET
	if tcpAddr.IP != nil && tcpAddr.IP.To4() == nil {
		domain = unix.AF_INET6
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	// Closed once net.FileListener has dup'd it, or on any error path
	// before that happens.
	closeFD := true
	defer func() {
		if closeFD {
			unix.Close(fd)
		}
	}()

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		return nil, fmt.Errorf("setsockopt SO_REUSEPORT: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}

	if domain == unix.AF_INET6 {
		var sa unix.SockaddrInet6
		sa.Port = tcpAddr.Port
		if ip16 := tcpAddr.IP.To16(); ip16 != nil {
			copy(sa.Addr[:], ip16)
		}
		if err := unix.Bind(fd, &sa); err != nil {
			return nil, fmt.Errorf("bind: %w", err)
		}
	} else {
		var sa unix.SockaddrInet4
		sa.Port = tcpAddr.Port
		if ip4 := tcpAddr.IP.To4(); ip4 != nil {
			copy(sa.Addr[:], ip4)
		}
		if err := unix.Bind(fd, &sa); err != nil {
			return nil, fmt.Errorf("bind: %w", err)
		}
	}

	if err := unix.Listen(fd, listenBacklog); err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	f := os.NewFile(uintptr(fd), fmt.Sprintf("ogserver-listener-%s", addr))
	ln, err := net.FileListener(f)
	// net.FileListener dups the fd into its own net.Conn machinery; the
	// *os.File (and the original fd) are no longer needed either way.
	f.Close()
	closeFD = false
	if err != nil {
		return nil, fmt.Errorf("file listener: %w", err)
	}
	return ln, nil
}

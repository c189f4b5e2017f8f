//go:build unix

package core

import (
	"errors"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// listenControl sizes the listener's kernel buffers before bind. Sizes set
// on the listening socket carry over to accepted connections and take part
// in the TCP window scale negotiated during the handshake, which setting
// them per connection after accept cannot do.
func listenControl(opts Options) func(network, address string, rc syscall.RawConn) error {
	if opts.SocketRecvBuffer <= 0 && opts.SocketSendBuffer <= 0 {
		return nil
	}

	return func(network, address string, rc syscall.RawConn) error {
		var sockErr error
		err := rc.Control(func(fd uintptr) {
			if opts.SocketRecvBuffer > 0 {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, opts.SocketRecvBuffer)
				if sockErr != nil {
					return
				}
			}
			if opts.SocketSendBuffer > 0 {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, opts.SocketSendBuffer)
			}
		})
		if err != nil {
			return err
		}
		return sockErr
	}
}

// socketBuffers reads back the effective SO_RCVBUF and SO_SNDBUF of ln.
func socketBuffers(ln net.Listener) (recv, send int, err error) {
	sc, ok := ln.(syscall.Conn)
	if !ok {
		return 0, 0, errors.New("listener does not expose its socket")
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return 0, 0, err
	}

	var sockErr error
	err = rc.Control(func(fd uintptr) {
		recv, sockErr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF)
		if sockErr != nil {
			return
		}
		send, sockErr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF)
	})
	if err != nil {
		return 0, 0, err
	}
	return recv, send, sockErr
}

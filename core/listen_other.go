//go:build !unix

package core

import (
	"errors"
	"net"
	"syscall"
)

var errSocketOptions = errors.New("socket options not supported on this platform")

// listenControl ignores the buffer sizes; the system defaults apply.
func listenControl(opts Options) func(network, address string, rc syscall.RawConn) error {
	return nil
}

func socketBuffers(ln net.Listener) (recv, send int, err error) {
	return 0, 0, errSocketOptions
}

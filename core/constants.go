package core

import (
	"errors"
	"time"
)

// Defaults applied when the matching Options field is zero.
const (
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultIdleTimeout  = 60 * time.Second
	DefaultMaxBodyBytes = 4 << 20

	readBufferSize = 4096

	// Status line plus the Date, Content-Length and Connection headers
	// AppendTo adds on top of the handler's headers.
	responseOverhead = 128

	// Poll interval while waiting for busy connections during Shutdown.
	shutdownPollInterval = 50 * time.Millisecond
)

// Error definitions
var (
	ErrServerClosed = errors.New("server closed")
)

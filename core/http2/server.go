// Package http2 serves the engine's handler over cleartext HTTP/2 (h2c),
// with HTTP/1.1 fallback for clients that do not upgrade.
package http2

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/searchktools/fast-backend/logger"
)

// ErrServerClosed is returned by Serve after Shutdown.
var ErrServerClosed = http.ErrServerClosed

// Server provides HTTP/2 support with multiplexing and HPACK compression
type Server struct {
	server *http.Server
	h2     *http2.Server
	log    logger.Logger

	mu     sync.Mutex
	closed bool
}

// Config contains HTTP/2 server configuration
type Config struct {
	Handler              http.Handler
	Logger               logger.Logger
	MaxConcurrentStreams uint32
	MaxReadFrameSize     uint32
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
}

// NewServer creates a new HTTP/2 server
func NewServer(cfg Config) *Server {
	if cfg.MaxConcurrentStreams == 0 {
		cfg.MaxConcurrentStreams = 250
	}
	if cfg.MaxReadFrameSize == 0 {
		cfg.MaxReadFrameSize = 1 << 20 // 1MB
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 120 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}

	h2 := &http2.Server{
		MaxConcurrentStreams: cfg.MaxConcurrentStreams,
		MaxReadFrameSize:     cfg.MaxReadFrameSize,
		IdleTimeout:          cfg.IdleTimeout,
	}

	return &Server{
		h2:  h2,
		log: cfg.Logger,
		server: &http.Server{
			Handler:           h2c.NewHandler(cfg.Handler, h2),
			ReadHeaderTimeout: cfg.ReadTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}
}

// Serve accepts h2c and HTTP/1.1 connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.mu.Unlock()

	s.log.Info("server listening",
		logger.String("addr", ln.Addr().String()),
		logger.String("protocol", "h2c"),
	)
	err := s.server.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return ErrServerClosed
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	return s.server.Shutdown(ctx)
}

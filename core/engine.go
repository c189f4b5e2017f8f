// Package core is the HTTP/1.1 server engine: it accepts connections, parses
// requests, runs them through the middleware pipeline and router, and writes
// the buffered responses back.
package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	stdhttp "net/http"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/searchktools/fast-backend/apperror"
	"github.com/searchktools/fast-backend/core/http"
	"github.com/searchktools/fast-backend/core/middleware"
	"github.com/searchktools/fast-backend/core/observability"
	"github.com/searchktools/fast-backend/core/pools"
	"github.com/searchktools/fast-backend/core/router"
	"github.com/searchktools/fast-backend/logger"
)

// Options configures an Engine. Zero values take the package defaults.
type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodyBytes int64

	// SO_RCVBUF and SO_SNDBUF for the listener, inherited by accepted
	// connections. Zero keeps the system default.
	SocketRecvBuffer int
	SocketSendBuffer int

	Logger  logger.Logger
	Monitor *observability.Monitor
}

// Engine serves HTTP/1.1 with one goroutine per connection. Routes and
// middleware must be registered before the first call to Serve, Handler or
// ServeHTTP; the composed chain is fixed from then on.
type Engine struct {
	opts     Options
	log      logger.Logger
	mon      *observability.Monitor
	router   *router.Router
	pipeline *middleware.Pipeline
	bytePool *pools.BytePool

	compileOnce sync.Once
	handler     http.HandlerFunc
	tooLarge    http.HandlerFunc
	badRequest  http.HandlerFunc

	baseCtx context.Context
	cancel  context.CancelFunc

	mu         sync.Mutex
	listeners  map[net.Listener]struct{}
	conns      map[*conn]struct{}
	inShutdown atomic.Bool
}

// NewEngine creates a new engine instance
func NewEngine(opts Options) *Engine {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		opts:      opts,
		log:       opts.Logger,
		mon:       opts.Monitor,
		router:    router.New(),
		pipeline:  middleware.NewPipeline(),
		bytePool:  pools.NewBytePool(),
		baseCtx:   ctx,
		cancel:    cancel,
		listeners: make(map[net.Listener]struct{}),
		conns:     make(map[*conn]struct{}),
	}
}

// Use appends middleware. The first middleware added is the outermost.
func (e *Engine) Use(mw ...middleware.Middleware) {
	e.pipeline.Use(mw...)
}

// Handle registers a route
func (e *Engine) Handle(method, path string, handler http.HandlerFunc) {
	e.router.Add(method, path, handler)
}

// GET registers a GET route
func (e *Engine) GET(path string, handler http.HandlerFunc) {
	e.router.GET(path, handler)
}

// POST registers a POST route
func (e *Engine) POST(path string, handler http.HandlerFunc) {
	e.router.POST(path, handler)
}

// Routes lists the registered routes.
func (e *Engine) Routes() []router.Route {
	return e.router.Routes()
}

// Handler returns the composed middleware chain around the router.
func (e *Engine) Handler() http.HandlerFunc {
	e.compile()
	return e.handler
}

func (e *Engine) compile() {
	e.compileOnce.Do(func() {
		e.handler = e.pipeline.Then(e.router.Dispatch)

		// Requests the parser rejects still run through the middleware so
		// they are logged and carry the CORS headers.
		limit := e.opts.MaxBodyBytes
		e.tooLarge = e.pipeline.Then(func(*http.Context) error {
			return apperror.New(apperror.CodePayloadTooLarge, fmt.Sprintf("request body exceeds %d bytes", limit))
		})
		e.badRequest = e.pipeline.Then(func(*http.Context) error {
			return apperror.New(apperror.CodeMalformedInput, "malformed HTTP request")
		})
	})
}

// Listen binds a TCP listener on addr. Failures are returned as BindFailure.
func (e *Engine) Listen(addr string) (net.Listener, error) {
	lc := net.ListenConfig{Control: listenControl(e.opts)}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, apperror.BindFailure(addr, err)
	}

	if recv, send, err := socketBuffers(ln); err == nil {
		e.log.Debug("listener socket buffers",
			logger.String("addr", ln.Addr().String()),
			logger.Int("recv_bytes", recv),
			logger.Int("send_bytes", send),
		)
	}
	return ln, nil
}

// ListenAndServe binds addr and serves on it.
func (e *Engine) ListenAndServe(addr string) error {
	ln, err := e.Listen(addr)
	if err != nil {
		return err
	}
	return e.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called or ln fails.
// After Shutdown it returns ErrServerClosed.
func (e *Engine) Serve(ln net.Listener) error {
	if !e.trackListener(ln, true) {
		ln.Close()
		return ErrServerClosed
	}
	defer e.trackListener(ln, false)

	e.compile()
	e.log.Info("server listening", logger.String("addr", ln.Addr().String()))

	var tempDelay time.Duration
	for {
		rw, err := ln.Accept()
		if err != nil {
			if e.inShutdown.Load() {
				return ErrServerClosed
			}
			if isTemporary(err) {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if tempDelay > time.Second {
					tempDelay = time.Second
				}
				e.log.Warn("accept failed, retrying",
					logger.Err(err),
					logger.Duration("delay", tempDelay),
				)
				time.Sleep(tempDelay)
				continue
			}
			return err
		}
		tempDelay = 0

		c := e.newConn(rw)
		if c == nil {
			continue
		}
		go c.serve()
	}
}

// Shutdown stops accepting, closes idle connections and waits for busy ones
// to finish their current request. If ctx expires first the remaining
// connections are left to finish on their own and ctx.Err() is returned.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.inShutdown.Store(true)

	e.mu.Lock()
	var lnErr error
	for ln := range e.listeners {
		if err := ln.Close(); err != nil && lnErr == nil && !errors.Is(err, net.ErrClosed) {
			lnErr = err
		}
	}
	e.mu.Unlock()

	ticker := time.NewTicker(shutdownPollInterval)
	defer ticker.Stop()
	for {
		if e.closeIdleConns() {
			e.cancel()
			return lnErr
		}
		select {
		case <-ctx.Done():
			e.cancel()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// closeIdleConns closes every idle connection and reports whether no
// connections remain.
func (e *Engine) closeIdleConns() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for c := range e.conns {
		if c.state.CompareAndSwap(int32(stateIdle), int32(stateClosed)) {
			c.rwc.Close()
		}
	}
	return len(e.conns) == 0
}

func (e *Engine) trackListener(ln net.Listener, add bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if add {
		if e.inShutdown.Load() {
			return false
		}
		e.listeners[ln] = struct{}{}
		return true
	}
	delete(e.listeners, ln)
	return true
}

func (e *Engine) newConn(rw net.Conn) *conn {
	e.mu.Lock()
	if e.inShutdown.Load() {
		e.mu.Unlock()
		rw.Close()
		return nil
	}
	c := &conn{e: e, rwc: rw, remote: rw.RemoteAddr().String()}
	e.conns[c] = struct{}{}
	e.mu.Unlock()

	e.mon.ConnOpened()
	return c
}

func (e *Engine) removeConn(c *conn) {
	e.mu.Lock()
	delete(e.conns, c)
	e.mu.Unlock()
	e.mon.ConnClosed()
}

// renderError turns a handler error into the response. Unmatched routes get
// an empty body; everything else gets a machine-readable error payload.
// Headers already set by middleware are kept.
func (e *Engine) renderError(ctx *http.Context, err error) {
	status := apperror.HTTPStatus(err)
	if status == stdhttp.StatusNotFound {
		_ = ctx.NoContent(status)
		return
	}
	if jerr := ctx.JSON(status, apperror.BodyOf(err)); jerr != nil {
		_ = ctx.NoContent(status)
	}
}

// ServeHTTP runs a net/http request through the same chain, for the h2c
// server mode and tests.
func (e *Engine) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	e.compile()
	h := e.handler

	req := http.AcquireRequest()
	defer http.ReleaseRequest(req)

	req.Method = r.Method
	req.Path = r.URL.Path
	req.RawQuery = r.URL.RawQuery
	req.Proto = r.Proto
	req.RemoteAddr = r.RemoteAddr
	for k, vs := range r.Header {
		req.Header.Set(k, strings.Join(vs, ", "))
	}
	if r.Host != "" {
		req.Header.Set("Host", r.Host)
	}

	body, err := io.ReadAll(stdhttp.MaxBytesReader(w, r.Body, e.opts.MaxBodyBytes))
	if err != nil {
		var mbe *stdhttp.MaxBytesError
		if errors.As(err, &mbe) {
			h = e.tooLarge
		} else {
			h = e.badRequest
		}
		body = nil
	}
	req.Body = body

	ctx := http.AcquireContext(r.Context(), req)
	defer http.ReleaseContext(ctx)

	if err := h(ctx); err != nil {
		e.renderError(ctx, err)
	}

	resp := ctx.Response()
	for k, v := range resp.Header {
		w.Header().Set(k, v)
	}
	w.WriteHeader(ctx.StatusCode())
	if r.Method != "HEAD" && len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

type connState int32

const (
	stateIdle connState = iota
	stateActive
	stateClosed
)

// conn is one accepted client connection.
type conn struct {
	e      *Engine
	rwc    net.Conn
	remote string
	state  atomic.Int32
}

func (c *conn) getState() connState {
	return connState(c.state.Load())
}

func (c *conn) serve() {
	defer func() {
		if r := recover(); r != nil {
			c.e.log.Error("connection panic",
				logger.String("remote", c.remote),
				logger.Any("panic", r),
			)
		}
		c.state.Store(int32(stateClosed))
		c.rwc.Close()
		c.e.removeConn(c)
	}()

	opts := c.e.opts
	br := bufio.NewReaderSize(c.rwc, readBufferSize)

	for first := true; ; first = false {
		// Idle until the first byte of the next request arrives.
		c.state.Store(int32(stateIdle))
		if c.e.inShutdown.Load() {
			return
		}
		wait := opts.IdleTimeout
		if first {
			wait = opts.ReadTimeout
		}
		_ = c.rwc.SetReadDeadline(time.Now().Add(wait))
		if _, err := br.Peek(1); err != nil {
			return
		}
		if !c.state.CompareAndSwap(int32(stateIdle), int32(stateActive)) {
			return
		}

		now := time.Now()
		_ = c.rwc.SetReadDeadline(now.Add(opts.ReadTimeout))
		_ = c.rwc.SetWriteDeadline(now.Add(opts.WriteTimeout))
		req, err := http.ReadRequest(br, c.rwc, opts.MaxBodyBytes)
		if err != nil {
			c.handleReadError(req, err)
			return
		}
		req.RemoteAddr = c.remote

		keepAlive := req.KeepAlive() && !c.e.inShutdown.Load()
		werr := c.respond(req, c.e.handler, keepAlive)
		http.ReleaseRequest(req)
		if werr != nil || !keepAlive {
			return
		}
	}
}

// handleReadError answers a request the parser rejected. The rest of the
// request may still be on the wire, so the connection always closes after.
func (c *conn) handleReadError(req *http.Request, err error) {
	var h http.HandlerFunc
	switch {
	case errors.Is(err, http.ErrBodyTooLarge):
		h = c.e.tooLarge
	case errors.Is(err, http.ErrInvalidRequest):
		c.e.log.Debug("malformed request",
			logger.String("remote", c.remote),
			logger.Err(err),
		)
		h = c.e.badRequest
	default:
		return
	}

	if req == nil {
		// The request line itself did not parse.
		req = http.AcquireRequest()
		req.Proto = "HTTP/1.1"
	}
	req.RemoteAddr = c.remote
	_ = c.respond(req, h, false)
	http.ReleaseRequest(req)
}

func (c *conn) respond(req *http.Request, h http.HandlerFunc, keepAlive bool) error {
	ctx := http.AcquireContext(c.e.baseCtx, req)
	defer http.ReleaseContext(ctx)

	if err := h(ctx); err != nil {
		c.e.renderError(ctx, err)
	}
	return c.write(ctx.Response(), keepAlive, req.Method == "HEAD")
}

func (c *conn) write(resp *http.Response, keepAlive, headOnly bool) error {
	buf := c.e.bytePool.Get(encodedSize(resp))
	defer c.e.bytePool.Put(buf)

	*buf = resp.AppendTo(*buf, keepAlive, headOnly)
	_ = c.rwc.SetWriteDeadline(time.Now().Add(c.e.opts.WriteTimeout))
	_, err := c.rwc.Write(*buf)
	return err
}

// encodedSize estimates the wire size of resp so small responses draw from
// the smallest pool tier.
func encodedSize(resp *http.Response) int {
	n := len(resp.Body) + responseOverhead
	for k, v := range resp.Header {
		n += len(k) + len(v) + 4
	}
	return n
}

func isTemporary(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.ECONNABORTED)
}

// Package app wires configuration, logging, metrics and handlers into a
// running server.
package app

import (
	"context"
	"errors"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/searchktools/fast-backend/apperror"
	"github.com/searchktools/fast-backend/buildinfo"
	"github.com/searchktools/fast-backend/config"
	"github.com/searchktools/fast-backend/core"
	"github.com/searchktools/fast-backend/core/http2"
	"github.com/searchktools/fast-backend/core/middleware"
	"github.com/searchktools/fast-backend/core/observability"
	"github.com/searchktools/fast-backend/core/router"
	"github.com/searchktools/fast-backend/handler"
	"github.com/searchktools/fast-backend/logger"
)

// MetricsNamespace prefixes every exported Prometheus metric.
const MetricsNamespace = "fast_backend"

// App is the application instance
type App struct {
	cfg     *config.Config
	log     logger.Logger
	monitor *observability.Monitor
	engine  *core.Engine
}

// New builds the engine with the middleware chain and routes for cfg.
func New(cfg *config.Config, log logger.Logger) *App {
	if log == nil {
		log = logger.NewNop()
	}

	var monitor *observability.Monitor
	if cfg.MetricsAddr != "" {
		monitor = observability.NewMonitor(MetricsNamespace)
	}

	engine := core.NewEngine(core.Options{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		MaxBodyBytes: cfg.MaxBodyBytes,

		SocketRecvBuffer: cfg.SocketRecvBuffer,
		SocketSendBuffer: cfg.SocketSendBuffer,

		Logger:  log,
		Monitor: monitor,
	})

	// Logging wraps CORS so the logged status is the one the client sees.
	engine.Use(
		middleware.AccessLog(log, monitor),
		middleware.CORS(corsPolicy(cfg.CORS)),
		middleware.Recovery(log),
	)

	handler.New(handler.Info{
		Service: buildinfo.ServiceName,
		Version: buildinfo.Resolve(),
	}, log).Register(engine)

	return &App{
		cfg:     cfg,
		log:     log,
		monitor: monitor,
		engine:  engine,
	}
}

func corsPolicy(p config.CorsPolicy) middleware.CORSPolicy {
	return middleware.CORSPolicy{
		AllowOrigins: p.AllowOrigins,
		AllowMethods: p.AllowMethods,
		AllowHeaders: p.AllowHeaders,
		MaxAge:       p.MaxAge,
	}
}

// Engine returns the underlying engine
func (a *App) Engine() *core.Engine {
	return a.engine
}

// Routes lists the registered routes.
func (a *App) Routes() []router.Route {
	return a.engine.Routes()
}

type server interface {
	Serve(ln net.Listener) error
	Shutdown(ctx context.Context) error
}

// Run binds the configured address and serves until ctx is cancelled. A bind
// failure is returned immediately and is fatal to the caller.
func (a *App) Run(ctx context.Context) error {
	ln, err := a.engine.Listen(a.cfg.Addr())
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}

// Serve runs the server on an existing listener until ctx is cancelled, then
// shuts down within the configured timeout.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	var srv server = a.engine
	if a.cfg.Protocol == config.ProtocolH2C {
		srv = http2.NewServer(http2.Config{
			Handler:      a.engine,
			Logger:       a.log,
			ReadTimeout:  a.cfg.ReadTimeout,
			WriteTimeout: a.cfg.WriteTimeout,
			IdleTimeout:  a.cfg.IdleTimeout,
		})
	}

	admin, err := a.startAdmin()
	if err != nil {
		ln.Close()
		return err
	}

	a.log.Info("server starting",
		logger.String("addr", ln.Addr().String()),
		logger.String("protocol", a.cfg.Protocol),
		logger.String("env", a.cfg.Env),
		logger.String("version", buildinfo.Resolve()),
	)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case err := <-serveErr:
		a.stopAdmin(admin)
		if isClosed(err) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down", logger.Duration("timeout", a.cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	if serr := <-serveErr; !isClosed(serr) && err == nil {
		err = serr
	}
	a.stopAdmin(admin)

	if a.cfg.Protocol != config.ProtocolH2C {
		a.log.Info("server stopped", a.engine.Stats().Fields()...)
	} else {
		a.log.Info("server stopped")
	}
	return err
}

// startAdmin serves Prometheus metrics on MetricsAddr when configured.
func (a *App) startAdmin() (*stdhttp.Server, error) {
	if a.cfg.MetricsAddr == "" {
		return nil, nil
	}

	ln, err := net.Listen("tcp", a.cfg.MetricsAddr)
	if err != nil {
		return nil, apperror.BindFailure(a.cfg.MetricsAddr, err)
	}

	mux := stdhttp.NewServeMux()
	mux.Handle("/metrics", a.monitor.Handler())
	srv := &stdhttp.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			a.log.Error("metrics listener failed", logger.Err(err))
		}
	}()

	a.log.Info("metrics listening", logger.String("addr", ln.Addr().String()))
	return srv, nil
}

func (a *App) stopAdmin(srv *stdhttp.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func isClosed(err error) bool {
	return err == nil ||
		errors.Is(err, core.ErrServerClosed) ||
		errors.Is(err, http2.ErrServerClosed)
}

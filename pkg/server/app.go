package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"AstroOverlap/pkg/config"
	xhttp "AstroOverlap/pkg/http"
	pkgkafka "AstroOverlap/pkg/kafka"
	applogger "AstroOverlap/pkg/logger"
)

// App owns the process lifecycle: the HTTP API, the optional Kafka worker
// and every closable client.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	handler    xhttp.Handler
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	httpServer *xhttp.Server
	closers    []namedCloser
	background []func(ctx context.Context)
	bgCancel   context.CancelFunc
	bgWG       sync.WaitGroup
}

type namedCloser struct {
	name string
	c    io.Closer
}

// New creates an App. consumer and kh may be nil when Kafka is disabled.
func New(cfg *config.Config, l *applogger.Logger, handler xhttp.Handler, consumer *pkgkafka.Consumer, kh pkgkafka.MessageHandler) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, logger: l, handler: handler, consumer: consumer, kh: kh}
}

// OnShutdown registers c to be closed after the servers stop, in reverse order of registration.
func (a *App) OnShutdown(name string, c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, namedCloser{name: name, c: c})
	}
}

// Background registers fn to run for the lifetime of the app. fn must return once ctx is done.
func (a *App) Background(fn func(ctx context.Context)) {
	a.background = append(a.background, fn)
}

// Handler exposes the routes, for tests and tooling.
func (a *App) Handler() xhttp.Handler { return a.handler }

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(a.cfg.Server.SlowRequest),
		xhttp.WithCORS(a.cfg.Server.CORS.Enabled),
		xhttp.WithCORSOrigins(a.cfg.Server.CORS.AllowOrigins, a.cfg.Server.CORS.MaxAge),
		xhttp.WithLogger(a.logger),
	)

	bgCtx, cancel := context.WithCancel(context.Background())
	a.bgCancel = cancel
	for _, fn := range a.background {
		a.bgWG.Add(1)
		go func(fn func(context.Context)) {
			defer a.bgWG.Done()
			fn(bgCtx)
		}(fn)
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.logger.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.logger.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("astro overlap service started",
		applogger.String("environment", a.cfg.Environment),
		applogger.String("ephemeris", a.cfg.Ephemeris.Source),
		applogger.String("civil_zone", a.cfg.Astro.CivilZone),
	)

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.bgCancel != nil {
		a.bgCancel()
		a.bgWG.Wait()
	}
	// flush aggregated logs while the producer is still open
	a.logger.RemoveCollector()
	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.logger.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

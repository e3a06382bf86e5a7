package server

import (
	"context"
	"os/signal"
	"syscall"

	icache "FinWalk/internal/service/cache"
	"FinWalk/internal/usecase"
	pkgch "FinWalk/pkg/clickhouse"
	"FinWalk/pkg/config"
	xhttp "FinWalk/pkg/http"
	pkgkafka "FinWalk/pkg/kafka"
	applogger "FinWalk/pkg/logger"
)

// App encapsulates the application lifecycle: the HTTP API for `serve`, the
// walk-forward use case for one-shot `run`, and the infrastructure clients
// both share.
type App struct {
	cfg         *config.Config
	l           *applogger.Logger
	walkForward *usecase.WalkForwardUseCase
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
	chClient    *pkgch.Client
	producer    *pkgkafka.Producer
	redis       *icache.RedisCache
}

// New creates a new App. Infrastructure clients may be nil when disabled.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	wf *usecase.WalkForwardUseCase,
	handler xhttp.Handler,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	redis *icache.RedisCache,
) *App {
	return &App{
		cfg:         cfg,
		l:           l,
		walkForward: wf,
		httpHandler: handler,
		chClient:    chClient,
		producer:    producer,
		redis:       redis,
	}
}

// WalkForward exposes the use case for command-line runs.
func (a *App) WalkForward() *usecase.WalkForwardUseCase { return a.walkForward }

// Logger returns the application logger.
func (a *App) Logger() *applogger.Logger { return a.l }

// Serve starts the HTTP API and blocks until ctx is done or SIGINT/SIGTERM.
func (a *App) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORS.Enabled, a.cfg.Server.CORS.AllowOrigins, a.cfg.Server.CORS.MaxAge),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(a.l),
	)
	errc := a.httpServer.Start()
	a.l.Info("finwalk started",
		applogger.String("env", a.cfg.Environment),
		applogger.Bool("clickhouse", a.chClient != nil),
		applogger.Bool("kafka", a.producer != nil),
		applogger.Bool("redis", a.redis != nil),
		applogger.Int("workers", a.cfg.WalkForward.Workers),
	)

	var serveErr error
	select {
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
	case serveErr = <-errc:
		if serveErr != nil {
			a.l.Error("http server error", applogger.Error(serveErr))
		}
	}

	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
	a.Close()
	return serveErr
}

// Close releases infrastructure clients and flushes the log collector.
func (a *App) Close() {
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.l.Warn("redis close error", applogger.Error(err))
		}
	}
	// The collector publishes through the producer, so it goes first.
	a.l.RemoveCollector()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	a.l.Info("shutdown complete")
}

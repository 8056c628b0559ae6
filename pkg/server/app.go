package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"BreakCheck/internal/handler/ws"
	pkgch "BreakCheck/pkg/clickhouse"
	"BreakCheck/pkg/config"
	xhttp "BreakCheck/pkg/http"
	pkgkafka "BreakCheck/pkg/kafka"
	applogger "BreakCheck/pkg/logger"
	"BreakCheck/pkg/queue"
)

// App encapsulates the application lifecycle: HTTP API, websocket progress
// hub, Kafka candidate consumer, Redis job queue and their graceful shutdown.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	consumer   *pkgkafka.Consumer
	candidates pkgkafka.MessageHandler
	jobQueue   *queue.RedisQueue
	chClient   *pkgch.Client
	hub        *ws.Hub
	wsHandler  *ws.ProgressHandler
	httpServer *xhttp.Server
	handler    xhttp.Handler
	closers    []func() error
}

// New creates an App. consumer, jobQueue and wsHandler are optional; a nil
// collaborator disables that surface.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	handler xhttp.Handler,
	hub *ws.Hub,
	wsHandler *ws.ProgressHandler,
	consumer *pkgkafka.Consumer,
	candidates pkgkafka.MessageHandler,
	jobQueue *queue.RedisQueue,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		handler:    handler,
		hub:        hub,
		wsHandler:  wsHandler,
		consumer:   consumer,
		candidates: candidates,
		jobQueue:   jobQueue,
		chClient:   chClient,
	}
}

// AddCloser registers a resource closed during shutdown, after the servers
// and workers have stopped.
func (a *App) AddCloser(f func() error) {
	a.closers = append(a.closers, f)
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.hub != nil {
		go a.hub.Run(ctx)
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if a.wsHandler != nil {
		a.wsHandler.Register(a.httpServer.Echo())
	}

	if a.consumer != nil && a.candidates != nil {
		a.consumer.RegisterHandler(a.candidates)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.logger.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.logger.Info("kafka consumer started", applogger.String("topic", a.candidates.Topic()))
	}

	if a.jobQueue != nil {
		if err := a.jobQueue.Start(); err != nil {
			a.logger.Error("job queue start error", applogger.Error(err))
			return err
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("breakcheck started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown stops intake first, then workers, then closes clients, so no
// accepted work is abandoned mid-run.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.jobQueue != nil {
		if err := a.jobQueue.Stop(shutdownCtx); err != nil {
			a.logger.Warn("job queue stop error", applogger.Error(err))
		}
	}

	for _, f := range a.closers {
		if err := f(); err != nil {
			a.logger.Warn("close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}

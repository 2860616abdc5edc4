package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FeatureMill/internal/handler/api"
	"FeatureMill/internal/repository"
	"FeatureMill/internal/schema"
	"FeatureMill/internal/usecase"
	pkgch "FeatureMill/pkg/clickhouse"
	"FeatureMill/pkg/config"
	xhttp "FeatureMill/pkg/http"
	pkgkafka "FeatureMill/pkg/kafka"
	applogger "FeatureMill/pkg/logger"
	"FeatureMill/pkg/queue"
)

// App encapsulates the entire application lifecycle. Live mode runs the
// ingestion collector, Kafka consumer, sweep job queue and HTTP API until
// interrupted; backtest mode executes one configured sweep and exits.
type App struct {
	cfg          *config.Config
	log          *applogger.Logger
	collector    *usecase.BarCollector
	consumer     *pkgkafka.Consumer
	kh           pkgkafka.MessageHandler
	chClient     *pkgch.Client
	registry     *schema.Registry
	featureStore *repository.CHFeatureStore
	sweeps       *usecase.SweepService
	jobQueue     *queue.RedisQueue
	httpServer   *xhttp.Server
	httpHandler  xhttp.Handler
	BarProc      *usecase.BarProcessor
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.BarCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	registry *schema.Registry,
	featureStore *repository.CHFeatureStore,
	sweeps *usecase.SweepService,
	jobQueue *queue.RedisQueue,
) *App {
	return &App{
		cfg:          cfg,
		log:          log,
		collector:    collector,
		consumer:     consumer,
		kh:           kh,
		chClient:     chClient,
		registry:     registry,
		featureStore: featureStore,
		sweeps:       sweeps,
		jobQueue:     jobQueue,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application. Live mode blocks until interrupted; backtest
// mode returns when the sweep completes.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.cfg.Mode == "backtest" {
		return a.runBacktest(ctx)
	}
	return a.runLive(ctx)
}

// runBacktest executes one sweep over the configured window and logs the
// top ranked cells before shutting down.
func (a *App) runBacktest(ctx context.Context) error {
	bt := a.cfg.Sweep.Backtest
	from, err := time.Parse(time.RFC3339, bt.From)
	if err != nil {
		return err
	}
	to, err := time.Parse(time.RFC3339, bt.To)
	if err != nil {
		return err
	}

	a.log.Info("backtest sweep",
		applogger.String("symbol", bt.Symbol),
		applogger.String("from", bt.From),
		applogger.String("to", bt.To))

	id := "backtest-" + bt.Symbol
	if err := a.sweeps.Execute(ctx, usecase.SweepJobPayload{
		ID:     id,
		Symbol: bt.Symbol,
		From:   from.Unix(),
		To:     to.Unix(),
	}); err != nil {
		return err
	}

	if st, ok := a.sweeps.Status(ctx, id); ok {
		for i, r := range st.Results {
			if i >= 10 {
				break
			}
			a.log.Info("sweep result",
				applogger.Int("rank", i+1),
				applogger.String("cell", r.Cell()),
				applogger.String("state", string(r.State)),
				applogger.Any("metric", r.Metric))
		}
	}
	return a.shutdown(ctx)
}

// runLive starts all background services and the HTTP API.
func (a *App) runLive(ctx context.Context) error {
	httpHandler := a.httpHandler
	if httpHandler == nil {
		httpHandler = api.NewFeaturesEchoHandler(a.log, a.registry, a.featureStore, a.sweeps)
	}

	a.httpServer = xhttp.NewServer(httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start collector
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			a.log.Error("collector error", applogger.Error(err))
		}
	}()
	a.log.Info("collector started", applogger.Strings("symbols", a.cfg.Feed.Symbols))

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start sweep job queue if configured
	if a.jobQueue != nil {
		if err := a.jobQueue.Start(); err != nil {
			a.log.Error("job queue start error", applogger.Error(err))
		} else {
			a.log.Info("sweep job queue started")
		}
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	// Stop collector (pipeline + stream)
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.log.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Shutdown HTTP server
	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	// Stop job queue
	if a.jobQueue != nil {
		if err := a.jobQueue.Stop(ctx); err != nil {
			a.log.Warn("job queue stop error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	// Close bar processor resources (publisher/storage)
	if a.BarProc != nil {
		a.BarProc.Close()
	}

	a.log.Info("shutdown complete")
	return nil
}

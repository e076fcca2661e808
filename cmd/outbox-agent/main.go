package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/zoff-tech/event-outbox/pkg/config"
	"github.com/zoff-tech/event-outbox/pkg/diagnostics"
	"github.com/zoff-tech/event-outbox/pkg/ingest"
	"github.com/zoff-tech/event-outbox/pkg/lifecycle"
	"github.com/zoff-tech/event-outbox/pkg/logging"
	"github.com/zoff-tech/event-outbox/pkg/outbox"
	"github.com/zoff-tech/event-outbox/pkg/processor"
	"github.com/zoff-tech/event-outbox/pkg/store"
	"github.com/zoff-tech/event-outbox/pkg/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configDir := flag.String("config", "./cmd/outbox-agent", "directory holding agent.yaml")
	flag.Parse()

	// Load configuration from file and environment; validated on load
	cfg, err := config.LoadFromFile(*configDir)
	if err != nil {
		log.Fatal("Error loading configuration: ", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("agent stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Settings, logger *zap.Logger) error {
	opts := []outbox.Option{
		outbox.WithCapacity(cfg.Queue.Capacity),
		outbox.WithStorageKey(cfg.Queue.Key),
		outbox.WithTarget(ingest.Target{Endpoint: cfg.Ingest.Endpoint, Token: cfg.Ingest.Token}),
		outbox.WithFlushTimeout(cfg.Ingest.Timeout),
		outbox.WithLogger(logger),
	}

	// Initialize telemetry (tracing and metrics) when an exporter is configured
	var metrics *telemetry.OutboxMetrics
	if cfg.Observability.Enabled() {
		shutdownTelemetry, err := telemetry.Init(cfg.Observability)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdownTelemetry(sctx); err != nil {
				logger.Warn("telemetry shutdown", zap.Error(err))
			}
		}()

		metrics, err = telemetry.NewOutboxMetrics()
		if err != nil {
			return err
		}
		opts = append(opts, outbox.WithMetrics(metrics))
	}

	kv, err := store.NewStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer kv.Close()

	sender, err := ingest.NewSender(ctx, cfg.Ingest, logger)
	if err != nil {
		return err
	}
	defer sender.Close()

	bus := lifecycle.NewBus(logger)
	network := lifecycle.NewNetworkMonitor(bus, true)
	app := lifecycle.NewAppStateMonitor(bus, lifecycle.StateActive)

	ob := outbox.New(kv, sender, network, opts...)
	ob.Hydrate(ctx)
	if metrics != nil {
		if err := metrics.ObserveQueueSize(ob.QueueSize); err != nil {
			return err
		}
	}

	proc := processor.NewFlushProcessor(ob, bus, logger)
	if err := proc.Start(ctx); err != nil {
		return err
	}

	var lifecycleWG conc.WaitGroup
	var server *http.Server
	if cfg.Diagnostics.ListenAddr != "" {
		server = &http.Server{
			Addr: cfg.Diagnostics.ListenAddr,
			Handler: diagnostics.NewHandler(diagnostics.Deps{
				Outbox:  ob,
				Tracker: outbox.NewTracker(ob, cfg.Device.ID),
				Bus:     bus,
				App:     app,
				Network: network,
			}, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		lifecycleWG.Go(func() {
			logger.Info("diagnostics listening", zap.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("diagnostics server", zap.Error(err))
			}
		})
	}

	logger.Info("outbox agent started",
		zap.String("store", cfg.Store.Type),
		zap.String("transport", cfg.Ingest.Transport),
		zap.Int("capacity", ob.Capacity()),
		zap.Int("queued", ob.QueueSize()),
	)
	<-ctx.Done()
	logger.Info("shutting down")

	if server != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(sctx); err != nil {
			logger.Warn("diagnostics shutdown", zap.Error(err))
		}
	}
	bus.Close()
	lifecycleWG.Wait()
	return nil
}

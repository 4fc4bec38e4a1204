package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/scanhound/scanhound/internal/app/collector"
	"github.com/scanhound/scanhound/internal/config/credentials/memory"
	"github.com/scanhound/scanhound/internal/config/fileloader"
	"github.com/scanhound/scanhound/internal/config/loaders"
	"github.com/scanhound/scanhound/internal/infra/backend"
	"github.com/scanhound/scanhound/internal/infra/eventbus"
	"github.com/scanhound/scanhound/internal/infra/eventbus/kafka"
	"github.com/scanhound/scanhound/internal/vcs/factory"
	"github.com/scanhound/scanhound/pkg/common"
	"github.com/scanhound/scanhound/pkg/common/logger"
	"github.com/scanhound/scanhound/pkg/common/otel"
)

const serviceType = "collector"

func main() {
	_, _ = maxprocs.Set()

	hostname, err := os.Hostname()
	if err != nil {
		log.Fatalf("failed to get hostname: %v", err)
	}

	var logg *logger.Logger

	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}
			for k, v := range r.Attributes {
				errorAttrs[k] = v
			}

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}

			fmt.Fprintf(os.Stderr, "Error event: %s, details: %s\n",
				r.Message, errorAttrsJSON)
		},
	}

	traceIDFn := func(ctx context.Context) string {
		return otel.GetTraceID(ctx)
	}

	svcName := fmt.Sprintf("COLLECTOR-%s", hostname)
	metadata := map[string]string{
		"service":   svcName,
		"hostname":  hostname,
		"pod":       os.Getenv("POD_NAME"),
		"namespace": os.Getenv("POD_NAMESPACE"),
		"app":       serviceType,
	}

	logg = logger.NewWithMetadata(os.Stdout, logger.LevelDebug, svcName, traceIDFn, logEvents, metadata)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prob, err := strconv.ParseFloat(os.Getenv("OTEL_SAMPLING_RATIO"), 64)
	if err != nil {
		logg.Error(ctx, "failed to parse OTEL_SAMPLING_RATIO", "error", err)
		os.Exit(1)
	}
	tp, telemetryTeardown, err := otel.InitTelemetry(logg, otel.Config{
		ServiceName:      os.Getenv("OTEL_SERVICE_NAME"),
		ExporterEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ExcludedRoutes: map[string]struct{}{
			"/v1/health":    {},
			"/v1/readiness": {},
		},
		Probability: prob,
		ResourceAttributes: map[string]string{
			"library.language": "go",
			"k8s.pod.name":     os.Getenv("POD_NAME"),
			"k8s.namespace":    os.Getenv("POD_NAMESPACE"),
			"k8s.container.id": hostname,
		},
		InsecureExporter: true,
	})
	if err != nil {
		logg.Error(ctx, "failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer telemetryTeardown(ctx)

	tracer := tp.Tracer(os.Getenv("OTEL_SERVICE_NAME"))

	ready := &atomic.Bool{}
	healthServer := common.NewHealthServer(ready)
	defer func() {
		if err := healthServer.Server().Shutdown(ctx); err != nil {
			logg.Error(ctx, "Error shutting down health server", "error", err)
		}
	}()

	settings, err := loaders.LoadCollectorSettings()
	if err != nil {
		logg.Error(ctx, "failed to load collector settings", "error", err)
		os.Exit(1)
	}

	cfgLoader := fileloader.NewFileLoader(settings.VCSInstancesFilePath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		logg.Error(ctx, "failed to load vcs instance configuration", "error", err)
		os.Exit(1)
	}

	credStore, err := memory.NewCredentialStore(cfg.VCSInstances)
	if err != nil {
		logg.Error(ctx, "failed to build credential store", "error", err)
		os.Exit(1)
	}

	mp := otel.GetMeterProvider()
	metricCollector, err := collector.NewCollectorMetrics(mp)
	if err != nil {
		logg.Error(ctx, "failed to create metrics collector", "error", err)
		os.Exit(1)
	}

	kafkaCfg := &kafka.EventBusConfig{
		Brokers:         settings.KafkaBrokers,
		ProjectTopic:    settings.ProjectTopic,
		RepositoryTopic: settings.RepositoryTopic,
		GroupID:         settings.GroupID,
		ClientID:        svcName,
		ServiceType:     serviceType,
	}

	eventBus, err := kafka.ConnectEventBus(ctx, kafkaCfg, logg, metricCollector, tracer)
	if err != nil {
		logg.Error(ctx, "failed to connect event bus", "error", err)
		os.Exit(1)
	}

	eventPublisher := eventbus.NewDomainEventPublisher(eventBus)

	backendURL := fmt.Sprintf("http://%s:%d", settings.BackendHost, settings.BackendPort)
	backendClient := backend.NewClient(backendURL, nil, tracer)

	dispatcher := collector.NewDispatcher(eventPublisher, logg, tracer, metricCollector)
	reporter := collector.NewReporter(backendClient, logg, tracer, metricCollector)
	svc := collector.NewService(
		cfgLoader,
		credStore,
		factory.New,
		http.DefaultClient,
		dispatcher,
		reporter,
		logg,
		tracer,
		metricCollector,
	)

	if err := eventBus.Subscribe(ctx, svc.SupportedEvents(), svc.HandleEvent); err != nil {
		logg.Error(ctx, "failed to subscribe to collection tasks", "error", err)
		os.Exit(1)
	}

	logg.Info(ctx, "Collector initialized")
	ready.Store(true)

	sig := <-sigCh
	logg.Info(ctx, "Received shutdown signal", "signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := eventBus.Close(); err != nil {
		logg.Error(shutdownCtx, "Failed to close event bus", "error", err)
	}
}

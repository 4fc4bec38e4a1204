// Package collector implements the repository collection pipeline: consume a
// collection task, enumerate the project's repositories on the configured VCS
// instance, dispatch scan tasks for repositories with commits, and report the
// active repository set to the management service.
package collector

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/scanhound/scanhound/internal/config"
	"github.com/scanhound/scanhound/internal/config/credentials"
	"github.com/scanhound/scanhound/internal/domain/events"
	"github.com/scanhound/scanhound/internal/domain/repository"
	"github.com/scanhound/scanhound/internal/vcs"
	"github.com/scanhound/scanhound/pkg/common/logger"
)

// ConnectorFactory builds a provider connector for a configured VCS instance.
type ConnectorFactory func(
	inst config.VCSInstance,
	creds *credentials.Credentials,
	httpClient *http.Client,
	log *logger.Logger,
	tracer trace.Tracer,
) (vcs.Connector, error)

var _ events.EventHandler = (*Service)(nil)

// Service is the collection entry point. It consumes CollectionRequested
// events and runs the full pipeline for each one. Configuration is re-read
// per run so instance definitions can change without a restart.
type Service struct {
	cfgLoader    config.Loader
	credStore    credentials.Store
	newConnector ConnectorFactory
	httpClient   *http.Client

	dispatcher *Dispatcher
	reporter   *Reporter

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics Metrics
}

// NewService wires the collection pipeline together.
func NewService(
	cfgLoader config.Loader,
	credStore credentials.Store,
	newConnector ConnectorFactory,
	httpClient *http.Client,
	dispatcher *Dispatcher,
	reporter *Reporter,
	log *logger.Logger,
	tracer trace.Tracer,
	metrics Metrics,
) *Service {
	return &Service{
		cfgLoader:    cfgLoader,
		credStore:    credStore,
		newConnector: newConnector,
		httpClient:   httpClient,
		dispatcher:   dispatcher,
		reporter:     reporter,
		logger:       log.With("component", "collector_service"),
		tracer:       tracer,
		metrics:      metrics,
	}
}

// SupportedEvents reports the event types this service consumes.
func (s *Service) SupportedEvents() []events.EventType {
	return []events.EventType{repository.EventTypeCollectionRequested}
}

// HandleEvent processes a single CollectionRequested event. The event is
// acknowledged regardless of the run's outcome; a failed run is not
// redelivered because the next scheduled discovery cycle covers it.
func (s *Service) HandleEvent(ctx context.Context, evt events.EventEnvelope, ack events.AckFunc) error {
	defer ack(nil)

	task, ok := evt.Payload.(repository.CollectionTask)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for event %s", evt.Payload, evt.Type)
	}

	if err := s.CollectRepositories(ctx, task); err != nil {
		s.logger.Error(ctx, "Collection run failed",
			"project_key", task.ProjectKey,
			"vcs_instance", task.VCSInstanceName,
			"error", err,
		)
		return err
	}
	return nil
}

// CollectRepositories runs the collection pipeline for one project on one VCS
// instance: resolve the instance and its credentials, build the connector,
// extract scan tasks, dispatch them, and report the active repository set.
// The active-set report runs whenever extraction succeeded, even if some or
// all dispatches failed.
func (s *Service) CollectRepositories(ctx context.Context, task repository.CollectionTask) error {
	ctx, span := s.tracer.Start(ctx, "collector.collect_repositories",
		trace.WithAttributes(
			attribute.String("project_key", task.ProjectKey),
			attribute.String("vcs_instance", task.VCSInstanceName),
		))
	defer span.End()

	s.metrics.IncCollectionRunsStarted(ctx, task.VCSInstanceName)
	s.logger.Info(ctx, "Starting collection run",
		"project_key", task.ProjectKey,
		"vcs_instance", task.VCSInstanceName,
	)

	cfg, err := s.cfgLoader.Load(ctx)
	if err != nil {
		return s.failRun(ctx, span, task, fmt.Errorf("failed to load configuration: %w", err))
	}

	inst, ok := cfg.VCSInstances[task.VCSInstanceName]
	if !ok {
		return s.failRun(ctx, span, task,
			fmt.Errorf("%w: %s", repository.ErrUnknownInstance, task.VCSInstanceName))
	}

	creds, err := s.credStore.GetCredentials(task.VCSInstanceName)
	if err != nil {
		return s.failRun(ctx, span, task, fmt.Errorf("failed to resolve credentials: %w", err))
	}

	connector, err := s.newConnector(inst, creds, s.httpClient, s.logger, s.tracer)
	if err != nil {
		return s.failRun(ctx, span, task, err)
	}

	extractor := NewExtractor(connector, s.logger, s.tracer)
	tasks, raws, err := extractor.Extract(ctx, task.ProjectKey, task.VCSInstanceName)
	if err != nil {
		return s.failRun(ctx, span, task, err)
	}
	s.metrics.ObserveRepositoriesDiscovered(ctx, task.VCSInstanceName, len(raws))

	dispatched := s.dispatcher.Dispatch(ctx, task.VCSInstanceName, tasks)

	s.reporter.Report(ctx, task.ProjectKey, task.VCSInstanceName, raws)

	s.metrics.IncCollectionRunsCompleted(ctx, task.VCSInstanceName)
	s.logger.Info(ctx, "Collection run completed",
		"project_key", task.ProjectKey,
		"vcs_instance", task.VCSInstanceName,
		"repositories_discovered", len(raws),
		"tasks_dispatched", dispatched,
	)
	span.SetStatus(codes.Ok, "collection run completed")

	return nil
}

func (s *Service) failRun(ctx context.Context, span trace.Span, task repository.CollectionTask, err error) error {
	s.metrics.IncCollectionRunsFailed(ctx, task.VCSInstanceName)
	span.RecordError(err)
	span.SetStatus(codes.Error, "collection run failed")
	return err
}

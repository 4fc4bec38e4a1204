package collector

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/scanhound/scanhound/internal/domain/events"
	"github.com/scanhound/scanhound/internal/domain/repository"
	"github.com/scanhound/scanhound/pkg/common/logger"
)

// Dispatcher enqueues scan tasks for downstream scanner workers. Each task is
// published independently so one broker failure does not block the remaining
// tasks of the run.
type Dispatcher struct {
	publisher events.DomainEventPublisher

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics Metrics
}

// NewDispatcher creates a dispatcher over the given publisher.
func NewDispatcher(publisher events.DomainEventPublisher, log *logger.Logger, tracer trace.Tracer, metrics Metrics) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		logger:    log.With("component", "dispatcher"),
		tracer:    tracer,
		metrics:   metrics,
	}
}

// Dispatch publishes one scan-task event per repository, keyed by repository
// id so tasks for the same repository land on the same partition. Failed
// publishes are logged and counted but not retried; the remaining tasks are
// still attempted. Returns the number of tasks successfully enqueued.
func (d *Dispatcher) Dispatch(ctx context.Context, vcsInstanceName string, tasks []repository.Repository) int {
	ctx, span := d.tracer.Start(ctx, "dispatcher.dispatch",
		trace.WithAttributes(
			attribute.String("vcs_instance", vcsInstanceName),
			attribute.Int("task_count", len(tasks)),
		))
	defer span.End()

	dispatched := 0
	for _, task := range tasks {
		evt := events.EventEnvelope{
			Type:      repository.EventTypeScanTaskCreated,
			Timestamp: time.Now(),
			Payload:   task,
		}
		if err := d.publisher.PublishDomainEvent(ctx, evt, events.WithKey(task.RepositoryID)); err != nil {
			d.logger.Error(ctx, "Failed to dispatch scan task",
				"repository", task.RepositoryName,
				"repository_id", task.RepositoryID,
				"error", err,
			)
			d.metrics.IncDispatchErrors(ctx, vcsInstanceName)
			span.RecordError(err)
			continue
		}
		dispatched++
		d.metrics.IncScanTasksDispatched(ctx, vcsInstanceName)
	}

	span.SetAttributes(attribute.Int("dispatched", dispatched))
	return dispatched
}

package collector

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/scanhound/scanhound/internal/infra/eventbus/kafka"
)

// Metrics defines the observability hooks recorded during a collection run.
type Metrics interface {
	// IncCollectionRunsStarted records a collection task being picked up.
	IncCollectionRunsStarted(ctx context.Context, vcsInstanceName string)
	// IncCollectionRunsCompleted records a run that finished dispatch and
	// reporting.
	IncCollectionRunsCompleted(ctx context.Context, vcsInstanceName string)
	// IncCollectionRunsFailed records a run aborted before dispatch.
	IncCollectionRunsFailed(ctx context.Context, vcsInstanceName string)

	// ObserveRepositoriesDiscovered records the size of a project listing.
	ObserveRepositoriesDiscovered(ctx context.Context, vcsInstanceName string, count int)
	// IncScanTasksDispatched records a scan task successfully enqueued.
	IncScanTasksDispatched(ctx context.Context, vcsInstanceName string)
	// IncDispatchErrors records a failed enqueue attempt.
	IncDispatchErrors(ctx context.Context, vcsInstanceName string)
	// IncActiveReportFailures records a failed active-repository report.
	IncActiveReportFailures(ctx context.Context, vcsInstanceName string)
}

// CollectorMetrics is the full metric surface of the collector process: run
// metrics plus the broker metrics the event bus records.
type CollectorMetrics interface {
	Metrics
	kafka.EventBusMetrics
}

// collectorMetrics implements CollectorMetrics on OpenTelemetry instruments.
type collectorMetrics struct {
	// Broker metrics.
	messagesPublished metric.Int64Counter
	messagesConsumed  metric.Int64Counter
	publishErrors     metric.Int64Counter
	consumeErrors     metric.Int64Counter

	// Run metrics.
	runsStarted   metric.Int64Counter
	runsCompleted metric.Int64Counter
	runsFailed    metric.Int64Counter

	repositoriesDiscovered metric.Int64Histogram
	scanTasksDispatched    metric.Int64Counter
	dispatchErrors         metric.Int64Counter
	activeReportFailures   metric.Int64Counter
}

const namespace = "collector"

// NewCollectorMetrics creates the collector metric instruments on the given
// meter provider.
func NewCollectorMetrics(mp metric.MeterProvider) (*collectorMetrics, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	c := new(collectorMetrics)
	var err error

	if c.messagesPublished, err = meter.Int64Counter(
		"messages_published_total",
		metric.WithDescription("Total number of messages published"),
	); err != nil {
		return nil, err
	}

	if c.messagesConsumed, err = meter.Int64Counter(
		"messages_consumed_total",
		metric.WithDescription("Total number of messages consumed"),
	); err != nil {
		return nil, err
	}

	if c.publishErrors, err = meter.Int64Counter(
		"publish_errors_total",
		metric.WithDescription("Total number of publish errors"),
	); err != nil {
		return nil, err
	}

	if c.consumeErrors, err = meter.Int64Counter(
		"consume_errors_total",
		metric.WithDescription("Total number of consume errors"),
	); err != nil {
		return nil, err
	}

	if c.runsStarted, err = meter.Int64Counter(
		"collection_runs_started_total",
		metric.WithDescription("Total number of collection runs started"),
	); err != nil {
		return nil, err
	}

	if c.runsCompleted, err = meter.Int64Counter(
		"collection_runs_completed_total",
		metric.WithDescription("Total number of collection runs completed"),
	); err != nil {
		return nil, err
	}

	if c.runsFailed, err = meter.Int64Counter(
		"collection_runs_failed_total",
		metric.WithDescription("Total number of collection runs that failed before dispatch"),
	); err != nil {
		return nil, err
	}

	if c.repositoriesDiscovered, err = meter.Int64Histogram(
		"repositories_discovered",
		metric.WithDescription("Number of repositories discovered per collection run"),
	); err != nil {
		return nil, err
	}

	if c.scanTasksDispatched, err = meter.Int64Counter(
		"scan_tasks_dispatched_total",
		metric.WithDescription("Total number of scan tasks dispatched"),
	); err != nil {
		return nil, err
	}

	if c.dispatchErrors, err = meter.Int64Counter(
		"dispatch_errors_total",
		metric.WithDescription("Total number of scan task dispatch failures"),
	); err != nil {
		return nil, err
	}

	if c.activeReportFailures, err = meter.Int64Counter(
		"active_report_failures_total",
		metric.WithDescription("Total number of failed active repository reports"),
	); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *collectorMetrics) IncMessagePublished(ctx context.Context, topic string) {
	c.messagesPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (c *collectorMetrics) IncMessageConsumed(ctx context.Context, topic string) {
	c.messagesConsumed.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (c *collectorMetrics) IncPublishError(ctx context.Context, topic string) {
	c.publishErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (c *collectorMetrics) IncConsumeError(ctx context.Context, topic string) {
	c.consumeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (c *collectorMetrics) IncCollectionRunsStarted(ctx context.Context, vcsInstanceName string) {
	c.runsStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("vcs_instance", vcsInstanceName)))
}

func (c *collectorMetrics) IncCollectionRunsCompleted(ctx context.Context, vcsInstanceName string) {
	c.runsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("vcs_instance", vcsInstanceName)))
}

func (c *collectorMetrics) IncCollectionRunsFailed(ctx context.Context, vcsInstanceName string) {
	c.runsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("vcs_instance", vcsInstanceName)))
}

func (c *collectorMetrics) ObserveRepositoriesDiscovered(ctx context.Context, vcsInstanceName string, count int) {
	c.repositoriesDiscovered.Record(ctx, int64(count), metric.WithAttributes(attribute.String("vcs_instance", vcsInstanceName)))
}

func (c *collectorMetrics) IncScanTasksDispatched(ctx context.Context, vcsInstanceName string) {
	c.scanTasksDispatched.Add(ctx, 1, metric.WithAttributes(attribute.String("vcs_instance", vcsInstanceName)))
}

func (c *collectorMetrics) IncDispatchErrors(ctx context.Context, vcsInstanceName string) {
	c.dispatchErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("vcs_instance", vcsInstanceName)))
}

func (c *collectorMetrics) IncActiveReportFailures(ctx context.Context, vcsInstanceName string) {
	c.activeReportFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("vcs_instance", vcsInstanceName)))
}

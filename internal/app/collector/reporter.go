package collector

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/scanhound/scanhound/internal/domain/repository"
	"github.com/scanhound/scanhound/internal/vcs"
	"github.com/scanhound/scanhound/pkg/common/logger"
)

// ActiveRepositoryReporter is the outbound port for the active-set report.
type ActiveRepositoryReporter interface {
	ReportActiveRepositories(ctx context.Context, active repository.ActiveRepositories) error
}

// Reporter sends the full discovered repository set to the management
// service after each collection run. Reporting is best effort: a failure is
// logged and counted, never propagated, so it cannot fail a run whose scan
// tasks were already dispatched.
type Reporter struct {
	backend ActiveRepositoryReporter

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics Metrics
}

// NewReporter creates a reporter over the given backend client.
func NewReporter(backend ActiveRepositoryReporter, log *logger.Logger, tracer trace.Tracer, metrics Metrics) *Reporter {
	return &Reporter{
		backend: backend,
		logger:  log.With("component", "reporter"),
		tracer:  tracer,
		metrics: metrics,
	}
}

// Report projects the raw listing into the active-set payload and posts it.
// Every listed repository is included, commits or not.
func (r *Reporter) Report(ctx context.Context, projectKey, vcsInstanceName string, raws []vcs.RawRepository) {
	ctx, span := r.tracer.Start(ctx, "reporter.report",
		trace.WithAttributes(
			attribute.String("project_key", projectKey),
			attribute.String("vcs_instance", vcsInstanceName),
			attribute.Int("repository_count", len(raws)),
		))
	defer span.End()

	active := repository.ActiveRepositories{
		ProjectKey:      projectKey,
		VCSInstanceName: vcsInstanceName,
		Repositories:    make([]repository.SimpleRepository, 0, len(raws)),
	}
	for _, raw := range raws {
		active.Repositories = append(active.Repositories, repository.SimpleRepository{
			ID:   raw.ID,
			Name: raw.Name,
		})
	}

	if err := r.backend.ReportActiveRepositories(ctx, active); err != nil {
		r.logger.Warn(ctx, "Failed to report active repositories",
			"project_key", projectKey,
			"vcs_instance", vcsInstanceName,
			"error", err,
		)
		r.metrics.IncActiveReportFailures(ctx, vcsInstanceName)
		span.RecordError(err)
	}
}

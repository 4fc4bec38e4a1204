package collector

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/scanhound/scanhound/internal/domain/repository"
	"github.com/scanhound/scanhound/internal/vcs"
	"github.com/scanhound/scanhound/pkg/common/logger"
)

// Extractor turns a provider's project listing into scan-task descriptors.
// It owns the per-repository failure isolation rules: a broken repository
// never prevents its siblings from being processed, while a failed listing
// aborts the whole run.
type Extractor struct {
	connector vcs.Connector

	logger *logger.Logger
	tracer trace.Tracer
}

// NewExtractor creates an extractor over the given connector.
func NewExtractor(connector vcs.Connector, log *logger.Logger, tracer trace.Tracer) *Extractor {
	return &Extractor{
		connector: connector,
		logger:    log.With("component", "extractor"),
		tracer:    tracer,
	}
}

// Extract lists the project's repositories and resolves each one's latest
// commit. It returns the scan tasks for repositories that have commits plus
// the complete raw listing, which feeds the active-repository report.
//
// Repositories whose commit lookup fails are logged and skipped.
// Repositories with no commits are skipped from the tasks but still present
// in the returned listing. The tasks preserve listing order.
func (e *Extractor) Extract(
	ctx context.Context,
	projectKey, vcsInstanceName string,
) ([]repository.Repository, []vcs.RawRepository, error) {
	ctx, span := e.tracer.Start(ctx, "extractor.extract",
		trace.WithAttributes(
			attribute.String("project_key", projectKey),
			attribute.String("vcs_instance", vcsInstanceName),
		))
	defer span.End()

	raws, err := e.connector.ListRepositories(ctx, projectKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing failed")
		return nil, nil, fmt.Errorf("failed to list repositories for project %s: %w", projectKey, err)
	}
	span.SetAttributes(attribute.Int("repository_count", len(raws)))

	tasks := make([]repository.Repository, 0, len(raws))
	for _, raw := range raws {
		commit, ok, err := e.connector.LatestCommit(ctx, projectKey, raw.ID)
		if err != nil {
			e.logger.Warn(ctx, "Skipping repository, failed to fetch latest commit",
				"project_key", projectKey,
				"repository", raw.Name,
				"error", err,
			)
			span.AddEvent("repository_skipped_commit_error",
				trace.WithAttributes(attribute.String("repository", raw.Name)))
			continue
		}
		if !ok {
			e.logger.Info(ctx, "Skipping repository with no commits",
				"project_key", projectKey,
				"repository", raw.Name,
			)
			continue
		}

		tasks = append(tasks, e.connector.ExportRepository(raw, commit, vcsInstanceName))
	}

	span.SetAttributes(attribute.Int("task_count", len(tasks)))
	return tasks, raws, nil
}

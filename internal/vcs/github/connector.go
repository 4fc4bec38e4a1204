// Package github implements the VCS connector for GitHub organizations.
package github

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/scanhound/scanhound/internal/config"
	"github.com/scanhound/scanhound/internal/config/credentials"
	"github.com/scanhound/scanhound/internal/domain/repository"
	"github.com/scanhound/scanhound/internal/vcs"
	"github.com/scanhound/scanhound/pkg/common/logger"
)

// API defines the interface for interacting with the GitHub REST API.
type API interface {
	// ListRepositories returns all repository records for an organization.
	ListRepositories(ctx context.Context, org string) ([]repoRecord, error)

	// LastCommit returns the latest commit hash for a repository, or
	// ok=false if the repository has no commits.
	LastCommit(ctx context.Context, org, repoName string) (string, bool, error)
}

var _ vcs.Connector = (*Connector)(nil)

// Connector adapts the GitHub REST API to the provider-agnostic connector
// capability set. GitHub has no project grouping below the organization, so
// the project key maps to the organization name.
type Connector struct {
	instanceName string
	api          API

	logger *logger.Logger
	tracer trace.Tracer
}

// NewConnector creates a GitHub connector for the given instance configuration
// and credentials.
func NewConnector(
	inst config.VCSInstance,
	creds *credentials.Credentials,
	httpClient *http.Client,
	log *logger.Logger,
	tracer trace.Tracer,
) *Connector {
	return &Connector{
		instanceName: inst.Name,
		api:          NewClient(inst.BaseURL(), creds, httpClient, tracer),
		logger:       log.With("component", "github_connector", "vcs_instance", inst.Name),
		tracer:       tracer,
	}
}

// ListRepositories returns the normalized repository records for an
// organization. The project key is interpreted as the organization name.
func (c *Connector) ListRepositories(ctx context.Context, projectKey string) ([]vcs.RawRepository, error) {
	records, err := c.api.ListRepositories(ctx, projectKey)
	if err != nil {
		return nil, err
	}

	raw := make([]vcs.RawRepository, 0, len(records))
	for _, rec := range records {
		// GitHub's commits endpoint is keyed by repository name, so the name
		// doubles as the addressable identifier.
		raw = append(raw, vcs.RawRepository{
			ProjectKey:    projectKey,
			ID:            rec.Name,
			Name:          rec.Name,
			URL:           rec.CloneURL,
			DefaultBranch: rec.DefaultBranch,
		})
	}
	return raw, nil
}

// LatestCommit returns the latest commit hash for a repository.
func (c *Connector) LatestCommit(ctx context.Context, projectKey, repositoryID string) (string, bool, error) {
	return c.api.LastCommit(ctx, projectKey, repositoryID)
}

// ExportRepository builds a scan-task descriptor from a raw listing record.
func (c *Connector) ExportRepository(raw vcs.RawRepository, latestCommit, vcsInstanceName string) repository.Repository {
	var branches []string
	if raw.DefaultBranch != "" {
		branches = []string{raw.DefaultBranch}
	}
	return repository.Repository{
		ProjectKey:      raw.ProjectKey,
		RepositoryID:    raw.ID,
		RepositoryName:  raw.Name,
		RepositoryURL:   raw.URL,
		VCSInstanceName: vcsInstanceName,
		LatestCommit:    latestCommit,
		Branches:        branches,
	}
}

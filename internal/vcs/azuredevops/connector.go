// Package azuredevops implements the VCS connector for Azure DevOps.
package azuredevops

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/scanhound/scanhound/internal/config"
	"github.com/scanhound/scanhound/internal/config/credentials"
	"github.com/scanhound/scanhound/internal/domain/repository"
	"github.com/scanhound/scanhound/internal/vcs"
	"github.com/scanhound/scanhound/pkg/common/logger"
)

// API defines the interface for interacting with the Azure DevOps REST API.
type API interface {
	// ListRepositories returns all repository records for a project.
	ListRepositories(ctx context.Context, projectKey string) ([]repoRecord, error)

	// LastCommit returns the latest commit hash for a repository, or
	// ok=false if the repository has no commits.
	LastCommit(ctx context.Context, projectKey, repoID string) (string, bool, error)
}

var _ vcs.Connector = (*Connector)(nil)

// Connector adapts the Azure DevOps REST API to the provider-agnostic
// connector capability set.
type Connector struct {
	instanceName string
	api          API

	logger *logger.Logger
	tracer trace.Tracer
}

// NewConnector creates an Azure DevOps connector for the given instance
// configuration and credentials.
func NewConnector(
	inst config.VCSInstance,
	creds *credentials.Credentials,
	httpClient *http.Client,
	log *logger.Logger,
	tracer trace.Tracer,
) *Connector {
	return &Connector{
		instanceName: inst.Name,
		api:          NewClient(inst.BaseURL(), inst.Organization, creds, httpClient, tracer),
		logger:       log.With("component", "azure_devops_connector", "vcs_instance", inst.Name),
		tracer:       tracer,
	}
}

// ListRepositories returns the normalized repository records for a project.
func (c *Connector) ListRepositories(ctx context.Context, projectKey string) ([]vcs.RawRepository, error) {
	records, err := c.api.ListRepositories(ctx, projectKey)
	if err != nil {
		return nil, err
	}

	raw := make([]vcs.RawRepository, 0, len(records))
	for _, rec := range records {
		raw = append(raw, vcs.RawRepository{
			ProjectKey:    projectKey,
			ID:            rec.ID,
			Name:          rec.Name,
			URL:           rec.RemoteURL,
			DefaultBranch: shortBranchName(rec.DefaultBranch),
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

// shortBranchName strips the refs/heads/ prefix Azure DevOps reports default
// branches with.
func shortBranchName(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}

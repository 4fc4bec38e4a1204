// Package bitbucket implements the VCS connector for Bitbucket Server.
package bitbucket

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

// API defines the interface for interacting with the Bitbucket REST API.
type API interface {
	// ListRepositories returns all repository records for a project.
	ListRepositories(ctx context.Context, projectKey string) ([]repoRecord, error)

	// LastCommit returns the latest commit hash for a repository, or
	// ok=false if the repository has no commits.
	LastCommit(ctx context.Context, projectKey, repoSlug string) (string, bool, error)
}

var _ vcs.Connector = (*Connector)(nil)

// Connector adapts the Bitbucket REST API to the provider-agnostic connector
// capability set.
type Connector struct {
	instanceName string
	api          API

	logger *logger.Logger
	tracer trace.Tracer
}

// NewConnector creates a Bitbucket connector for the given instance
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
		api:          NewClient(inst.BaseURL(), creds, httpClient, tracer),
		logger:       log.With("component", "bitbucket_connector", "vcs_instance", inst.Name),
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
		// The slug is the provider's addressable identifier: it is what the
		// commits endpoint is keyed by, so it is what downstream lookups use.
		raw = append(raw, vcs.RawRepository{
			ProjectKey: projectKey,
			ID:         rec.Slug,
			Name:       rec.Name,
			URL:        cloneURL(rec),
			// Bitbucket's listing does not carry branch info; the default
			// branch is resolved by the scanner from the clone.
			DefaultBranch: "",
		})
	}
	return raw, nil
}

// LatestCommit returns the latest commit hash for a repository, addressed by
// its slug.
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

// cloneURL picks the http clone link from a repository record, preferring it
// over ssh since scanner workers authenticate with tokens.
func cloneURL(rec repoRecord) string {
	for _, link := range rec.Links.Clone {
		if link.Name == "http" || link.Name == "https" {
			return link.Href
		}
	}
	if len(rec.Links.Clone) > 0 {
		return rec.Links.Clone[0].Href
	}
	return ""
}

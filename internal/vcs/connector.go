// Package vcs provides a polymorphic connector abstraction over heterogeneous
// version-control providers. Each provider variant knows how to list a
// project's repositories, fetch a repository's latest commit, and export a
// repository as a scan-task descriptor, keeping the extraction pipeline
// provider-agnostic.
package vcs

import (
	"context"

	"github.com/scanhound/scanhound/internal/domain/repository"
)

// RawRepository is a normalized provider listing row. It carries just enough
// of the provider's repository record to build a task descriptor and the
// active-repository report.
type RawRepository struct {
	// ProjectKey is the key of the project the repository was listed under.
	ProjectKey string

	// ID is the provider's addressable identifier for the repository: the
	// value its commit endpoints are keyed by (slug for Bitbucket, repository
	// uuid for Azure DevOps, name for GitHub).
	ID string

	// Name is the repository's display name.
	Name string

	// URL is the clone URL for the repository.
	URL string

	// DefaultBranch is the repository's default branch name, when the
	// provider reports one in the listing.
	DefaultBranch string
}

// Connector is the capability set implemented per VCS provider variant.
type Connector interface {
	// ListRepositories returns the raw repository records for a project.
	// Failures wrap repository.ErrUpstreamUnavailable and are propagated,
	// not retried at this layer.
	ListRepositories(ctx context.Context, projectKey string) ([]RawRepository, error)

	// LatestCommit returns the latest commit hash for a repository. The
	// second return value reports whether a commit exists: an empty
	// repository yields ("", false, nil), which is a valid, expected outcome
	// distinct from an error.
	LatestCommit(ctx context.Context, projectKey, repositoryID string) (string, bool, error)

	// ExportRepository builds a scan-task descriptor from a raw listing
	// record and its latest commit. Pure transformation; never fails given a
	// present commit.
	ExportRepository(raw RawRepository, latestCommit, vcsInstanceName string) repository.Repository
}

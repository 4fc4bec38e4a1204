// Package scanning defines the management service's persistent view of
// discovered repositories and their scan history.
package scanning

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Repository is a repository known to the management service. Rows are
// created when a collector first reports a repository and soft-deleted when a
// later active-set report no longer includes it.
type Repository struct {
	ID              uuid.UUID  `json:"id"`
	ProjectKey      string     `json:"project_key" validate:"required"`
	RepositoryID    string     `json:"repository_id" validate:"required"`
	RepositoryName  string     `json:"repository_name" validate:"required"`
	RepositoryURL   string     `json:"repository_url" validate:"required,url"`
	VCSInstanceName string     `json:"vcs_instance" validate:"required"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewRepository builds an active repository row with a fresh identity.
func NewRepository(projectKey, repositoryID, repositoryName, repositoryURL, vcsInstanceName string) *Repository {
	now := time.Now().UTC()
	return &Repository{
		ID:              uuid.New(),
		ProjectKey:      projectKey,
		RepositoryID:    repositoryID,
		RepositoryName:  repositoryName,
		RepositoryURL:   repositoryURL,
		VCSInstanceName: vcsInstanceName,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// RepositoryStore provides persistence for repositories.
type RepositoryStore interface {
	// Create inserts a new repository row.
	Create(ctx context.Context, repo *Repository) error

	// GetByID fetches a repository by its surrogate id. Returns ErrNotFound
	// when no row exists.
	GetByID(ctx context.Context, id uuid.UUID) (*Repository, error)

	// List returns a page of repositories ordered by creation time, along
	// with the total row count.
	List(ctx context.Context, skip, limit int) ([]Repository, int64, error)

	// Update replaces the mutable fields of an existing repository.
	Update(ctx context.Context, repo *Repository) error

	// Delete removes a repository row. Returns ErrNotFound when no row
	// exists.
	Delete(ctx context.Context, id uuid.UUID) error

	// SyncActiveSet reconciles the stored rows for one project and instance
	// against the repository ids a collector just observed: unseen ids are
	// inserted, stored rows absent from the set are soft-deleted, and
	// previously soft-deleted rows that reappear are restored. Returns the
	// number of rows soft-deleted.
	SyncActiveSet(ctx context.Context, projectKey, vcsInstanceName string, active []ActiveRepository) (int64, error)

	// DistinctProjects returns the distinct project keys of active
	// repositories, optionally restricted to the given instance names and to
	// repositories whose name contains the filter substring.
	DistinctProjects(ctx context.Context, filter DistinctFilter) ([]string, error)

	// DistinctRepositories returns the distinct repository names of active
	// repositories, optionally restricted to the given instance names and to
	// repositories whose project key contains the filter substring.
	DistinctRepositories(ctx context.Context, filter DistinctFilter) ([]string, error)
}

// DistinctFilter narrows distinct-value queries. Zero values match everything.
type DistinctFilter struct {
	VCSInstanceNames []string
	NameContains     string
}

// ActiveRepository is one entry of a collector's active-set report.
type ActiveRepository struct {
	RepositoryID   string
	RepositoryName string
}

package scanning

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Branch is a branch of a stored repository, tracked so incremental scans can
// diff against the last scanned commit per branch.
type Branch struct {
	ID           uuid.UUID `json:"id"`
	RepositoryID uuid.UUID `json:"repository_id" validate:"required"`
	BranchID     string    `json:"branch_id" validate:"required"`
	BranchName   string    `json:"branch_name" validate:"required"`
	LatestCommit string    `json:"latest_commit" validate:"required"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewBranch builds a branch row with a fresh identity.
func NewBranch(repositoryID uuid.UUID, branchID, branchName, latestCommit string) *Branch {
	now := time.Now().UTC()
	return &Branch{
		ID:           uuid.New(),
		RepositoryID: repositoryID,
		BranchID:     branchID,
		BranchName:   branchName,
		LatestCommit: latestCommit,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// BranchStore provides persistence for branches. Branch rows are removed
// together with their repository.
type BranchStore interface {
	Create(ctx context.Context, branch *Branch) error

	// GetByID returns ErrNotFound when no row exists.
	GetByID(ctx context.Context, id uuid.UUID) (*Branch, error)

	// ListByRepository returns a page of the repository's branches ordered by
	// branch name, along with the total count.
	ListByRepository(ctx context.Context, repositoryID uuid.UUID, skip, limit int) ([]Branch, int64, error)

	// Delete removes a branch row. Returns ErrNotFound when no row exists.
	Delete(ctx context.Context, id uuid.UUID) error
}

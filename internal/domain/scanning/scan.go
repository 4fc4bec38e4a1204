package scanning

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ScanType distinguishes full scans from incremental ones.
type ScanType string

const (
	// ScanTypeBase is a full history scan of a repository.
	ScanTypeBase ScanType = "BASE"
	// ScanTypeIncremental scans only commits added since the last scan.
	ScanTypeIncremental ScanType = "INCREMENTAL"
)

// Scan records one scanner run over a repository.
type Scan struct {
	ID                uuid.UUID `json:"id"`
	RepositoryID      uuid.UUID `json:"repository_id" validate:"required"`
	ScanType          ScanType  `json:"scan_type" validate:"required,oneof=BASE INCREMENTAL"`
	LastScannedCommit string    `json:"last_scanned_commit" validate:"required"`
	IncrementNumber   int       `json:"increment_number" validate:"gte=0"`
	Timestamp         time.Time `json:"timestamp"`
}

// NewScan builds a scan record with a fresh identity.
func NewScan(repositoryID uuid.UUID, scanType ScanType, lastScannedCommit string, incrementNumber int) *Scan {
	return &Scan{
		ID:                uuid.New(),
		RepositoryID:      repositoryID,
		ScanType:          scanType,
		LastScannedCommit: lastScannedCommit,
		IncrementNumber:   incrementNumber,
		Timestamp:         time.Now().UTC(),
	}
}

// ScanStore provides persistence for scan records.
type ScanStore interface {
	// Create inserts a new scan row.
	Create(ctx context.Context, scan *Scan) error

	// GetByID fetches a scan by id. Returns ErrNotFound when no row exists.
	GetByID(ctx context.Context, id uuid.UUID) (*Scan, error)

	// ListByRepository returns a page of a repository's scans ordered by
	// timestamp descending, along with the total row count.
	ListByRepository(ctx context.Context, repositoryID uuid.UUID, skip, limit int) ([]Scan, int64, error)

	// LatestForRepository returns the most recent scan for a repository, or
	// ErrNotFound when the repository has never been scanned.
	LatestForRepository(ctx context.Context, repositoryID uuid.UUID) (*Scan, error)
}

package scanning

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FindingStatus is the triage state of a finding.
type FindingStatus string

const (
	FindingStatusNotAnalyzed   FindingStatus = "NOT_ANALYZED"
	FindingStatusTruePositive  FindingStatus = "TRUE_POSITIVE"
	FindingStatusFalsePositive FindingStatus = "FALSE_POSITIVE"
	FindingStatusUnderReview   FindingStatus = "UNDER_REVIEW"
	FindingStatusClarification FindingStatus = "CLARIFICATION_REQUIRED"
)

// Finding is one detected secret occurrence, recorded against the scan that
// produced it. Findings disappear with their scan.
type Finding struct {
	ID           uuid.UUID     `json:"id"`
	ScanID       uuid.UUID     `json:"scan_id" validate:"required"`
	RuleName     string        `json:"rule_name" validate:"required"`
	FilePath     string        `json:"file_path" validate:"required"`
	LineNumber   int           `json:"line_number" validate:"gte=0"`
	CommitID     string        `json:"commit_id"`
	CommitAuthor string        `json:"commit_author"`
	Email        string        `json:"email"`
	Status       FindingStatus `json:"status" validate:"required,oneof=NOT_ANALYZED TRUE_POSITIVE FALSE_POSITIVE UNDER_REVIEW CLARIFICATION_REQUIRED"`
	Comment      string        `json:"comment"`
	CreatedAt    time.Time     `json:"created_at"`
}

// NewFinding builds a finding in the NOT_ANALYZED state.
func NewFinding(scanID uuid.UUID, ruleName, filePath string, lineNumber int, commitID, commitAuthor, email string) *Finding {
	return &Finding{
		ID:           uuid.New(),
		ScanID:       scanID,
		RuleName:     ruleName,
		FilePath:     filePath,
		LineNumber:   lineNumber,
		CommitID:     commitID,
		CommitAuthor: commitAuthor,
		Email:        email,
		Status:       FindingStatusNotAnalyzed,
		CreatedAt:    time.Now().UTC(),
	}
}

// FindingStore provides persistence for findings.
type FindingStore interface {
	Create(ctx context.Context, finding *Finding) error

	// GetByID returns ErrNotFound when no row exists.
	GetByID(ctx context.Context, id uuid.UUID) (*Finding, error)

	// ListByScan returns a page of a scan's findings ordered by file path and
	// line number, along with the total count.
	ListByScan(ctx context.Context, scanID uuid.UUID, skip, limit int) ([]Finding, int64, error)

	// UpdateStatus sets the triage status and comment of a finding. Returns
	// ErrNotFound when no row exists.
	UpdateStatus(ctx context.Context, id uuid.UUID, status FindingStatus, comment string) error

	// Delete removes a finding row. Returns ErrNotFound when no row exists.
	Delete(ctx context.Context, id uuid.UUID) error
}

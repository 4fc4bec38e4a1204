package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/scanhound/scanhound/internal/domain/scanning"
	"github.com/scanhound/scanhound/internal/infra/storage"
)

var _ scanning.FindingStore = (*findingStore)(nil)

// findingStore manages finding persistence in PostgreSQL.
type findingStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewFindingStore creates a PostgreSQL-backed finding store.
func NewFindingStore(pool *pgxpool.Pool, tracer trace.Tracer) *findingStore {
	return &findingStore{pool: pool, tracer: tracer}
}

func (s *findingStore) Create(ctx context.Context, finding *scanning.Finding) error {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "FindingStore"),
		attribute.String("method", "Create"),
		attribute.String("scan_id", finding.ScanID.String()),
		attribute.String("rule_name", finding.RuleName),
	}
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.findings.create", dbAttrs, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO findings (id, scan_id, rule_name, file_path, line_number, commit_id, commit_author, email, status, comment, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			finding.ID, finding.ScanID, finding.RuleName, finding.FilePath,
			finding.LineNumber, finding.CommitID, finding.CommitAuthor, finding.Email,
			finding.Status, finding.Comment, finding.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert error: %w", err)
		}
		return nil
	})
}

func (s *findingStore) GetByID(ctx context.Context, id uuid.UUID) (*scanning.Finding, error) {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "FindingStore"),
		attribute.String("method", "GetByID"),
		attribute.String("id", id.String()),
	}
	var finding scanning.Finding
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.findings.get_by_id", dbAttrs, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			SELECT id, scan_id, rule_name, file_path, line_number, commit_id, commit_author, email, status, comment, created_at
			FROM findings WHERE id = $1`, id)
		if err := scanFinding(row, &finding); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return scanning.ErrNotFound
			}
			return fmt.Errorf("query error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &finding, nil
}

func (s *findingStore) ListByScan(
	ctx context.Context,
	scanID uuid.UUID,
	skip, limit int,
) ([]scanning.Finding, int64, error) {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "FindingStore"),
		attribute.String("method", "ListByScan"),
		attribute.String("scan_id", scanID.String()),
	}
	var (
		findings []scanning.Finding
		total    int64
	)
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.findings.list_by_scan", dbAttrs, func(ctx context.Context) error {
		if err := s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM findings WHERE scan_id = $1`, scanID,
		).Scan(&total); err != nil {
			return fmt.Errorf("count error: %w", err)
		}

		rows, err := s.pool.Query(ctx, `
			SELECT id, scan_id, rule_name, file_path, line_number, commit_id, commit_author, email, status, comment, created_at
			FROM findings WHERE scan_id = $1 ORDER BY file_path, line_number, id OFFSET $2 LIMIT $3`,
			scanID, skip, limit)
		if err != nil {
			return fmt.Errorf("query error: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var finding scanning.Finding
			if err := scanFinding(rows, &finding); err != nil {
				return fmt.Errorf("scan error: %w", err)
			}
			findings = append(findings, finding)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return findings, total, nil
}

func (s *findingStore) UpdateStatus(ctx context.Context, id uuid.UUID, status scanning.FindingStatus, comment string) error {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "FindingStore"),
		attribute.String("method", "UpdateStatus"),
		attribute.String("id", id.String()),
		attribute.String("status", string(status)),
	}
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.findings.update_status", dbAttrs, func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx,
			`UPDATE findings SET status = $2, comment = $3 WHERE id = $1`,
			id, status, comment,
		)
		if err != nil {
			return fmt.Errorf("update error: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return scanning.ErrNotFound
		}
		return nil
	})
}

func (s *findingStore) Delete(ctx context.Context, id uuid.UUID) error {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "FindingStore"),
		attribute.String("method", "Delete"),
		attribute.String("id", id.String()),
	}
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.findings.delete", dbAttrs, func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx, `DELETE FROM findings WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete error: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return scanning.ErrNotFound
		}
		return nil
	})
}

func scanFinding(row pgx.Row, finding *scanning.Finding) error {
	return row.Scan(
		&finding.ID,
		&finding.ScanID,
		&finding.RuleName,
		&finding.FilePath,
		&finding.LineNumber,
		&finding.CommitID,
		&finding.CommitAuthor,
		&finding.Email,
		&finding.Status,
		&finding.Comment,
		&finding.CreatedAt,
	)
}

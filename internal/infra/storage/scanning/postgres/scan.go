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

var _ scanning.ScanStore = (*scanStore)(nil)

// scanStore manages scan record persistence in PostgreSQL.
type scanStore struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewScanStore creates a PostgreSQL-backed scan store.
func NewScanStore(pool *pgxpool.Pool, tracer trace.Tracer) *scanStore {
	return &scanStore{pool: pool, tracer: tracer}
}

func (s *scanStore) Create(ctx context.Context, scan *scanning.Scan) error {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "ScanStore"),
		attribute.String("method", "Create"),
		attribute.String("repository_id", scan.RepositoryID.String()),
		attribute.String("scan_type", string(scan.ScanType)),
	}
	return storage.ExecuteAndTrace(ctx, s.tracer, "postgres.scans.create", dbAttrs, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO scans (id, repository_id, scan_type, last_scanned_commit, increment_number, timestamp)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			scan.ID, scan.RepositoryID, scan.ScanType, scan.LastScannedCommit,
			scan.IncrementNumber, scan.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert error: %w", err)
		}
		return nil
	})
}

func (s *scanStore) GetByID(ctx context.Context, id uuid.UUID) (*scanning.Scan, error) {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "ScanStore"),
		attribute.String("method", "GetByID"),
		attribute.String("id", id.String()),
	}
	var scan scanning.Scan
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.scans.get_by_id", dbAttrs, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			SELECT id, repository_id, scan_type, last_scanned_commit, increment_number, timestamp
			FROM scans WHERE id = $1`, id)
		if err := scanScan(row, &scan); err != nil {
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
	return &scan, nil
}

func (s *scanStore) ListByRepository(
	ctx context.Context,
	repositoryID uuid.UUID,
	skip, limit int,
) ([]scanning.Scan, int64, error) {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "ScanStore"),
		attribute.String("method", "ListByRepository"),
		attribute.String("repository_id", repositoryID.String()),
	}
	var (
		scans []scanning.Scan
		total int64
	)
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.scans.list_by_repository", dbAttrs, func(ctx context.Context) error {
		if err := s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM scans WHERE repository_id = $1`, repositoryID,
		).Scan(&total); err != nil {
			return fmt.Errorf("count error: %w", err)
		}

		rows, err := s.pool.Query(ctx, `
			SELECT id, repository_id, scan_type, last_scanned_commit, increment_number, timestamp
			FROM scans WHERE repository_id = $1 ORDER BY timestamp DESC, id OFFSET $2 LIMIT $3`,
			repositoryID, skip, limit)
		if err != nil {
			return fmt.Errorf("query error: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var scan scanning.Scan
			if err := scanScan(rows, &scan); err != nil {
				return fmt.Errorf("scan error: %w", err)
			}
			scans = append(scans, scan)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return scans, total, nil
}

func (s *scanStore) LatestForRepository(ctx context.Context, repositoryID uuid.UUID) (*scanning.Scan, error) {
	dbAttrs := []attribute.KeyValue{
		attribute.String("repository", "ScanStore"),
		attribute.String("method", "LatestForRepository"),
		attribute.String("repository_id", repositoryID.String()),
	}
	var scan scanning.Scan
	err := storage.ExecuteAndTrace(ctx, s.tracer, "postgres.scans.latest_for_repository", dbAttrs, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			SELECT id, repository_id, scan_type, last_scanned_commit, increment_number, timestamp
			FROM scans WHERE repository_id = $1 ORDER BY timestamp DESC, id LIMIT 1`, repositoryID)
		if err := scanScan(row, &scan); err != nil {
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
	return &scan, nil
}

func scanScan(row pgx.Row, scan *scanning.Scan) error {
	return row.Scan(
		&scan.ID,
		&scan.RepositoryID,
		&scan.ScanType,
		&scan.LastScannedCommit,
		&scan.IncrementNumber,
		&scan.Timestamp,
	)
}
